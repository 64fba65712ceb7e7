package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finsight/internal/email"
	apperrors "finsight/internal/errors"
	"finsight/internal/insights"
	"finsight/internal/logger"
	"finsight/internal/models"
)

// reportService assembles and delivers monthly financial reports.
type reportService struct {
	db          *gorm.DB
	userService UserServicer
	generator   insights.Generator
	sender      email.Sender
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, userService UserServicer, generator insights.Generator, sender email.Sender) ReportServicer {
	return &reportService{
		db:          db,
		userService: userService,
		generator:   generator,
		sender:      sender,
	}
}

// MonthlyStats aggregates a user's completed transactions for the calendar
// month containing the given time. BUY amounts feed the per-asset breakdown.
func (s *reportService) MonthlyStats(userID string, month time.Time) (insights.MonthlyStats, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND status = ?", userID, models.TransactionStatusCompleted).
		Where("date >= ? AND date < ?", start, end).
		Find(&transactions).Error
	if err != nil {
		return insights.MonthlyStats{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := insights.MonthlyStats{
		TotalBuy:    decimal.Zero,
		TotalSell:   decimal.Zero,
		ByAssetName: make(map[string]decimal.Decimal),
	}
	for i := range transactions {
		t := &transactions[i]
		stats.TransactionCount++
		switch t.Type {
		case models.TransactionTypeBuy:
			stats.TotalBuy = stats.TotalBuy.Add(t.TotalAmount)
			stats.ByAssetName[t.AssetName] = stats.ByAssetName[t.AssetName].Add(t.TotalAmount)
		case models.TransactionTypeSell:
			stats.TotalSell = stats.TotalSell.Add(t.TotalAmount)
		}
	}

	return stats, nil
}

// GenerateReport builds and emails one user's report for the given month.
func (s *reportService) GenerateReport(ctx context.Context, userID string, month time.Time) error {
	user, err := s.userService.GetUserByID(userID)
	if err != nil {
		return err
	}

	stats, err := s.MonthlyStats(userID, month)
	if err != nil {
		return err
	}

	monthLabel := month.Format("January 2006")
	generated, err := s.generator.MonthlyInsights(ctx, stats, monthLabel)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	msg := email.NewMonthlyReport(user.Email, email.MonthlyReportData{
		UserName:         user.Name,
		Month:            monthLabel,
		TotalBuy:         stats.TotalBuy,
		TotalSell:        stats.TotalSell,
		TransactionCount: stats.TransactionCount,
		ByAssetName:      stats.ByAssetName,
		Insights:         generated,
	})
	return s.sender.Send(ctx, msg)
}

// GenerateMonthlyReports emails every active user a report for the previous
// calendar month. Per-user failures are logged and skipped so one bad
// mailbox cannot starve the rest of the run.
func (s *reportService) GenerateMonthlyReports(ctx context.Context) (int, error) {
	previousMonth := time.Now().AddDate(0, -1, 0)

	var users []models.User
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&users).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sent := 0
	for i := range users {
		if err := s.GenerateReport(ctx, users[i].ID, previousMonth); err != nil {
			logger.Get().Errorw("monthly report generation failed",
				"user_id", users[i].ID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		logger.Get().Infow("monthly report run complete", "sent", sent)
	}
	return sent, nil
}
