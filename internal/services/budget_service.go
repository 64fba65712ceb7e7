package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finsight/internal/email"
	apperrors "finsight/internal/errors"
	"finsight/internal/logger"
	"finsight/internal/models"
)

const budgetAlertThreshold = 80.0

// budgetService handles budget-related business logic and the periodic
// alert sweep.
type budgetService struct {
	db             *gorm.DB
	accountService AccountServicer
	sender         email.Sender
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, accountService AccountServicer, sender email.Sender) BudgetServicer {
	return &budgetService{
		db:             db,
		accountService: accountService,
		sender:         sender,
	}
}

// GetBudget retrieves the user's budget together with the current month's
// spend on their default account.
func (s *budgetService) GetBudget(userID string) (*BudgetStatus, error) {
	var budget models.Budget
	if err := s.db.Where("user_id = ?", userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account, err := s.accountService.GetDefaultAccount(userID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.monthlyExpenses(userID, account.ID, time.Now())
	if err != nil {
		return nil, err
	}

	return &BudgetStatus{
		Budget:          &budget,
		CurrentExpenses: expenses,
		PercentageUsed:  percentageUsed(expenses, budget.Amount),
	}, nil
}

// UpsertBudget creates or replaces the user's single budget.
func (s *budgetService) UpsertBudget(userID string, amount decimal.Decimal) (*models.Budget, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
	}

	var budget models.Budget
	err := s.db.Where("user_id = ?", userID).First(&budget).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		budget = models.Budget{UserID: userID, Amount: amount}
		if err := s.db.Create(&budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		// Changing the amount resets the alert cycle so the new limit is
		// evaluated fresh.
		updates := map[string]interface{}{
			"amount":          amount,
			"last_alert_sent": nil,
		}
		if err := s.db.Model(&budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		budget.Amount = amount
		budget.LastAlertSent = nil
	}

	return &budget, nil
}

// CheckBudgetAlerts evaluates every budget against the owner's current-month
// spend and emails an alert when usage crosses the threshold. At most one
// alert goes out per user per calendar month; a failed send leaves the alert
// unmarked so the next sweep retries it.
func (s *budgetService) CheckBudgetAlerts(ctx context.Context) (int, error) {
	now := time.Now()

	var budgets []models.Budget
	if err := s.db.WithContext(ctx).Preload("User").Find(&budgets).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sent := 0
	for i := range budgets {
		budget := &budgets[i]
		if budget.User.ID == "" || !budget.User.IsActive {
			continue
		}
		if budget.Amount.IsZero() || budget.Amount.IsNegative() {
			continue
		}

		account, err := s.accountService.GetDefaultAccount(budget.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNoDefaultAccount) {
				continue
			}
			logger.Get().Errorw("budget alert: default account lookup failed",
				"user_id", budget.UserID, "error", err)
			continue
		}

		expenses, err := s.monthlyExpenses(budget.UserID, account.ID, now)
		if err != nil {
			logger.Get().Errorw("budget alert: expense aggregation failed",
				"user_id", budget.UserID, "error", err)
			continue
		}

		pct := percentageUsed(expenses, budget.Amount)
		if pct < budgetAlertThreshold {
			continue
		}
		if alreadyAlertedThisMonth(budget.LastAlertSent, now) {
			continue
		}

		msg := email.NewBudgetAlert(budget.User.Email, email.BudgetAlertData{
			UserName:       budget.User.Name,
			PercentageUsed: pct,
			BudgetAmount:   budget.Amount,
			TotalExpenses:  expenses,
			AccountName:    account.Name,
		})
		if err := s.sender.Send(ctx, msg); err != nil {
			logger.Get().Errorw("budget alert: email delivery failed",
				"user_id", budget.UserID, "error", err)
			continue
		}

		if err := s.db.Model(budget).Update("last_alert_sent", now).Error; err != nil {
			logger.Get().Errorw("budget alert: failed to record alert time",
				"user_id", budget.UserID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		logger.Get().Infow("budget alert sweep complete", "sent", sent)
	}
	return sent, nil
}

// monthlyExpenses sums completed BUY transactions on the account within the
// calendar month containing ref.
func (s *budgetService) monthlyExpenses(userID, accountID string, ref time.Time) (decimal.Decimal, error) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, 0)

	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND account_id = ? AND type = ? AND status = ?",
			userID, accountID, models.TransactionTypeBuy, models.TransactionStatusCompleted).
		Where("date >= ? AND date < ?", start, end).
		Find(&transactions).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for i := range transactions {
		total = total.Add(transactions[i].TotalAmount)
	}
	return total, nil
}

func percentageUsed(expenses, budget decimal.Decimal) float64 {
	if budget.IsZero() {
		return 0
	}
	pct, _ := expenses.Div(budget).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

func alreadyAlertedThisMonth(lastAlert *time.Time, now time.Time) bool {
	if lastAlert == nil {
		return false
	}
	return lastAlert.Month() == now.Month() && lastAlert.Year() == now.Year()
}
