package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finsight/internal/errors"
	"finsight/internal/jobs"
	"finsight/internal/logger"
	"finsight/internal/models"
	"finsight/internal/schedule"
)

// recurringService discovers due recurring templates and fires them.
type recurringService struct {
	db             *gorm.DB
	accountService AccountServicer
	queue          jobs.Publisher
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, accountService AccountServicer, queue jobs.Publisher) RecurringServicer {
	return &recurringService{
		db:             db,
		accountService: accountService,
		queue:          queue,
	}
}

// ScanDue queries all due recurring templates and emits one processing job
// per template. Discovery is decoupled from execution so a slow or failing
// firing cannot block the others.
func (s *recurringService) ScanDue(ctx context.Context) (int, error) {
	now := time.Now()

	var templates []models.Transaction
	err := s.db.WithContext(ctx).
		Where("is_recurring = ? AND status = ?", true, models.TransactionStatusCompleted).
		Where("last_processed IS NULL OR next_recurring_date <= ?", now).
		Find(&templates).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	emitted := 0
	for i := range templates {
		job := &jobs.ProcessRecurringJob{
			TransactionID: templates[i].ID,
			UserID:        templates[i].UserID,
		}
		if err := s.queue.PublishProcessRecurring(ctx, job); err != nil {
			return emitted, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		emitted++
	}

	if emitted > 0 {
		logger.Get().Infow("recurring scan complete", "emitted", emitted)
	}
	return emitted, nil
}

// ProcessRecurring fires one recurring template. The whole unit runs inside a
// single database transaction: the realized occurrence insert, the balance
// increment, and the schedule advance commit together or not at all.
//
// The schedule advance is a guarded update on the due predicate, so of two
// concurrent firings of the same template only one can advance it; the other
// observes zero affected rows and no-ops.
func (s *recurringService) ProcessRecurring(ctx context.Context, transactionID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var template models.Transaction
		err := tx.Where("id = ? AND user_id = ? AND is_recurring = ?", transactionID, userID, true).
			First(&template).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Stale work item: the template was deleted or never existed.
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		now := time.Now()
		if !schedule.IsDue(&template, now) {
			return nil
		}

		if template.RecurringInterval == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidRecurringInterval,
				"recurring template "+template.ID+" has no interval")
		}
		next, err := schedule.NextDate(now, *template.RecurringInterval)
		if err != nil {
			return err
		}

		// Advance the schedule first, conditioned on the template still being
		// due. Zero affected rows means a concurrent firing won the race.
		advance := tx.Model(&models.Transaction{}).
			Where("id = ? AND is_recurring = ?", template.ID, true).
			Where("last_processed IS NULL OR next_recurring_date <= ?", now).
			Updates(map[string]interface{}{
				"last_processed":      now,
				"next_recurring_date": next,
			})
		if advance.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, advance.Error)
		}
		if advance.RowsAffected == 0 {
			return nil
		}

		occurrence := &models.Transaction{
			UserID:      template.UserID,
			AccountID:   template.AccountID,
			AssetName:   template.AssetName,
			Ticker:      template.Ticker,
			Type:        template.Type,
			TotalAmount: template.TotalAmount,
			Quantity:    decimal.Zero,
			Description: template.Description + " (Recurring)",
			Date:        now,
			Status:      models.TransactionStatusCompleted,
			IsRecurring: false,
		}
		if err := tx.Create(occurrence).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		return s.accountService.ApplyBalanceChange(tx, template.AccountID, template.Type, template.TotalAmount)
	})
}
