package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/jobs"
	"finsight/internal/models"
	"finsight/internal/testutil"
)

// fakePublisher records emitted jobs instead of delivering them.
type fakePublisher struct {
	published []*jobs.ProcessRecurringJob
}

func (f *fakePublisher) PublishProcessRecurring(_ context.Context, job *jobs.ProcessRecurringJob) error {
	f.published = append(f.published, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestScanDue(t *testing.T) {
	t.Run("emits_one_job_per_due_template", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		pub := &fakePublisher{}
		svc := NewRecurringService(db, acctSvc, pub)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)

		first := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))
		second := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalMonthly, decimal.NewFromInt(50))

		count, err := svc.ScanDue(context.Background())
		testutil.AssertNoError(t, err)
		if count != 2 {
			t.Fatalf("expected 2 jobs emitted, got %d", count)
		}
		if len(pub.published) != 2 {
			t.Fatalf("expected 2 published jobs, got %d", len(pub.published))
		}
		seen := map[string]bool{}
		for _, job := range pub.published {
			seen[job.TransactionID] = true
			if job.UserID != user.ID {
				t.Errorf("expected user ID %s, got %s", user.ID, job.UserID)
			}
		}
		if !seen[first.ID] || !seen[second.ID] {
			t.Error("expected both templates to be scheduled")
		}
	})

	t.Run("skips_templates_not_yet_due", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		pub := &fakePublisher{}
		svc := NewRecurringService(db, acctSvc, pub)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)

		template := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))
		past := time.Now().Add(-time.Hour)
		future := time.Now().Add(24 * time.Hour)
		err := db.Model(template).Updates(map[string]interface{}{
			"last_processed":      past,
			"next_recurring_date": future,
		}).Error
		testutil.AssertNoError(t, err)

		count, err := svc.ScanDue(context.Background())
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Fatalf("expected 0 jobs emitted, got %d", count)
		}
	})

	t.Run("skips_non_recurring_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		pub := &fakePublisher{}
		svc := NewRecurringService(db, acctSvc, pub)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)

		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeBuy, decimal.NewFromInt(100))

		count, err := svc.ScanDue(context.Background())
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Fatalf("expected 0 jobs emitted, got %d", count)
		}
	})
}

func TestProcessRecurring(t *testing.T) {
	t.Run("fires_due_template", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		svc := NewRecurringService(db, acctSvc, &fakePublisher{})
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, decimal.NewFromInt(500))

		template := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))

		err := svc.ProcessRecurring(context.Background(), template.ID, user.ID)
		testutil.AssertNoError(t, err)

		// A realized occurrence exists, suffixed and non-recurring.
		var occurrence models.Transaction
		err = db.Where("user_id = ? AND is_recurring = ? AND id <> ?", user.ID, false, template.ID).
			First(&occurrence).Error
		testutil.AssertNoError(t, err)
		if occurrence.Description != "Salary (Recurring)" {
			t.Errorf("expected description %q, got %q", "Salary (Recurring)", occurrence.Description)
		}
		if !occurrence.TotalAmount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected amount 100, got %s", occurrence.TotalAmount)
		}
		if occurrence.Status != models.TransactionStatusCompleted {
			t.Errorf("expected status COMPLETED, got %s", occurrence.Status)
		}
		if occurrence.Type != template.Type {
			t.Errorf("expected type %s, got %s", template.Type, occurrence.Type)
		}

		// SELL credits the account.
		updated, err := acctSvc.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if !updated.Balance.Equal(decimal.NewFromInt(600)) {
			t.Errorf("expected balance 600, got %s", updated.Balance)
		}

		// The schedule advanced.
		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", template.ID).Error)
		if reloaded.LastProcessed == nil {
			t.Fatal("expected last_processed to be set")
		}
		if reloaded.NextRecurringDate == nil {
			t.Fatal("expected next_recurring_date to be set")
		}
		// Daily interval advances one day from the firing time.
		wantNext := reloaded.LastProcessed.AddDate(0, 0, 1)
		if !reloaded.NextRecurringDate.Equal(wantNext) {
			t.Errorf("expected next date %s, got %s", wantNext, reloaded.NextRecurringDate)
		}
	})

	t.Run("second_firing_is_a_no_op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		svc := NewRecurringService(db, acctSvc, &fakePublisher{})
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, decimal.NewFromInt(500))

		template := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))

		testutil.AssertNoError(t, svc.ProcessRecurring(context.Background(), template.ID, user.ID))
		testutil.AssertNoError(t, svc.ProcessRecurring(context.Background(), template.ID, user.ID))

		var occurrences int64
		err := db.Model(&models.Transaction{}).
			Where("user_id = ? AND is_recurring = ?", user.ID, false).
			Count(&occurrences).Error
		testutil.AssertNoError(t, err)
		if occurrences != 1 {
			t.Fatalf("expected exactly 1 occurrence, got %d", occurrences)
		}

		updated, err := acctSvc.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if !updated.Balance.Equal(decimal.NewFromInt(600)) {
			t.Errorf("expected balance applied exactly once (600), got %s", updated.Balance)
		}
	})

	t.Run("missing_template_is_a_no_op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		svc := NewRecurringService(db, acctSvc, &fakePublisher{})
		user := testutil.CreateTestUser(t, db)

		err := svc.ProcessRecurring(context.Background(), "00000000-0000-0000-0000-000000000000", user.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("wrong_user_is_a_no_op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		svc := NewRecurringService(db, acctSvc, &fakePublisher{})
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, owner.ID)

		template := testutil.CreateTestRecurringTransaction(t, db, owner.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))

		testutil.AssertNoError(t, svc.ProcessRecurring(context.Background(), template.ID, other.ID))

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", template.ID).Error)
		if reloaded.LastProcessed != nil {
			t.Error("expected template untouched")
		}
	})

	t.Run("not_due_template_is_a_no_op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		svc := NewRecurringService(db, acctSvc, &fakePublisher{})
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, decimal.NewFromInt(500))

		template := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))
		past := time.Now().Add(-time.Hour)
		future := time.Now().Add(24 * time.Hour)
		err := db.Model(template).Updates(map[string]interface{}{
			"last_processed":      past,
			"next_recurring_date": future,
		}).Error
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.ProcessRecurring(context.Background(), template.ID, user.ID))

		updated, err := acctSvc.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if !updated.Balance.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected balance unchanged (500), got %s", updated.Balance)
		}
	})

	t.Run("template_without_interval_is_an_error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		svc := NewRecurringService(db, acctSvc, &fakePublisher{})
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)

		template := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))
		testutil.AssertNoError(t, db.Model(template).Update("recurring_interval", nil).Error)

		err := svc.ProcessRecurring(context.Background(), template.ID, user.ID)
		testutil.AssertAppError(t, err, "INVALID_RECURRING_INTERVAL")
	})

	t.Run("template_with_unknown_interval_is_an_error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db)
		svc := NewRecurringService(db, acctSvc, &fakePublisher{})
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)

		template := testutil.CreateTestRecurringTransaction(t, db, user.ID, account.ID, models.RecurringIntervalDaily, decimal.NewFromInt(100))
		testutil.AssertNoError(t, db.Model(template).Update("recurring_interval", "FORTNIGHTLY").Error)

		err := svc.ProcessRecurring(context.Background(), template.ID, user.ID)
		testutil.AssertAppError(t, err, "INVALID_RECURRING_INTERVAL")

		// A failed firing leaves no partial state behind.
		var occurrences int64
		err = db.Model(&models.Transaction{}).
			Where("user_id = ? AND is_recurring = ?", user.ID, false).
			Count(&occurrences).Error
		testutil.AssertNoError(t, err)
		if occurrences != 0 {
			t.Fatalf("expected no occurrences, got %d", occurrences)
		}
	})
}
