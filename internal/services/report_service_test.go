package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/email"
	"finsight/internal/insights"
	"finsight/internal/models"
	"finsight/internal/testutil"
)

// fakeInsights returns canned insight strings.
type fakeInsights struct {
	insights []string
	fail     bool
}

func (f *fakeInsights) MonthlyInsights(_ context.Context, _ insights.MonthlyStats, _ string) ([]string, error) {
	if f.fail {
		return nil, fmt.Errorf("model unavailable")
	}
	return f.insights, nil
}

func TestMonthlyStats(t *testing.T) {
	t.Run("aggregates_by_type_and_asset", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReportService(db, NewUserService(db), &fakeInsights{}, &fakeSender{})
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)

		now := time.Now()
		buy1 := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeBuy, decimal.NewFromInt(300))
		buy2 := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeBuy, decimal.NewFromInt(200))
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeSell, decimal.NewFromInt(150))

		stats, err := svc.MonthlyStats(user.ID, now)
		testutil.AssertNoError(t, err)
		if !stats.TotalBuy.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected total buy 500, got %s", stats.TotalBuy)
		}
		if !stats.TotalSell.Equal(decimal.NewFromInt(150)) {
			t.Errorf("expected total sell 150, got %s", stats.TotalSell)
		}
		if stats.TransactionCount != 3 {
			t.Errorf("expected 3 transactions, got %d", stats.TransactionCount)
		}
		if !stats.ByAssetName[buy1.AssetName].Equal(decimal.NewFromInt(300)) {
			t.Errorf("expected 300 for %s, got %s", buy1.AssetName, stats.ByAssetName[buy1.AssetName])
		}
		if !stats.ByAssetName[buy2.AssetName].Equal(decimal.NewFromInt(200)) {
			t.Errorf("expected 200 for %s, got %s", buy2.AssetName, stats.ByAssetName[buy2.AssetName])
		}
	})

	t.Run("excludes_other_months", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReportService(db, NewUserService(db), &fakeInsights{}, &fakeSender{})
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)

		old := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeBuy, decimal.NewFromInt(300))
		twoMonthsAgo := time.Now().AddDate(0, -2, 0)
		testutil.AssertNoError(t, db.Model(old).Update("date", twoMonthsAgo).Error)

		stats, err := svc.MonthlyStats(user.ID, time.Now())
		testutil.AssertNoError(t, err)
		if stats.TransactionCount != 0 {
			t.Errorf("expected 0 transactions this month, got %d", stats.TransactionCount)
		}
	})
}

func TestGenerateReport(t *testing.T) {
	t.Run("emails_report_with_insights", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		sender := &fakeSender{}
		gen := &fakeInsights{insights: []string{"Nice diversification this month."}}
		svc := NewReportService(db, NewUserService(db), gen, sender)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeBuy, decimal.NewFromInt(300))

		err := svc.GenerateReport(context.Background(), user.ID, time.Now())
		testutil.AssertNoError(t, err)
		if len(sender.sent) != 1 {
			t.Fatalf("expected 1 message, got %d", len(sender.sent))
		}
		msg := sender.sent[0]
		if msg.To != user.Email {
			t.Errorf("expected recipient %s, got %s", user.Email, msg.To)
		}
		if !strings.Contains(msg.HTML, "Nice diversification this month.") {
			t.Error("expected insight text in report body")
		}
		wantMonth := time.Now().Format("January 2006")
		if !strings.Contains(msg.Subject, wantMonth) {
			t.Errorf("expected subject to mention %s, got %q", wantMonth, msg.Subject)
		}
	})

	t.Run("fallback_insights_appear_when_model_fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		sender := &fakeSender{}
		gen := insights.Fallback(&fakeInsights{fail: true})
		svc := NewReportService(db, NewUserService(db), gen, sender)
		user := testutil.CreateTestUser(t, db)

		err := svc.GenerateReport(context.Background(), user.ID, time.Now())
		testutil.AssertNoError(t, err)
		if len(sender.sent) != 1 {
			t.Fatalf("expected 1 message, got %d", len(sender.sent))
		}
		if !strings.Contains(sender.sent[0].HTML, "Diversifying your investments") {
			t.Error("expected fallback insight in report body")
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReportService(db, NewUserService(db), &fakeInsights{}, &fakeSender{})

		err := svc.GenerateReport(context.Background(), "00000000-0000-0000-0000-000000000000", time.Now())
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestGenerateMonthlyReports(t *testing.T) {
	t.Run("sends_to_every_active_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		sender := &fakeSender{}
		svc := NewReportService(db, NewUserService(db), &fakeInsights{insights: []string{"ok"}}, sender)

		active1 := testutil.CreateTestUser(t, db)
		active2 := testutil.CreateTestUser(t, db)
		inactive := testutil.CreateTestUser(t, db)
		testutil.AssertNoError(t, db.Model(&models.User{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)

		sent, err := svc.GenerateMonthlyReports(context.Background())
		testutil.AssertNoError(t, err)
		if sent != 2 {
			t.Fatalf("expected 2 reports sent, got %d", sent)
		}

		recipients := map[string]bool{}
		for _, msg := range sender.sent {
			recipients[msg.To] = true
		}
		if !recipients[active1.Email] || !recipients[active2.Email] {
			t.Error("expected both active users to receive reports")
		}
		if recipients[inactive.Email] {
			t.Error("expected inactive user to be skipped")
		}
	})

	t.Run("one_failure_does_not_stop_the_run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		sender := &failFirstSender{}
		svc := NewReportService(db, NewUserService(db), &fakeInsights{insights: []string{"ok"}}, sender)

		testutil.CreateTestUser(t, db)
		testutil.CreateTestUser(t, db)

		sent, err := svc.GenerateMonthlyReports(context.Background())
		testutil.AssertNoError(t, err)
		if sent != 1 {
			t.Fatalf("expected 1 report sent, got %d", sent)
		}
	})
}

// failFirstSender fails the first delivery and accepts the rest.
type failFirstSender struct {
	calls int
}

func (f *failFirstSender) Send(_ context.Context, _ email.Message) error {
	f.calls++
	if f.calls == 1 {
		return fmt.Errorf("delivery refused")
	}
	return nil
}
