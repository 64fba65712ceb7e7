// Package scheduler runs the periodic background jobs: the daily recurring
// transaction scan, the budget alert sweep, and monthly report generation.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"finsight/internal/logger"
	"finsight/internal/services"
)

// Cadences for the periodic jobs.
const (
	recurringScanSchedule = "0 0 * * *"   // daily at midnight
	budgetAlertSchedule   = "0 */6 * * *" // every six hours
	monthlyReportSchedule = "0 0 1 * *"   // first of the month at midnight
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 10 * time.Minute

// Scheduler owns the cron runner and dispatches into the services.
type Scheduler struct {
	cron      *cron.Cron
	recurring services.RecurringServicer
	budgets   services.BudgetServicer
	reports   services.ReportServicer
}

// New creates a Scheduler wired to the given services.
func New(recurring services.RecurringServicer, budgets services.BudgetServicer, reports services.ReportServicer) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		recurring: recurring,
		budgets:   budgets,
		reports:   reports,
	}
}

// Start registers the periodic jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(recurringScanSchedule, s.runRecurringScan); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(budgetAlertSchedule, s.runBudgetAlerts); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(monthlyReportSchedule, s.runMonthlyReports); err != nil {
		return err
	}

	s.cron.Start()
	logger.Get().Infow("scheduler started",
		"recurring_scan", recurringScanSchedule,
		"budget_alerts", budgetAlertSchedule,
		"monthly_reports", monthlyReportSchedule,
	)
	return nil
}

// Stop stops the cron runner and waits for any running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runRecurringScan() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := s.recurring.ScanDue(ctx)
	if err != nil {
		logger.Get().Errorw("recurring scan failed", "error", err)
		return
	}
	logger.Get().Infow("recurring scan finished", "jobs_emitted", count)
}

func (s *Scheduler) runBudgetAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := s.budgets.CheckBudgetAlerts(ctx)
	if err != nil {
		logger.Get().Errorw("budget alert sweep failed", "error", err)
		return
	}
	logger.Get().Infow("budget alert sweep finished", "alerts_sent", count)
}

func (s *Scheduler) runMonthlyReports() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := s.reports.GenerateMonthlyReports(ctx)
	if err != nil {
		logger.Get().Errorw("monthly report run failed", "error", err)
		return
	}
	logger.Get().Infow("monthly report run finished", "reports_sent", count)
}
