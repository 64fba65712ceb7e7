package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finsight/internal/services"
)

// JobHandler exposes manual triggers for the periodic background jobs. These
// endpoints mirror what the scheduler runs on its own cadence and are useful
// for operations and debugging.
type JobHandler struct {
	recurringService services.RecurringServicer
	budgetService    services.BudgetServicer
	reportService    services.ReportServicer
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(recurringService services.RecurringServicer, budgetService services.BudgetServicer, reportService services.ReportServicer) *JobHandler {
	return &JobHandler{
		recurringService: recurringService,
		budgetService:    budgetService,
		reportService:    reportService,
	}
}

// TriggerRecurringScan runs the recurring transaction scan immediately
func (h *JobHandler) TriggerRecurringScan(c *gin.Context) {
	count, err := h.recurringService.ScanDue(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs_emitted": count})
}

// TriggerBudgetAlerts runs the budget alert sweep immediately
func (h *JobHandler) TriggerBudgetAlerts(c *gin.Context) {
	count, err := h.budgetService.CheckBudgetAlerts(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts_sent": count})
}

// TriggerMonthlyReports runs monthly report generation immediately
func (h *JobHandler) TriggerMonthlyReports(c *gin.Context) {
	count, err := h.reportService.GenerateMonthlyReports(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports_sent": count})
}
