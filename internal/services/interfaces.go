package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finsight/internal/insights"
	"finsight/internal/models"
	"finsight/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, name string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID, name, description, currency string, initialBalance decimal.Decimal, isDefault bool) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	GetDefaultAccount(userID string) (*models.Account, error)
	SetDefaultAccount(userID, accountID string) (*models.Account, error)
	// ApplyBalanceChange adjusts an account balance by the signed effect of a
	// transaction using an increment expression, never a read-then-overwrite,
	// so concurrent writers from unrelated transactions commute.
	ApplyBalanceChange(tx *gorm.DB, accountID string, transactionType models.TransactionType, amount decimal.Decimal) error
}

// CreateTransactionInput holds the fields for creating a transaction.
type CreateTransactionInput struct {
	AccountID         string
	AssetName         string
	Ticker            string
	Type              models.TransactionType
	TotalAmount       decimal.Decimal
	Quantity          decimal.Decimal
	Description       string
	Date              time.Time
	IsRecurring       bool
	RecurringInterval *models.RecurringInterval
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	AssetName *string
	Recurring *bool
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, input CreateTransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// RecurringServicer defines the contract for the recurring-transaction
// scanner and processor.
type RecurringServicer interface {
	// ScanDue discovers all due recurring templates and emits one processing
	// job per template. It returns the number of jobs emitted.
	ScanDue(ctx context.Context) (int, error)
	// ProcessRecurring fires a single template: it materializes one realized
	// occurrence, applies the balance effect, and advances the schedule as
	// one atomic unit. Stale or duplicate work items are silent no-ops.
	ProcessRecurring(ctx context.Context, transactionID, userID string) error
}

// BudgetStatus combines a budget with the current month's spend against it.
type BudgetStatus struct {
	Budget          *models.Budget  `json:"budget"`
	CurrentExpenses decimal.Decimal `json:"current_expenses"`
	PercentageUsed  float64         `json:"percentage_used"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	GetBudget(userID string) (*BudgetStatus, error)
	UpsertBudget(userID string, amount decimal.Decimal) (*models.Budget, error)
	// CheckBudgetAlerts evaluates every user's budget against the current
	// month's spend on their default account and emails at most one alert
	// per user per calendar month. It returns the number of alerts sent.
	CheckBudgetAlerts(ctx context.Context) (int, error)
}

// ReportServicer defines the contract for monthly report generation.
type ReportServicer interface {
	MonthlyStats(userID string, month time.Time) (insights.MonthlyStats, error)
	GenerateReport(ctx context.Context, userID string, month time.Time) error
	// GenerateMonthlyReports emails every active user a report for the
	// previous calendar month. It returns the number of reports sent.
	GenerateMonthlyReports(ctx context.Context) (int, error)
}
