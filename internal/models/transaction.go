package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction.
// BUY decreases the account balance, SELL increases it.
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// TransactionStatus represents the processing status of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
)

// RecurringInterval represents how often a recurring transaction fires.
type RecurringInterval string

const (
	RecurringIntervalDaily   RecurringInterval = "DAILY"
	RecurringIntervalWeekly  RecurringInterval = "WEEKLY"
	RecurringIntervalMonthly RecurringInterval = "MONTHLY"
	RecurringIntervalYearly  RecurringInterval = "YEARLY"
)

// Transaction represents a ledger entry. A row with IsRecurring=true is a
// template: each firing spawns a separate non-recurring row (the realized
// occurrence), which is never mutated afterwards. NextRecurringDate is always
// derived from LastProcessed (or the creation date) plus the interval; only
// the recurrence processor advances it.
type Transaction struct {
	Base
	UserID      string            `gorm:"not null;index" json:"user_id"`
	AccountID   string            `gorm:"not null;index" json:"account_id"`
	AssetName   string            `gorm:"not null" json:"asset_name"`
	Ticker      string            `json:"ticker"`
	Type        TransactionType   `gorm:"not null" json:"type"`
	TotalAmount decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Quantity    decimal.Decimal   `gorm:"type:decimal(18,8);not null;default:0" json:"quantity"`
	Description string            `json:"description"`
	Date        time.Time         `gorm:"not null;index" json:"date"`
	Status      TransactionStatus `gorm:"not null;default:'COMPLETED'" json:"status"`

	// Recurrence schedule (templates only)
	IsRecurring       bool               `gorm:"default:false;index" json:"is_recurring"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty"`
	LastProcessed     *time.Time         `json:"last_processed,omitempty"`
	NextRecurringDate *time.Time         `gorm:"index" json:"next_recurring_date,omitempty"`

	// Relationships
	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
