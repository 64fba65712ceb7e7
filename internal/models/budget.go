package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget represents a user's monthly spend ceiling. There is at most one
// budget row per user. LastAlertSent deduplicates threshold alert emails at
// calendar-month granularity.
type Budget struct {
	Base
	UserID        string          `gorm:"not null;uniqueIndex" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
