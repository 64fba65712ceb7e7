package models

import "github.com/shopspring/decimal"

// Account represents a financial account (holding/wallet) in the system.
// Balance is the authoritative running sum of signed transaction effects;
// it is only ever mutated with increment updates, never recomputed or
// overwritten from a stale read.
type Account struct {
	Base
	UserID      string          `gorm:"not null;index" json:"user_id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Balance     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	Currency    string          `gorm:"not null;default:'USD'" json:"currency"`
	IsDefault   bool            `gorm:"default:false" json:"is_default"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}
