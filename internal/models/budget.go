package models

import "github.com/shopspring/decimal"

// BudgetIncome is money received in one month.
type BudgetIncome struct {
	Scoped
	Year   int             `gorm:"not null;index:idx_budget_income_period" json:"year" validate:"required,min=1900,max=3000"`
	Month  int             `gorm:"not null;index:idx_budget_income_period" json:"month" validate:"required,month"`
	Source string          `gorm:"not null" json:"source" validate:"required"`
	Amount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
}

// Outgoing is a recurring monthly expense with a default amount.
type Outgoing struct {
	Scoped
	Name          string          `gorm:"not null" json:"name" validate:"required"`
	Category      string          `json:"category"`
	DefaultAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"defaultAmount"`
	Paused        bool            `gorm:"not null" json:"paused"`
}

// OutgoingOverride replaces an outgoing's default amount for one month.
type OutgoingOverride struct {
	Scoped
	OutgoingID string          `gorm:"type:uuid;not null;uniqueIndex:idx_outgoing_override_period" json:"outgoingId"`
	Year       int             `gorm:"not null;uniqueIndex:idx_outgoing_override_period" json:"year"`
	Month      int             `gorm:"not null;uniqueIndex:idx_outgoing_override_period" json:"month"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
}

type FinanceAccount struct {
	Scoped
	Name        string      `gorm:"not null" json:"name" validate:"required"`
	Kind        AccountKind `gorm:"not null" json:"kind" validate:"required,account_kind"`
	Institution string      `json:"institution"`
	Currency    string      `gorm:"not null;default:'EUR'" json:"currency" validate:"omitempty,len=3"`
}

// AccountBalance is the recorded balance of an account for one month.
type AccountBalance struct {
	Scoped
	AccountID string          `gorm:"type:uuid;not null;uniqueIndex:idx_account_balance_period" json:"accountId"`
	Year      int             `gorm:"not null;uniqueIndex:idx_account_balance_period" json:"year"`
	Month     int             `gorm:"not null;uniqueIndex:idx_account_balance_period" json:"month"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"balance"`
}
