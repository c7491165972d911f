package models

import (
	"time"
)

// TransactionType is the business reason for a balance change.
type TransactionType string

const (
	TransactionInitial TransactionType = "initial"
	TransactionUsage   TransactionType = "usage"
	TransactionGrant   TransactionType = "grant" // reserved for top-ups
)

// UserCreditAccount is the per-user balance row. Credits never go below zero and
// TotalUsed only grows.
type UserCreditAccount struct {
	UserID    string    `json:"userId" db:"user_id"`
	Credits   int64     `json:"credits" db:"credits"`
	TotalUsed int64     `json:"totalUsed" db:"total_used"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CreditTransaction is one append-only audit row. Amount is positive for grants and
// negative for debits.
type CreditTransaction struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"userId" db:"user_id"`
	Amount      int64           `json:"amount" db:"amount"`
	Type        TransactionType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// Balance is the public view of an account.
type Balance struct {
	Credits   int64 `json:"credits" example:"100"`
	TotalUsed int64 `json:"totalUsed" example:"0"`
}

// DebitResult is returned after a successful debit.
type DebitResult struct {
	Success          bool  `json:"success" example:"true"`
	RemainingCredits int64 `json:"remainingCredits" example:"70"`
}
