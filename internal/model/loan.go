package model

import "time"

// PendingLoanRequest is an outstanding loan offer awaiting the lender's decision.
type PendingLoanRequest struct {
	Key        string    `json:"key"`
	BorrowerID string    `json:"borrower_id"`
	LenderID   string    `json:"lender_id"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
