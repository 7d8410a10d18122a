package model

import "time"

// DailyReceipt is returned by a successful daily claim.
type DailyReceipt struct {
	UserID    string    `json:"user_id"`
	Reward    int64     `json:"reward"`
	Money     int64     `json:"money"`
	ClaimedAt time.Time `json:"claimed_at"`
	NextClaim time.Time `json:"next_claim"`
}

// TransferReceipt describes a completed money movement between two users.
// Fee is the destroyed part of Amount; Received is what the recipient got.
type TransferReceipt struct {
	FromID        string `json:"from_id"`
	ToID          string `json:"to_id"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	Received      int64  `json:"received"`
	SenderMoney   int64  `json:"sender_money"`
	ReceiverMoney int64  `json:"receiver_money"`
}

// BankReceipt is returned by deposits and withdrawals.
type BankReceipt struct {
	UserID       string `json:"user_id"`
	Amount       int64  `json:"amount"`
	Money        int64  `json:"money"`
	Bank         int64  `json:"bank"`
	BankCapacity int64  `json:"bank_capacity"`
}

// ExpReceipt is returned when experience changes.
type ExpReceipt struct {
	UserID       string `json:"user_id"`
	Exp          int64  `json:"exp"`
	Level        int    `json:"level"`
	PrevLevel    int    `json:"prev_level"`
	LeveledUp    bool   `json:"leveled_up"`
	BankCapacity int64  `json:"bank_capacity"`
}

// GambleReceipt holds everything needed to reproduce a gamble outcome.
type GambleReceipt struct {
	UserID         string  `json:"user_id"`
	Seed           int64   `json:"seed"`
	Bet            int64   `json:"bet"`
	Roll           int     `json:"roll"`
	WinProbability int     `json:"win_probability"`
	LuckBonus      int     `json:"luck_bonus"`
	Multiplier     float64 `json:"multiplier"`
	Won            bool    `json:"won"`
	Delta          int64   `json:"delta"`
	Money          int64   `json:"money"`
}

// RobReceipt holds everything needed to reproduce a rob outcome.
type RobReceipt struct {
	RobberID      string  `json:"robber_id"`
	VictimID      string  `json:"victim_id"`
	Seed          int64   `json:"seed"`
	Roll          int     `json:"roll"`
	SuccessChance float64 `json:"success_chance"`
	Percent       int     `json:"percent"`
	Success       bool    `json:"success"`
	Stolen        int64   `json:"stolen"`
	Fine          int64   `json:"fine"`
	RobberMoney   int64   `json:"robber_money"`
	VictimMoney   int64   `json:"victim_money"`
}

// ItemReceipt lists the items removed by a use or discard request.
type ItemReceipt struct {
	UserID    string          `json:"user_id"`
	ItemID    string          `json:"item_id"`
	Used      []InventoryItem `json:"used"`
	Discarded []InventoryItem `json:"discarded"`
	MoneyGain int64           `json:"money_gain"`
	ExpGain   int64           `json:"exp_gain"`
}

// PurchaseReceipt is returned by a shop purchase.
type PurchaseReceipt struct {
	UserID string        `json:"user_id"`
	Item   InventoryItem `json:"item"`
	Price  int64         `json:"price"`
	Money  int64         `json:"money"`
}

// GiftReceipt is returned when an item changes owner.
type GiftReceipt struct {
	FromID string        `json:"from_id"`
	ToID   string        `json:"to_id"`
	Item   InventoryItem `json:"item"`
}

// LoanReceipt wraps the transfer executed when a loan is approved.
type LoanReceipt struct {
	Request  PendingLoanRequest `json:"request"`
	Approved bool               `json:"approved"`
	Transfer *TransferReceipt   `json:"transfer,omitempty"`
}

// RepayReceipt is returned when a borrower pays back a lender.
type RepayReceipt struct {
	Transfer    TransferReceipt `json:"transfer"`
	Outstanding int64           `json:"outstanding"`
}
