package model

import "time"

// Starting values for a freshly created account.
const (
	DefaultMoney        int64 = 100
	DefaultBank         int64 = 0
	DefaultBankCapacity int64 = 5000
	DefaultLevel        int   = 1
)

// Account is the authoritative economy record of a single chat user.
type Account struct {
	UserID       string          `json:"user_id" bson:"_id"`
	Money        int64           `json:"money" bson:"money"`
	Bank         int64           `json:"bank" bson:"bank"`
	BankCapacity int64           `json:"bank_capacity" bson:"bank_capacity"`
	Level        int             `json:"level" bson:"level"`
	Exp          int64           `json:"exp" bson:"exp"`
	Daily        *time.Time      `json:"daily,omitempty" bson:"daily,omitempty"`
	Inventory    []InventoryItem `json:"inventory" bson:"inventory"`
	Loans        []LoanDebt      `json:"loans,omitempty" bson:"loans,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	LastUpdated  time.Time       `json:"last_updated" bson:"last_updated"`
	Version      int64           `json:"version" bson:"version"`
}

// LoanDebt is an outstanding amount the account owner owes to a lender.
type LoanDebt struct {
	LenderID string    `json:"lender_id" bson:"lender_id"`
	Amount   int64     `json:"amount" bson:"amount"`
	IssuedAt time.Time `json:"issued_at" bson:"issued_at"`
}

// NewAccount returns an account initialised with the default balances.
func NewAccount(userID string, now time.Time) Account {
	return Account{
		UserID:       userID,
		Money:        DefaultMoney,
		Bank:         DefaultBank,
		BankCapacity: DefaultBankCapacity,
		Level:        DefaultLevel,
		Exp:          0,
		Inventory:    []InventoryItem{},
		CreatedAt:    now,
		LastUpdated:  now,
	}
}

// Clone returns a deep copy so mutators never share slices with stored state.
func (a Account) Clone() Account {
	out := a
	if a.Daily != nil {
		d := *a.Daily
		out.Daily = &d
	}
	out.Inventory = make([]InventoryItem, len(a.Inventory))
	for i, item := range a.Inventory {
		out.Inventory[i] = item.Clone()
	}
	if a.Loans != nil {
		out.Loans = make([]LoanDebt, len(a.Loans))
		copy(out.Loans, a.Loans)
	}
	return out
}

// CanAfford reports whether the spendable balance covers amount.
func (a Account) CanAfford(amount int64) bool {
	return a.Money >= amount
}

// Debt returns the outstanding amount owed to lenderID.
func (a Account) Debt(lenderID string) int64 {
	var total int64
	for _, l := range a.Loans {
		if l.LenderID == lenderID {
			total += l.Amount
		}
	}
	return total
}

// AccountView is the read-only projection handed to the command layer.
type AccountView struct {
	UserID       string          `json:"user_id"`
	Money        int64           `json:"money"`
	Bank         int64           `json:"bank"`
	BankCapacity int64           `json:"bank_capacity"`
	Level        int             `json:"level"`
	Exp          int64           `json:"exp"`
	ExpToNext    int64           `json:"exp_to_next"`
	Daily        *time.Time      `json:"daily,omitempty"`
	Inventory    []InventoryItem `json:"inventory"`
	Loans        []LoanDebt      `json:"loans,omitempty"`
	LastUpdated  time.Time       `json:"last_updated"`
}
