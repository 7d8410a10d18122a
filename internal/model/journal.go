package model

import "time"

// EntryType categorises a journal entry.
type EntryType string

// Journal entry types.
const (
	EntryDaily         EntryType = "daily"
	EntryTransferOut   EntryType = "transfer_out"
	EntryTransferIn    EntryType = "transfer_in"
	EntryGiftOut       EntryType = "gift_out"
	EntryGiftIn        EntryType = "gift_in"
	EntryDeposit       EntryType = "deposit"
	EntryWithdraw      EntryType = "withdraw"
	EntryGambleWin     EntryType = "gamble_win"
	EntryGambleLoss    EntryType = "gamble_loss"
	EntryRobGain       EntryType = "rob_gain"
	EntryRobLoss       EntryType = "rob_loss"
	EntryRobFine       EntryType = "rob_fine"
	EntryLoanOut       EntryType = "loan_out"
	EntryLoanIn        EntryType = "loan_in"
	EntryRepayOut      EntryType = "repay_out"
	EntryRepayIn       EntryType = "repay_in"
	EntryItemPurchase  EntryType = "item_purchase"
	EntryItemUse       EntryType = "item_use"
	EntryAdminSetMoney EntryType = "admin_set_money"
	EntryAdminSetExp   EntryType = "admin_set_exp"
)

// JournalEntry records one balance change on one account.
// Amount is the signed delta applied to money; BalanceAfter is money after it.
type JournalEntry struct {
	ID             string    `json:"id" bson:"_id"`
	UserID         string    `json:"user_id" bson:"user_id"`
	Type           EntryType `json:"type" bson:"type"`
	Amount         int64     `json:"amount" bson:"amount"`
	BalanceAfter   int64     `json:"balance_after" bson:"balance_after"`
	CounterpartyID string    `json:"counterparty_id,omitempty" bson:"counterparty_id,omitempty"`
	Reference      string    `json:"reference,omitempty" bson:"reference,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
