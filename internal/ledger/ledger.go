// Package ledger implements the money-moving primitives of the economy.
//
// Every operation runs as a single mutation through the account store, so
// no money is created or destroyed except the explicit transfer fee.
package ledger

import (
	"context"
	"fmt"

	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/repository"
)

// Ledger executes ledger operations against an AccountStore.
type Ledger struct {
	store repository.AccountStore
}

// New creates a Ledger.
func New(store repository.AccountStore) *Ledger {
	return &Ledger{store: store}
}

// Credit adds amount to the user's wallet.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64) (model.Account, error) {
	return l.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		return ApplyCredit(acc, amount)
	})
}

// Debit removes amount from the user's wallet.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int64) (model.Account, error) {
	return l.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		return ApplyDebit(acc, amount)
	})
}

// Transfer moves amount between two users; floor(amount*rate) is destroyed.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount int64, rate FeeRate) (model.TransferReceipt, error) {
	if fromID == toID {
		return model.TransferReceipt{}, model.ErrSelfTarget
	}
	if err := checkAmount(amount); err != nil {
		return model.TransferReceipt{}, err
	}

	var receipt model.TransferReceipt
	_, _, err := l.store.UpdatePair(ctx, fromID, toID, func(from, to model.Account) (model.Account, model.Account, error) {
		nextFrom, nextTo, r, err := ApplyTransfer(from, to, amount, rate)
		receipt = r
		return nextFrom, nextTo, err
	})
	if err != nil {
		return model.TransferReceipt{}, err
	}
	return receipt, nil
}

// Gift is a fee-free transfer capped at maxAmount.
func (l *Ledger) Gift(ctx context.Context, fromID, toID string, amount, maxAmount int64) (model.TransferReceipt, error) {
	if maxAmount > 0 && amount > maxAmount {
		return model.TransferReceipt{}, fmt.Errorf("%w: gifts are limited to %d", model.ErrInvalidAmount, maxAmount)
	}
	return l.Transfer(ctx, fromID, toID, amount, 0)
}

// Deposit moves amount from wallet to bank.
func (l *Ledger) Deposit(ctx context.Context, userID string, amount int64) (model.BankReceipt, error) {
	acc, err := l.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		return ApplyDeposit(acc, amount)
	})
	if err != nil {
		return model.BankReceipt{}, err
	}
	return bankReceipt(acc, amount), nil
}

// Withdraw moves amount from bank to wallet.
func (l *Ledger) Withdraw(ctx context.Context, userID string, amount int64) (model.BankReceipt, error) {
	acc, err := l.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		return ApplyWithdraw(acc, amount)
	})
	if err != nil {
		return model.BankReceipt{}, err
	}
	return bankReceipt(acc, amount), nil
}

// AddExp grants activity experience.
func (l *Ledger) AddExp(ctx context.Context, userID string, exp int64) (model.ExpReceipt, error) {
	var receipt model.ExpReceipt
	_, err := l.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		next, r, err := ApplyExp(acc, exp)
		receipt = r
		return next, err
	})
	if err != nil {
		return model.ExpReceipt{}, err
	}
	return receipt, nil
}

// Repay pays back part of a loan from borrower to lender.
func (l *Ledger) Repay(ctx context.Context, borrowerID, lenderID string, amount int64) (model.RepayReceipt, error) {
	if borrowerID == lenderID {
		return model.RepayReceipt{}, model.ErrSelfTarget
	}
	var receipt model.RepayReceipt
	_, _, err := l.store.UpdatePair(ctx, borrowerID, lenderID, func(borrower, lender model.Account) (model.Account, model.Account, error) {
		nextBorrower, nextLender, r, err := ApplyRepay(borrower, lender, amount)
		receipt = r
		return nextBorrower, nextLender, err
	})
	if err != nil {
		return model.RepayReceipt{}, err
	}
	return receipt, nil
}

func bankReceipt(acc model.Account, amount int64) model.BankReceipt {
	return model.BankReceipt{
		UserID:       acc.UserID,
		Amount:       amount,
		Money:        acc.Money,
		Bank:         acc.Bank,
		BankCapacity: acc.BankCapacity,
	}
}
