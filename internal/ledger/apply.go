package ledger

import (
	"fmt"
	"math"

	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/progression"
)

// FeeRate is a transfer fee in basis points (1/10000).
type FeeRate int64

// MaxFeeRate is a 100% fee.
const MaxFeeRate FeeRate = 10000

// FeeRateFromFloat converts a fraction such as 0.05 to basis points.
func FeeRateFromFloat(rate float64) (FeeRate, error) {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return 0, fmt.Errorf("fee rate %v must be within [0, 1]", rate)
	}
	return FeeRate(math.Round(rate * float64(MaxFeeRate))), nil
}

// Fee returns floor(amount * rate) without overflowing for large amounts.
func (r FeeRate) Fee(amount int64) int64 {
	if amount <= 0 || r <= 0 {
		return 0
	}
	bps := int64(r)
	return (amount/int64(MaxFeeRate))*bps + (amount%int64(MaxFeeRate))*bps/int64(MaxFeeRate)
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return model.ErrInvalidAmount
	}
	return nil
}

// ApplyCredit adds amount to the wallet.
func ApplyCredit(acc model.Account, amount int64) (model.Account, error) {
	if err := checkAmount(amount); err != nil {
		return acc, err
	}
	if acc.Money > math.MaxInt64-amount {
		return acc, fmt.Errorf("%w: balance would overflow", model.ErrInvalidAmount)
	}
	acc.Money += amount
	return acc, nil
}

// ApplyDebit removes amount from the wallet.
func ApplyDebit(acc model.Account, amount int64) (model.Account, error) {
	if err := checkAmount(amount); err != nil {
		return acc, err
	}
	if !acc.CanAfford(amount) {
		return acc, model.ErrInsufficientFunds
	}
	acc.Money -= amount
	return acc, nil
}

// ApplyTransfer moves amount from one wallet to another, destroying the fee.
func ApplyTransfer(from, to model.Account, amount int64, rate FeeRate) (model.Account, model.Account, model.TransferReceipt, error) {
	if from.UserID == to.UserID {
		return from, to, model.TransferReceipt{}, model.ErrSelfTarget
	}
	fee := rate.Fee(amount)
	received := amount - fee

	nextFrom, err := ApplyDebit(from, amount)
	if err != nil {
		return from, to, model.TransferReceipt{}, err
	}
	nextTo := to
	if received > 0 {
		nextTo, err = ApplyCredit(to, received)
		if err != nil {
			return from, to, model.TransferReceipt{}, err
		}
	}

	return nextFrom, nextTo, model.TransferReceipt{
		FromID:        from.UserID,
		ToID:          to.UserID,
		Amount:        amount,
		Fee:           fee,
		Received:      received,
		SenderMoney:   nextFrom.Money,
		ReceiverMoney: nextTo.Money,
	}, nil
}

// ApplyDeposit moves amount from the wallet into the bank.
func ApplyDeposit(acc model.Account, amount int64) (model.Account, error) {
	if err := checkAmount(amount); err != nil {
		return acc, err
	}
	if !acc.CanAfford(amount) {
		return acc, model.ErrInsufficientFunds
	}
	if acc.Bank+amount > acc.BankCapacity {
		return acc, model.ErrBankOverflow
	}
	acc.Money -= amount
	acc.Bank += amount
	return acc, nil
}

// ApplyWithdraw moves amount from the bank back to the wallet.
func ApplyWithdraw(acc model.Account, amount int64) (model.Account, error) {
	if err := checkAmount(amount); err != nil {
		return acc, err
	}
	if acc.Bank < amount {
		return acc, model.ErrInsufficientBankFunds
	}
	acc.Bank -= amount
	acc.Money += amount
	return acc, nil
}

// ApplyExp adds experience and re-derives level and bank capacity.
func ApplyExp(acc model.Account, exp int64) (model.Account, model.ExpReceipt, error) {
	if err := checkAmount(exp); err != nil {
		return acc, model.ExpReceipt{}, err
	}
	if acc.Exp > math.MaxInt64-exp {
		acc.Exp = math.MaxInt64
	} else {
		acc.Exp += exp
	}
	prev := progression.Apply(&acc)
	return acc, expReceipt(acc, prev), nil
}

// ApplySetExp replaces experience. When the new capacity is below the
// bank balance, the excess moves back to the wallet.
func ApplySetExp(acc model.Account, exp int64) (model.Account, model.ExpReceipt, error) {
	if exp < 0 {
		return acc, model.ExpReceipt{}, model.ErrInvalidAmount
	}
	acc.Exp = exp
	prev := progression.Apply(&acc)
	if acc.Bank > acc.BankCapacity {
		acc.Money += acc.Bank - acc.BankCapacity
		acc.Bank = acc.BankCapacity
	}
	return acc, expReceipt(acc, prev), nil
}

func expReceipt(acc model.Account, prev int) model.ExpReceipt {
	return model.ExpReceipt{
		UserID:       acc.UserID,
		Exp:          acc.Exp,
		Level:        acc.Level,
		PrevLevel:    prev,
		LeveledUp:    acc.Level > prev,
		BankCapacity: acc.BankCapacity,
	}
}

// ApplyRepay pays amount of the debt owed to the lender, oldest loan first.
func ApplyRepay(borrower, lender model.Account, amount int64) (model.Account, model.Account, model.RepayReceipt, error) {
	owed := borrower.Debt(lender.UserID)
	if owed == 0 {
		return borrower, lender, model.RepayReceipt{}, model.ErrLoanNotFound
	}
	if amount <= 0 || amount > owed {
		return borrower, lender, model.RepayReceipt{}, fmt.Errorf("%w: outstanding debt is %d", model.ErrInvalidAmount, owed)
	}

	nextBorrower, nextLender, transfer, err := ApplyTransfer(borrower, lender, amount, 0)
	if err != nil {
		return borrower, lender, model.RepayReceipt{}, err
	}

	remaining := amount
	loans := make([]model.LoanDebt, 0, len(nextBorrower.Loans))
	for _, loan := range nextBorrower.Loans {
		if loan.LenderID == lender.UserID && remaining > 0 {
			paid := min(loan.Amount, remaining)
			loan.Amount -= paid
			remaining -= paid
		}
		if loan.Amount > 0 {
			loans = append(loans, loan)
		}
	}
	nextBorrower.Loans = loans

	return nextBorrower, nextLender, model.RepayReceipt{
		Transfer:    transfer,
		Outstanding: owed - amount,
	}, nil
}
