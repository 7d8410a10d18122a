package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatbot-economy-api/internal/chance"
	"chatbot-economy-api/internal/daily"
	"chatbot-economy-api/internal/inventory"
	"chatbot-economy-api/internal/ledger"
	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/metrics"
	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/pending"
	"chatbot-economy-api/internal/progression"
	"chatbot-economy-api/internal/repository"
	"chatbot-economy-api/pkg/uid"
)

// Actor identifies who issues a privileged command.
type Actor struct {
	ID    string
	Admin bool
}

// EconomyConfig holds the tunables of EconomyService.
type EconomyConfig struct {
	FeeRate        ledger.FeeRate
	GiftMaxAmount  int64
	ExpPerActivity int64
	LoanTTL        time.Duration
	StoreTimeout   time.Duration
}

// DefaultEconomyConfig returns the stock economy settings.
func DefaultEconomyConfig() EconomyConfig {
	return EconomyConfig{
		FeeRate:        500,
		GiftMaxAmount:  10000,
		ExpPerActivity: 5,
		LoanTTL:        5 * time.Minute,
		StoreTimeout:   5 * time.Second,
	}
}

// CatalogItem describes an item kind for the shop listing.
type CatalogItem struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	Duration    time.Duration `json:"duration_ns"`
	Giftable    bool          `json:"giftable"`
	Usable      bool          `json:"usable"`
	ForSale     bool          `json:"for_sale"`
}

// EconomyService is the entry point used by the command layer.
type EconomyService struct {
	store   repository.Backend
	journal repository.JournalRepository
	ledger  *ledger.Ledger
	tracker pending.Tracker
	gate    *daily.Gate
	cfg     EconomyConfig
	now     func() time.Time
}

// NewEconomyService wires the economy. journal may be nil, in which case
// entries go straight to store.
func NewEconomyService(
	store repository.Backend,
	journal repository.JournalRepository,
	tracker pending.Tracker,
	gate *daily.Gate,
	cfg EconomyConfig,
) *EconomyService {
	if journal == nil {
		journal = store
	}
	if gate == nil {
		gate = daily.NewGate(time.UTC)
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &EconomyService{
		store:   store,
		journal: journal,
		ledger:  ledger.New(store),
		tracker: tracker,
		gate:    gate,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (s *EconomyService) SetClock(now func() time.Time) {
	s.now = now
}

// do runs fn under the store timeout and records the outcome.
func (s *EconomyService) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if err != nil && !errors.Is(err, model.ErrStoreUnavailable) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		err = model.Unavailable(op, err)
	}
	metrics.RecordOperation(op, time.Since(start), err)
	return err
}

// record appends journal entries. Failures are logged and never surface.
func (s *EconomyService) record(ctx context.Context, entries ...model.JournalEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.journal.Append(ctx, entries...); err != nil {
		logging.Component("economy").WithError(err).Warnf("Journal append failed for %d entries", len(entries))
	}
}

func (s *EconomyService) entry(userID string, typ model.EntryType, amount, balance int64, counterparty, ref string) model.JournalEntry {
	return model.JournalEntry{
		ID:             uid.New(),
		UserID:         userID,
		Type:           typ,
		Amount:         amount,
		BalanceAfter:   balance,
		CounterpartyID: counterparty,
		Reference:      ref,
		CreatedAt:      s.now(),
	}
}

func requireAdmin(actor Actor) error {
	if !actor.Admin || actor.ID == "" {
		return model.ErrUnauthorized
	}
	return nil
}

// GetAccount returns the user's account, creating it on first sight.
func (s *EconomyService) GetAccount(ctx context.Context, userID string) (model.AccountView, error) {
	var acc model.Account
	err := s.do(ctx, "get_account", func(ctx context.Context) error {
		var err error
		acc, err = s.store.GetOrCreate(ctx, userID)
		return err
	})
	if err != nil {
		return model.AccountView{}, err
	}
	return s.view(acc), nil
}

func (s *EconomyService) view(acc model.Account) model.AccountView {
	active, _ := inventory.RemoveExpired(acc, s.now())
	return model.AccountView{
		UserID:       acc.UserID,
		Money:        acc.Money,
		Bank:         acc.Bank,
		BankCapacity: acc.BankCapacity,
		Level:        acc.Level,
		Exp:          acc.Exp,
		ExpToNext:    progression.ExpToNextLevel(acc.Exp),
		Daily:        acc.Daily,
		Inventory:    active.Inventory,
		Loans:        acc.Loans,
		LastUpdated:  acc.LastUpdated,
	}
}

// Inventory returns the user's active items.
func (s *EconomyService) Inventory(ctx context.Context, userID string) ([]model.InventoryItem, error) {
	view, err := s.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return view.Inventory, nil
}

// Items lists every item kind.
func (s *EconomyService) Items() []CatalogItem {
	kinds := inventory.Catalog()
	out := make([]CatalogItem, 0, len(kinds))
	for _, k := range kinds {
		_, usable := k.(inventory.Usable)
		out = append(out, CatalogItem{
			ID:          k.ID(),
			Name:        k.Name(),
			Description: k.Description(),
			Price:       k.Price(),
			Duration:    k.Duration(),
			Giftable:    k.Giftable(),
			Usable:      usable,
			ForSale:     inventory.Purchasable(k),
		})
	}
	return out
}

// ClaimDaily pays the daily reward once per calendar day.
func (s *EconomyService) ClaimDaily(ctx context.Context, userID string) (model.DailyReceipt, error) {
	var receipt model.DailyReceipt
	err := s.do(ctx, "daily", func(ctx context.Context) error {
		now := s.now()
		_, err := s.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
			next, r, err := s.gate.Claim(acc, now)
			receipt = r
			return next, err
		})
		return err
	})
	if err != nil {
		return model.DailyReceipt{}, err
	}
	s.record(ctx, s.entry(userID, model.EntryDaily, receipt.Reward, receipt.Money, "", ""))
	return receipt, nil
}

// RecordActivity grants the per-message experience.
func (s *EconomyService) RecordActivity(ctx context.Context, userID string) (model.ExpReceipt, error) {
	return s.AddExp(ctx, userID, s.cfg.ExpPerActivity)
}

// AddExp grants exp and re-derives level and bank capacity.
func (s *EconomyService) AddExp(ctx context.Context, userID string, exp int64) (model.ExpReceipt, error) {
	var receipt model.ExpReceipt
	err := s.do(ctx, "add_exp", func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.AddExp(ctx, userID, exp)
		return err
	})
	return receipt, err
}

// Transfer sends money to another user, minus the transfer fee.
func (s *EconomyService) Transfer(ctx context.Context, fromID, toID string, amount int64) (model.TransferReceipt, error) {
	var receipt model.TransferReceipt
	err := s.do(ctx, "transfer", func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.Transfer(ctx, fromID, toID, amount, s.cfg.FeeRate)
		return err
	})
	if err != nil {
		return model.TransferReceipt{}, err
	}
	metrics.RecordDestroyed("fee", receipt.Fee)
	s.recordTransfer(ctx, receipt, model.EntryTransferOut, model.EntryTransferIn)
	return receipt, nil
}

// Gift sends money to another user without a fee.
func (s *EconomyService) Gift(ctx context.Context, fromID, toID string, amount int64) (model.TransferReceipt, error) {
	var receipt model.TransferReceipt
	err := s.do(ctx, "gift", func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.Gift(ctx, fromID, toID, amount, s.cfg.GiftMaxAmount)
		return err
	})
	if err != nil {
		return model.TransferReceipt{}, err
	}
	s.recordTransfer(ctx, receipt, model.EntryGiftOut, model.EntryGiftIn)
	return receipt, nil
}

func (s *EconomyService) recordTransfer(ctx context.Context, r model.TransferReceipt, out, in model.EntryType) {
	ref := ""
	if r.Fee > 0 {
		ref = fmt.Sprintf("fee=%d", r.Fee)
	}
	s.record(ctx,
		s.entry(r.FromID, out, -r.Amount, r.SenderMoney, r.ToID, ref),
		s.entry(r.ToID, in, r.Received, r.ReceiverMoney, r.FromID, ref),
	)
}

// Deposit moves money from wallet to bank.
func (s *EconomyService) Deposit(ctx context.Context, userID string, amount int64) (model.BankReceipt, error) {
	var receipt model.BankReceipt
	err := s.do(ctx, "deposit", func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.Deposit(ctx, userID, amount)
		return err
	})
	if err != nil {
		return model.BankReceipt{}, err
	}
	s.record(ctx, s.entry(userID, model.EntryDeposit, -amount, receipt.Money, "", ""))
	return receipt, nil
}

// Withdraw moves money from bank to wallet.
func (s *EconomyService) Withdraw(ctx context.Context, userID string, amount int64) (model.BankReceipt, error) {
	var receipt model.BankReceipt
	err := s.do(ctx, "withdraw", func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.Withdraw(ctx, userID, amount)
		return err
	})
	if err != nil {
		return model.BankReceipt{}, err
	}
	s.record(ctx, s.entry(userID, model.EntryWithdraw, amount, receipt.Money, "", ""))
	return receipt, nil
}

// Gamble bets money on a roll. A nil seed draws a fresh one; the seed used
// is returned in the receipt.
func (s *EconomyService) Gamble(ctx context.Context, userID string, bet int64, seed *int64) (model.GambleReceipt, error) {
	src, used, err := chance.NewSource(seed)
	if err != nil {
		return model.GambleReceipt{}, err
	}
	draws := chance.DrawGamble(src)

	var receipt model.GambleReceipt
	err = s.do(ctx, "gamble", func(ctx context.Context) error {
		now := s.now()
		_, err := s.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
			next, r, err := chance.ResolveGamble(acc, bet, draws, now)
			receipt = r
			return next, err
		})
		return err
	})
	if err != nil {
		return model.GambleReceipt{}, err
	}
	receipt.Seed = used

	typ := model.EntryGambleLoss
	if receipt.Won {
		typ = model.EntryGambleWin
	}
	s.record(ctx, s.entry(userID, typ, receipt.Delta, receipt.Money, "", fmt.Sprintf("seed=%d", used)))
	return receipt, nil
}

// Rob attempts to steal from victimID.
func (s *EconomyService) Rob(ctx context.Context, robberID, victimID string, seed *int64) (model.RobReceipt, error) {
	if robberID == victimID {
		return model.RobReceipt{}, model.ErrSelfTarget
	}
	src, used, err := chance.NewSource(seed)
	if err != nil {
		return model.RobReceipt{}, err
	}
	draws := chance.DrawRob(src)

	var receipt model.RobReceipt
	err = s.do(ctx, "rob", func(ctx context.Context) error {
		_, _, err := s.store.UpdatePair(ctx, robberID, victimID, func(robber, victim model.Account) (model.Account, model.Account, error) {
			nextRobber, nextVictim, r, err := chance.ResolveRob(robber, victim, draws)
			receipt = r
			return nextRobber, nextVictim, err
		})
		return err
	})
	if err != nil {
		return model.RobReceipt{}, err
	}
	receipt.Seed = used

	ref := fmt.Sprintf("seed=%d", used)
	if receipt.Success {
		s.record(ctx,
			s.entry(robberID, model.EntryRobGain, receipt.Stolen, receipt.RobberMoney, victimID, ref),
			s.entry(victimID, model.EntryRobLoss, -receipt.Stolen, receipt.VictimMoney, robberID, ref),
		)
	} else {
		metrics.RecordDestroyed("fine", receipt.Fine)
		s.record(ctx, s.entry(robberID, model.EntryRobFine, -receipt.Fine, receipt.RobberMoney, victimID, ref))
	}
	return receipt, nil
}

// UseOrDiscardItem removes count active items of itemID, soonest expiry
// first. Usable kinds apply their effect; inert kinds are discarded.
func (s *EconomyService) UseOrDiscardItem(ctx context.Context, userID, itemID string, count int) (model.ItemReceipt, error) {
	kind, err := inventory.Lookup(itemID)
	if err != nil {
		return model.ItemReceipt{}, err
	}
	usable, isUsable := kind.(inventory.Usable)

	var receipt model.ItemReceipt
	var money int64
	err = s.do(ctx, "use_item", func(ctx context.Context) error {
		now := s.now()
		acc, err := s.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
			next, removed, err := inventory.Discard(acc, itemID, count, now)
			if err != nil {
				return acc, err
			}
			r := model.ItemReceipt{UserID: userID, ItemID: itemID}
			if isUsable {
				for range removed {
					effect := usable.Use(&next)
					r.MoneyGain += effect.Money
					r.ExpGain += effect.Exp
				}
				r.Used = removed
			} else {
				r.Discarded = removed
			}
			receipt = r
			return next, nil
		})
		money = acc.Money
		return err
	})
	if err != nil {
		return model.ItemReceipt{}, err
	}
	if receipt.MoneyGain > 0 {
		s.record(ctx, s.entry(userID, model.EntryItemUse, receipt.MoneyGain, money, "", itemID))
	}
	return receipt, nil
}

// BuyItem purchases one item from the shop.
func (s *EconomyService) BuyItem(ctx context.Context, userID, itemID string) (model.PurchaseReceipt, error) {
	kind, err := inventory.Lookup(itemID)
	if err != nil {
		return model.PurchaseReceipt{}, err
	}
	if !inventory.Purchasable(kind) {
		return model.PurchaseReceipt{}, fmt.Errorf("%w: %s is not sold", model.ErrUnknownItem, itemID)
	}

	var receipt model.PurchaseReceipt
	err = s.do(ctx, "buy_item", func(ctx context.Context) error {
		now := s.now()
		_, err := s.store.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
			paid, err := ledger.ApplyDebit(acc, kind.Price())
			if err != nil {
				return acc, err
			}
			next, item, err := inventory.Grant(paid, itemID, now)
			if err != nil {
				return acc, err
			}
			receipt = model.PurchaseReceipt{UserID: userID, Item: item, Price: kind.Price(), Money: next.Money}
			return next, nil
		})
		return err
	})
	if err != nil {
		return model.PurchaseReceipt{}, err
	}
	s.record(ctx, s.entry(userID, model.EntryItemPurchase, -receipt.Price, receipt.Money, "", itemID))
	return receipt, nil
}

// GiftItem hands one active item to another user.
func (s *EconomyService) GiftItem(ctx context.Context, fromID, toID, itemID string) (model.GiftReceipt, error) {
	if fromID == toID {
		return model.GiftReceipt{}, model.ErrSelfTarget
	}
	var receipt model.GiftReceipt
	err := s.do(ctx, "gift_item", func(ctx context.Context) error {
		now := s.now()
		_, _, err := s.store.UpdatePair(ctx, fromID, toID, func(from, to model.Account) (model.Account, model.Account, error) {
			nextFrom, nextTo, item, err := inventory.TransferItem(from, to, itemID, now)
			receipt = model.GiftReceipt{FromID: fromID, ToID: toID, Item: item}
			return nextFrom, nextTo, err
		})
		return err
	})
	if err != nil {
		return model.GiftReceipt{}, err
	}
	return receipt, nil
}

// SetExp replaces a user's experience. Bank money above the new capacity
// moves back to the wallet.
func (s *EconomyService) SetExp(ctx context.Context, actor Actor, userID string, exp int64) (model.ExpReceipt, error) {
	if err := requireAdmin(actor); err != nil {
		return model.ExpReceipt{}, err
	}

	var receipt model.ExpReceipt
	var moved, money int64
	err := s.do(ctx, "set_exp", func(ctx context.Context) error {
		acc, err := s.store.UpdateExisting(ctx, userID, func(acc model.Account) (model.Account, error) {
			next, r, err := ledger.ApplySetExp(acc, exp)
			receipt = r
			moved = next.Money - acc.Money
			return next, err
		})
		money = acc.Money
		return err
	})
	if err != nil {
		return model.ExpReceipt{}, err
	}

	logging.Component("economy").WithField("admin", actor.ID).Infof("Set exp of %s to %d", userID, exp)
	if moved > 0 {
		s.record(ctx, s.entry(userID, model.EntryAdminSetExp, moved, money, actor.ID, "bank excess returned"))
	}
	return receipt, nil
}

// SetMoney replaces a user's wallet balance.
func (s *EconomyService) SetMoney(ctx context.Context, actor Actor, userID string, money int64) (model.AccountView, error) {
	if err := requireAdmin(actor); err != nil {
		return model.AccountView{}, err
	}
	if money < 0 {
		return model.AccountView{}, model.ErrInvalidAmount
	}

	var acc model.Account
	var delta int64
	err := s.do(ctx, "set_money", func(ctx context.Context) error {
		var err error
		acc, err = s.store.UpdateExisting(ctx, userID, func(acc model.Account) (model.Account, error) {
			delta = money - acc.Money
			if delta == 0 {
				return acc, repository.ErrNoChange
			}
			acc.Money = money
			return acc, nil
		})
		return err
	})
	if err != nil {
		return model.AccountView{}, err
	}

	logging.Component("economy").WithField("admin", actor.ID).Infof("Set money of %s to %d", userID, money)
	if delta != 0 {
		s.record(ctx, s.entry(userID, model.EntryAdminSetMoney, delta, acc.Money, actor.ID, ""))
	}
	return s.view(acc), nil
}

// GrantItem gives a fresh item to an existing user.
func (s *EconomyService) GrantItem(ctx context.Context, actor Actor, userID, itemID string) (model.InventoryItem, error) {
	if err := requireAdmin(actor); err != nil {
		return model.InventoryItem{}, err
	}
	if _, err := inventory.Lookup(itemID); err != nil {
		return model.InventoryItem{}, err
	}

	var item model.InventoryItem
	err := s.do(ctx, "grant_item", func(ctx context.Context) error {
		now := s.now()
		_, err := s.store.UpdateExisting(ctx, userID, func(acc model.Account) (model.Account, error) {
			next, granted, err := inventory.Grant(acc, itemID, now)
			item = granted
			return next, err
		})
		return err
	})
	if err != nil {
		return model.InventoryItem{}, err
	}
	logging.Component("economy").WithField("admin", actor.ID).Infof("Granted %s to %s", itemID, userID)
	return item, nil
}

// OfferLoan records a borrower's request for money from lenderID.
func (s *EconomyService) OfferLoan(ctx context.Context, borrowerID, lenderID string, amount int64) (model.PendingLoanRequest, error) {
	if borrowerID == lenderID {
		return model.PendingLoanRequest{}, model.ErrSelfTarget
	}
	if amount <= 0 {
		return model.PendingLoanRequest{}, model.ErrInvalidAmount
	}

	now := s.now()
	req := model.PendingLoanRequest{
		Key:        uid.New(),
		BorrowerID: borrowerID,
		LenderID:   lenderID,
		Amount:     amount,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.LoanTTL),
	}
	err := s.do(ctx, "offer_loan", func(ctx context.Context) error {
		return s.tracker.Create(ctx, req, now)
	})
	if err != nil {
		return model.PendingLoanRequest{}, err
	}
	return req, nil
}

// ResolveLoan lets the lender approve or decline a pending request.
// The request is consumed at most once; on approval the money moves
// without a fee and the borrower records the debt. If the approved
// transfer fails the request is put back so the lender can retry.
func (s *EconomyService) ResolveLoan(ctx context.Context, key, actorID string, approve bool) (model.LoanReceipt, error) {
	var receipt model.LoanReceipt
	err := s.do(ctx, "resolve_loan", func(ctx context.Context) error {
		now := s.now()
		req, err := s.tracker.Consume(ctx, key, actorID, now)
		if err != nil {
			return err
		}
		receipt = model.LoanReceipt{Request: req, Approved: approve}
		if !approve {
			return nil
		}

		_, _, err = s.store.UpdatePair(ctx, req.LenderID, req.BorrowerID, func(lender, borrower model.Account) (model.Account, model.Account, error) {
			nextLender, nextBorrower, transfer, err := ledger.ApplyTransfer(lender, borrower, req.Amount, 0)
			if err != nil {
				return lender, borrower, err
			}
			nextBorrower.Loans = append(nextBorrower.Loans, model.LoanDebt{
				LenderID: req.LenderID,
				Amount:   req.Amount,
				IssuedAt: now,
			})
			receipt.Transfer = &transfer
			return nextLender, nextBorrower, nil
		})
		if err != nil {
			s.restoreLoan(ctx, req, now)
		}
		return err
	})
	if err != nil {
		return model.LoanReceipt{}, err
	}
	if receipt.Transfer != nil {
		s.recordTransfer(ctx, *receipt.Transfer, model.EntryLoanOut, model.EntryLoanIn)
	}
	return receipt, nil
}

// restoreLoan puts a consumed request back after a failed approval.
func (s *EconomyService) restoreLoan(ctx context.Context, req model.PendingLoanRequest, now time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.tracker.Create(ctx, req, now); err != nil {
		logging.Component("economy").WithError(err).Warnf("Could not restore loan request %s", req.Key)
	}
}

// Repay pays back part of what borrowerID owes lenderID.
func (s *EconomyService) Repay(ctx context.Context, borrowerID, lenderID string, amount int64) (model.RepayReceipt, error) {
	var receipt model.RepayReceipt
	err := s.do(ctx, "repay", func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.Repay(ctx, borrowerID, lenderID, amount)
		return err
	})
	if err != nil {
		return model.RepayReceipt{}, err
	}
	s.recordTransfer(ctx, receipt.Transfer, model.EntryRepayOut, model.EntryRepayIn)
	return receipt, nil
}

// Journal returns the user's newest journal entries.
func (s *EconomyService) Journal(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	err := s.do(ctx, "journal", func(ctx context.Context) error {
		var err error
		entries, err = s.journal.ListByUser(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	return entries, nil
}

// Stats describes the store for the admin endpoint.
func (s *EconomyService) Stats(ctx context.Context) (map[string]interface{}, error) {
	var stats map[string]interface{}
	err := s.do(ctx, "stats", func(ctx context.Context) error {
		var err error
		stats, err = s.store.Stats(ctx)
		return err
	})
	return stats, err
}

// Ping checks that the store answers.
func (s *EconomyService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	_, err := s.store.Stats(ctx)
	return err
}
