package inventory

import (
	"fmt"
	"sort"
	"time"

	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/progression"
)

// Item ids known to the economy.
const (
	LuckyCharm  = "luckycharm"
	VIP         = "vip"
	BankUpgrade = "bankupgrade"
	ExpBoost    = "expboost"
	MoneyBag    = "moneybag"
)

// Kind describes one item type. The set of kinds is closed: Lookup only
// returns the definitions registered in catalog.
type Kind interface {
	ID() string
	Name() string
	Description() string
	// Duration is the lifetime of a new instance; zero means permanent.
	Duration() time.Duration
	Price() int64
	Giftable() bool
}

// Effect is what using an item did to the account.
type Effect struct {
	Money int64
	Exp   int64
}

// Usable is implemented by kinds that do something when consumed.
// Inert kinds do not implement it.
type Usable interface {
	Kind
	Use(acc *model.Account) Effect
}

type baseKind struct {
	id, name, description string
	duration              time.Duration
	price                 int64
	giftable              bool
}

func (k baseKind) ID() string              { return k.id }
func (k baseKind) Name() string            { return k.name }
func (k baseKind) Description() string     { return k.description }
func (k baseKind) Duration() time.Duration { return k.duration }
func (k baseKind) Price() int64            { return k.price }
func (k baseKind) Giftable() bool          { return k.giftable }

// luckyCharm raises gamble odds while held; its effect is passive.
type luckyCharm struct{ baseKind }

// vipPass is a cosmetic marker.
type vipPass struct{ baseKind }

// bankUpgrade is kept for accounts that still hold it; capacity derives from level.
type bankUpgrade struct{ baseKind }

type expBoost struct {
	baseKind
	exp int64
}

func (k expBoost) Use(acc *model.Account) Effect {
	acc.Exp += k.exp
	progression.Apply(acc)
	return Effect{Exp: k.exp}
}

type moneyBag struct {
	baseKind
	money int64
}

func (k moneyBag) Use(acc *model.Account) Effect {
	acc.Money += k.money
	return Effect{Money: k.money}
}

var catalog = map[string]Kind{
	LuckyCharm: luckyCharm{baseKind{
		id: LuckyCharm, name: "Lucky Charm",
		description: "Adds 10% gamble win chance while active (up to 3 charms).",
		duration:    24 * time.Hour, price: 500, giftable: true,
	}},
	VIP: vipPass{baseKind{
		id: VIP, name: "VIP Pass",
		description: "Shows off VIP status for 30 days.",
		duration:    30 * 24 * time.Hour, price: 10000, giftable: false,
	}},
	BankUpgrade: bankUpgrade{baseKind{
		id: BankUpgrade, name: "Bank Upgrade",
		description: "Legacy upgrade token. Bank capacity now grows with level.",
		price:       0, giftable: false,
	}},
	ExpBoost: expBoost{baseKind{
		id: ExpBoost, name: "EXP Boost",
		description: "Grants 50 EXP when used.",
		price:       300, giftable: true,
	}, 50},
	MoneyBag: moneyBag{baseKind{
		id: MoneyBag, name: "Money Bag",
		description: "Opens into 250 coins.",
		price:       0, giftable: true,
	}, 250},
}

// Lookup returns the kind registered under id.
func Lookup(id string) (Kind, error) {
	k, ok := catalog[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownItem, id)
	}
	return k, nil
}

// Catalog returns every kind ordered by id.
func Catalog() []Kind {
	out := make([]Kind, 0, len(catalog))
	for _, k := range catalog {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Purchasable reports whether the shop sells the kind.
func Purchasable(k Kind) bool {
	return k.Price() > 0
}

// NewItem creates an instance of k acquired at now.
func NewItem(k Kind, now time.Time) model.InventoryItem {
	item := model.InventoryItem{
		ID:          k.ID(),
		Name:        k.Name(),
		Description: k.Description(),
		AcquiredAt:  now,
	}
	if d := k.Duration(); d > 0 {
		exp := now.Add(d)
		item.Expiry = &exp
	}
	return item
}
