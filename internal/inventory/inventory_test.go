package inventory

import (
	"errors"
	"testing"
	"time"

	"chatbot-economy-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func item(id string, expiry *time.Time) model.InventoryItem {
	return model.InventoryItem{ID: id, Name: id, Expiry: expiry}
}

func TestActiveItemsExcludesExpired(t *testing.T) {
	acc := model.Account{Inventory: []model.InventoryItem{
		item(LuckyCharm, at(time.Hour)),
		item(LuckyCharm, at(-time.Hour)),
		item(LuckyCharm, at(0)),
		item(LuckyCharm, nil),
		item(VIP, at(time.Hour)),
	}}

	active := ActiveItems(acc, LuckyCharm, now)
	require.Len(t, active, 2)
	assert.Equal(t, 2, Count(acc, LuckyCharm, now))
	assert.Equal(t, 1, Count(acc, VIP, now))
	assert.Equal(t, 0, Count(acc, ExpBoost, now))
}

func TestRemoveExpiredIsIdempotent(t *testing.T) {
	acc := model.Account{Inventory: []model.InventoryItem{
		item(LuckyCharm, at(-time.Minute)),
		item(VIP, at(time.Hour)),
		item(ExpBoost, nil),
		item(LuckyCharm, at(0)),
	}}

	once, removed := RemoveExpired(acc, now)
	assert.Equal(t, 2, removed)
	require.Len(t, once.Inventory, 2)
	assert.Equal(t, VIP, once.Inventory[0].ID)
	assert.Equal(t, ExpBoost, once.Inventory[1].ID)

	twice, removedAgain := RemoveExpired(once, now)
	assert.Equal(t, 0, removedAgain)
	assert.Equal(t, once, twice)

	assert.Len(t, acc.Inventory, 4, "input must not be modified")
}

func TestDiscardPrefersSoonestExpiry(t *testing.T) {
	acc := model.Account{Inventory: []model.InventoryItem{
		item(LuckyCharm, nil),
		item(LuckyCharm, at(5*time.Hour)),
		item(LuckyCharm, at(time.Hour)),
	}}

	out, removed, err := Discard(acc, LuckyCharm, 2, now)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	assert.Equal(t, *at(time.Hour), *removed[0].Expiry)
	assert.Equal(t, *at(5*time.Hour), *removed[1].Expiry)
	require.Len(t, out.Inventory, 1)
	assert.Nil(t, out.Inventory[0].Expiry, "permanent item is removed last")
}

func TestDiscardIgnoresExpiredAndFailsWhenShort(t *testing.T) {
	acc := model.Account{Inventory: []model.InventoryItem{
		item(LuckyCharm, at(-time.Hour)),
		item(LuckyCharm, at(time.Hour)),
	}}

	_, _, err := Discard(acc, LuckyCharm, 2, now)
	assert.True(t, errors.Is(err, model.ErrInsufficientItems))

	_, _, err = Discard(acc, LuckyCharm, 0, now)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestTransferItem(t *testing.T) {
	from := model.Account{UserID: "a", Inventory: []model.InventoryItem{
		item(LuckyCharm, at(2*time.Hour)),
		item(LuckyCharm, at(time.Hour)),
	}}
	to := model.Account{UserID: "b", Inventory: []model.InventoryItem{}}

	newFrom, newTo, moved, err := TransferItem(from, to, LuckyCharm, now)
	require.NoError(t, err)
	assert.Equal(t, *at(time.Hour), *moved.Expiry)
	assert.Len(t, newFrom.Inventory, 1)
	require.Len(t, newTo.Inventory, 1)
	assert.Equal(t, LuckyCharm, newTo.Inventory[0].ID)
	assert.Len(t, from.Inventory, 2)
	assert.Empty(t, to.Inventory)
}

func TestTransferItemErrors(t *testing.T) {
	to := model.Account{UserID: "b"}

	_, _, _, err := TransferItem(model.Account{}, to, LuckyCharm, now)
	assert.ErrorIs(t, err, model.ErrItemNotFound)

	expired := model.Account{Inventory: []model.InventoryItem{item(LuckyCharm, at(-time.Second))}}
	_, _, _, err = TransferItem(expired, to, LuckyCharm, now)
	assert.ErrorIs(t, err, model.ErrItemExpired)

	for _, id := range []string{VIP, BankUpgrade} {
		acc := model.Account{Inventory: []model.InventoryItem{item(id, nil)}}
		_, _, _, err = TransferItem(acc, to, id, now)
		assert.ErrorIs(t, err, model.ErrItemNotGiftable, id)
	}

	_, _, _, err = TransferItem(expired, to, "sword", now)
	assert.ErrorIs(t, err, model.ErrUnknownItem)
}

func TestGrantSetsExpiryFromKind(t *testing.T) {
	acc, charm, err := Grant(model.NewAccount("a", now), LuckyCharm, now)
	require.NoError(t, err)
	require.NotNil(t, charm.Expiry)
	assert.Equal(t, now.Add(24*time.Hour), *charm.Expiry)

	acc, boost, err := Grant(acc, ExpBoost, now)
	require.NoError(t, err)
	assert.Nil(t, boost.Expiry)
	assert.Len(t, acc.Inventory, 2)
}

func TestUsableCapability(t *testing.T) {
	for _, k := range Catalog() {
		_, usable := k.(Usable)
		switch k.ID() {
		case ExpBoost, MoneyBag:
			assert.True(t, usable, k.ID())
		default:
			assert.False(t, usable, k.ID())
		}
	}

	kind, err := Lookup(ExpBoost)
	require.NoError(t, err)
	acc := model.NewAccount("a", now)
	acc.Exp = 90
	effect := kind.(Usable).Use(&acc)
	assert.Equal(t, int64(50), effect.Exp)
	assert.Equal(t, 3, acc.Level)
	assert.Equal(t, int64(10000), acc.BankCapacity)
}
