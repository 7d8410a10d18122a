// Package inventory implements the time-bounded item list held by an account.
//
// Functions never modify the account they are given; they return an updated
// copy. Expired items (expiry <= now) are inert and never counted.
package inventory

import (
	"fmt"
	"sort"
	"time"

	"chatbot-economy-api/internal/model"
)

// ActiveItems returns the items with itemID that are still active at now.
func ActiveItems(acc model.Account, itemID string, now time.Time) []model.InventoryItem {
	var out []model.InventoryItem
	for _, item := range acc.Inventory {
		if item.ID == itemID && item.ActiveAt(now) {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Count returns the number of active items with itemID.
func Count(acc model.Account, itemID string, now time.Time) int {
	n := 0
	for _, item := range acc.Inventory {
		if item.ID == itemID && item.ActiveAt(now) {
			n++
		}
	}
	return n
}

// RemoveExpired drops every item whose expiry is at or before now.
// The second return value is the number of dropped items.
func RemoveExpired(acc model.Account, now time.Time) (model.Account, int) {
	out := acc.Clone()
	kept := out.Inventory[:0]
	for _, item := range out.Inventory {
		if item.ActiveAt(now) {
			kept = append(kept, item)
		}
	}
	removed := len(out.Inventory) - len(kept)
	out.Inventory = kept
	return out, removed
}

// Discard removes count active items with itemID, soonest expiry first.
// Permanent items are removed last.
func Discard(acc model.Account, itemID string, count int, now time.Time) (model.Account, []model.InventoryItem, error) {
	if count <= 0 {
		return acc, nil, model.ErrInvalidAmount
	}

	candidates := activeIndexes(acc, itemID, now)
	if len(candidates) < count {
		return acc, nil, fmt.Errorf("%w: have %d %s, need %d", model.ErrInsufficientItems, len(candidates), itemID, count)
	}

	out := acc.Clone()
	drop := make(map[int]bool, count)
	removed := make([]model.InventoryItem, 0, count)
	for _, idx := range candidates[:count] {
		drop[idx] = true
		removed = append(removed, out.Inventory[idx])
	}
	out.Inventory = without(out.Inventory, drop)
	return out, removed, nil
}

// TransferItem moves one active instance of itemID from one account to another.
func TransferItem(from, to model.Account, itemID string, now time.Time) (model.Account, model.Account, model.InventoryItem, error) {
	kind, err := Lookup(itemID)
	if err != nil {
		return from, to, model.InventoryItem{}, err
	}

	owned := false
	for _, item := range from.Inventory {
		if item.ID == itemID {
			owned = true
			break
		}
	}
	if !owned {
		return from, to, model.InventoryItem{}, fmt.Errorf("%w: %s", model.ErrItemNotFound, itemID)
	}

	candidates := activeIndexes(from, itemID, now)
	if len(candidates) == 0 {
		return from, to, model.InventoryItem{}, fmt.Errorf("%w: %s", model.ErrItemExpired, itemID)
	}
	if !kind.Giftable() {
		return from, to, model.InventoryItem{}, fmt.Errorf("%w: %s", model.ErrItemNotGiftable, itemID)
	}

	newFrom := from.Clone()
	newTo := to.Clone()
	idx := candidates[0]
	item := newFrom.Inventory[idx]
	newFrom.Inventory = without(newFrom.Inventory, map[int]bool{idx: true})
	newTo.Inventory = append(newTo.Inventory, item.Clone())
	return newFrom, newTo, item, nil
}

// Grant adds a fresh instance of itemID to the account.
func Grant(acc model.Account, itemID string, now time.Time) (model.Account, model.InventoryItem, error) {
	kind, err := Lookup(itemID)
	if err != nil {
		return acc, model.InventoryItem{}, err
	}
	out := acc.Clone()
	item := NewItem(kind, now)
	out.Inventory = append(out.Inventory, item)
	return out, item.Clone(), nil
}

// activeIndexes returns the indexes of active itemID instances ordered by
// expiry, soonest first and permanent last. Ties keep inventory order.
func activeIndexes(acc model.Account, itemID string, now time.Time) []int {
	var idx []int
	for i, item := range acc.Inventory {
		if item.ID == itemID && item.ActiveAt(now) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := acc.Inventory[idx[a]].Expiry, acc.Inventory[idx[b]].Expiry
		switch {
		case ea == nil:
			return false
		case eb == nil:
			return true
		default:
			return ea.Before(*eb)
		}
	})
	return idx
}

func without(items []model.InventoryItem, drop map[int]bool) []model.InventoryItem {
	out := make([]model.InventoryItem, 0, len(items)-len(drop))
	for i, item := range items {
		if !drop[i] {
			out = append(out, item)
		}
	}
	return out
}
