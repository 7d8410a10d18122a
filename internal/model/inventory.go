package model

import "time"

// InventoryItem is a single owned instance of an item kind.
// A nil Expiry means the item never perishes.
type InventoryItem struct {
	ID          string     `json:"id" bson:"id"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description" bson:"description"`
	Expiry      *time.Time `json:"expiry,omitempty" bson:"expiry,omitempty"`
	AcquiredAt  time.Time  `json:"acquired_at" bson:"acquired_at"`
}

// Clone returns a copy that does not share the expiry pointer.
func (i InventoryItem) Clone() InventoryItem {
	out := i
	if i.Expiry != nil {
		e := *i.Expiry
		out.Expiry = &e
	}
	return out
}

// ActiveAt reports whether the item still grants its effect at now.
func (i InventoryItem) ActiveAt(now time.Time) bool {
	return i.Expiry == nil || i.Expiry.After(now)
}
