package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatbot-economy-api/internal/model"
)

// applyMutation runs fn on a copy of current and stamps the result.
// write is false when fn asked to skip the write.
func applyMutation(current model.Account, fn MutateFunc, now time.Time) (next model.Account, write bool, err error) {
	next, err = fn(current.Clone())
	if errors.Is(err, ErrNoChange) {
		return current, false, nil
	}
	if err != nil {
		return current, false, err
	}
	stamp(&next, current, now)
	return next, true, nil
}

// applyPair is applyMutation for two accounts.
func applyPair(first, second model.Account, fn PairMutateFunc, now time.Time) (model.Account, model.Account, bool, error) {
	nextFirst, nextSecond, err := fn(first.Clone(), second.Clone())
	if errors.Is(err, ErrNoChange) {
		return first, second, false, nil
	}
	if err != nil {
		return first, second, false, err
	}
	stamp(&nextFirst, first, now)
	stamp(&nextSecond, second, now)
	return nextFirst, nextSecond, true, nil
}

func stamp(next *model.Account, current model.Account, now time.Time) {
	next.UserID = current.UserID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	next.LastUpdated = now
	if next.Inventory == nil {
		next.Inventory = []model.InventoryItem{}
	}
}

func validateID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

func validatePair(firstID, secondID string) error {
	if err := validateID(firstID); err != nil {
		return err
	}
	if err := validateID(secondID); err != nil {
		return err
	}
	if firstID == secondID {
		return model.ErrSelfTarget
	}
	return nil
}

func encodeAccount(acc model.Account) ([]byte, error) {
	payload, err := json.Marshal(acc)
	if err != nil {
		return nil, fmt.Errorf("marshal account: %w", err)
	}
	return payload, nil
}

func decodeAccount(payload []byte) (model.Account, error) {
	var acc model.Account
	if err := json.Unmarshal(payload, &acc); err != nil {
		return model.Account{}, fmt.Errorf("unmarshal account: %w", err)
	}
	if acc.Inventory == nil {
		acc.Inventory = []model.InventoryItem{}
	}
	return acc, nil
}
