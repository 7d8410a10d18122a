// Package daily gates the once-per-calendar-day reward.
package daily

import (
	"time"

	"chatbot-economy-api/internal/ledger"
	"chatbot-economy-api/internal/model"
)

// Reward constants: reward = BaseReward + level*RewardPerLevel.
const (
	BaseReward     int64 = 100
	RewardPerLevel int64 = 50
)

// Gate decides daily eligibility against calendar days in a fixed location.
type Gate struct {
	loc *time.Location
}

// NewGate returns a gate whose days start at midnight in loc (UTC when nil).
func NewGate(loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{loc: loc}
}

// MidnightFollowing returns the start of the calendar day after t's day.
func (g *Gate) MidnightFollowing(t time.Time) time.Time {
	local := t.In(g.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, g.loc)
}

// Eligible reports whether acc may claim at now.
func (g *Gate) Eligible(acc model.Account, now time.Time) bool {
	if acc.Daily == nil {
		return true
	}
	return !now.Before(g.MidnightFollowing(*acc.Daily))
}

// Reward is the amount a claim at level pays.
func Reward(level int) int64 {
	return BaseReward + int64(level)*RewardPerLevel
}

// Claim credits the daily reward and records now as the claim time.
func (g *Gate) Claim(acc model.Account, now time.Time) (model.Account, model.DailyReceipt, error) {
	if !g.Eligible(acc, now) {
		next := g.MidnightFollowing(*acc.Daily)
		return acc, model.DailyReceipt{}, &model.AlreadyClaimedError{
			TimeUntilReset: next.Sub(now),
			NextClaim:      next,
		}
	}

	reward := Reward(acc.Level)
	next, err := ledger.ApplyCredit(acc, reward)
	if err != nil {
		return acc, model.DailyReceipt{}, err
	}
	claimed := now
	next.Daily = &claimed

	return next, model.DailyReceipt{
		UserID:    acc.UserID,
		Reward:    reward,
		Money:     next.Money,
		ClaimedAt: now,
		NextClaim: g.MidnightFollowing(now),
	}, nil
}
