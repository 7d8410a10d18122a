package daily

import (
	"errors"
	"testing"
	"time"

	"chatbot-economy-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMidnightFollowing(t *testing.T) {
	g := NewGate(nil)
	got := g.MidnightFollowing(time.Date(2024, 2, 28, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	got = g.MidnightFollowing(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestMidnightFollowingUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	g := NewGate(loc)

	// 18:00 UTC is already 01:00 the next day at UTC+7.
	got := g.MidnightFollowing(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC))
	assert.True(t, got.Equal(time.Date(2024, 5, 3, 0, 0, 0, 0, loc)))
}

func TestClaimBoundary(t *testing.T) {
	g := NewGate(time.UTC)
	acc := model.NewAccount("u", time.Now())

	lateNight := time.Date(2024, 7, 1, 23, 59, 59, 0, time.UTC)
	claimed, receipt, err := g.Claim(acc, lateNight)
	require.NoError(t, err)
	assert.Equal(t, int64(150), receipt.Reward)
	assert.Equal(t, int64(250), claimed.Money)
	require.NotNil(t, claimed.Daily)

	// Two seconds later it is a new calendar day.
	again, _, err := g.Claim(claimed, time.Date(2024, 7, 2, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)

	_, _, err = g.Claim(again, time.Date(2024, 7, 2, 23, 59, 59, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAlreadyClaimed)

	var claimErr *model.AlreadyClaimedError
	require.True(t, errors.As(err, &claimErr))
	assert.Equal(t, time.Second, claimErr.TimeUntilReset)
	assert.Equal(t, time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC), claimErr.NextClaim)
}

func TestRewardScalesWithLevel(t *testing.T) {
	assert.Equal(t, int64(150), Reward(1))
	assert.Equal(t, int64(600), Reward(10))

	g := NewGate(nil)
	acc := model.NewAccount("u", time.Now())
	acc.Level = 4
	_, receipt, err := g.Claim(acc, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(300), receipt.Reward)
}

func TestEligible(t *testing.T) {
	g := NewGate(nil)
	acc := model.NewAccount("u", time.Now())
	assert.True(t, g.Eligible(acc, time.Now()))

	claimed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	acc.Daily = &claimed
	assert.False(t, g.Eligible(acc, claimed.Add(13*time.Hour)))
	assert.True(t, g.Eligible(acc, claimed.Add(14*time.Hour)))
}
