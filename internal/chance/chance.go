// Package chance resolves gamble and rob outcomes.
//
// Random draws are taken up front from an injectable Source and the
// outcomes are pure functions of (account state, draws). Given the same
// seed and the same state, a gamble or rob always resolves the same way.
package chance

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"time"

	"chatbot-economy-api/internal/inventory"
	"chatbot-economy-api/internal/ledger"
	"chatbot-economy-api/internal/model"
)

// Game balance constants.
const (
	MinBet         int64 = 50
	BaseWinChance        = 45
	LuckPerCharm         = 10
	MaxLuckyCharms       = 3

	MinRobberMoney int64 = 500
	MinVictimMoney int64 = 100
	MinRobChance         = 10.0
	MaxRobChance         = 70.0

	MinStealPercent = 10
	MaxStealPercent = 30
	MinFinePercent  = 20
	MaxFinePercent  = 40
)

// Source is the subset of *rand.Rand the engine draws from.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewSource returns a source for seed, or for a fresh crypto seed when
// seed is nil. The seed actually used is returned for receipts.
func NewSource(seed *int64) (Source, int64, error) {
	var s int64
	if seed != nil {
		s = *seed
	} else {
		var err error
		s, err = NewSeed()
		if err != nil {
			return nil, 0, err
		}
	}
	return rand.New(rand.NewSource(s)), s, nil
}

// GambleDraws are the random inputs of one gamble.
type GambleDraws struct {
	Roll    int     // uniform in [0, 100]
	Uniform float64 // uniform in [0, 1)
}

// DrawGamble takes the gamble draws from src.
func DrawGamble(src Source) GambleDraws {
	return GambleDraws{
		Roll:    src.Intn(101),
		Uniform: src.Float64(),
	}
}

// RobDraws are the random inputs of one rob attempt.
type RobDraws struct {
	Roll         int // uniform in [0, 100)
	StealPercent int // uniform in [10, 30]
	FinePercent  int // uniform in [20, 40]
}

// DrawRob takes the rob draws from src.
func DrawRob(src Source) RobDraws {
	return RobDraws{
		Roll:         src.Intn(100),
		StealPercent: MinStealPercent + src.Intn(MaxStealPercent-MinStealPercent+1),
		FinePercent:  MinFinePercent + src.Intn(MaxFinePercent-MinFinePercent+1),
	}
}

// LuckBonus is the win chance added by active lucky charms.
func LuckBonus(acc model.Account, now time.Time) int {
	return min(inventory.Count(acc, inventory.LuckyCharm, now), MaxLuckyCharms) * LuckPerCharm
}

// ResolveGamble applies a gamble of bet to acc.
func ResolveGamble(acc model.Account, bet int64, draws GambleDraws, now time.Time) (model.Account, model.GambleReceipt, error) {
	if bet < MinBet {
		return acc, model.GambleReceipt{}, fmt.Errorf("%w: minimum bet is %d", model.ErrBetTooSmall, MinBet)
	}
	if !acc.CanAfford(bet) {
		return acc, model.GambleReceipt{}, model.ErrInsufficientFunds
	}

	luck := LuckBonus(acc, now)
	receipt := model.GambleReceipt{
		UserID:         acc.UserID,
		Bet:            bet,
		Roll:           draws.Roll,
		LuckBonus:      luck,
		WinProbability: BaseWinChance + luck,
	}

	var err error
	next := acc
	if draws.Roll <= receipt.WinProbability {
		receipt.Won = true
		receipt.Multiplier = 0.5 + draws.Uniform
		receipt.Delta = int64(math.Floor(float64(bet) * receipt.Multiplier))
		if receipt.Delta > 0 {
			next, err = ledger.ApplyCredit(acc, receipt.Delta)
		}
	} else {
		receipt.Delta = -bet
		next, err = ledger.ApplyDebit(acc, bet)
	}
	if err != nil {
		return acc, model.GambleReceipt{}, err
	}
	receipt.Money = next.Money
	return next, receipt, nil
}

// SuccessChance is clamp(30 + 2*robberLevel - 1.5*victimLevel, 10, 70).
func SuccessChance(robberLevel, victimLevel int) float64 {
	chance := 30 + 2*float64(robberLevel) - 1.5*float64(victimLevel)
	return math.Max(MinRobChance, math.Min(MaxRobChance, chance))
}

// percentOf returns floor(amount*pct/100) without overflowing.
func percentOf(amount int64, pct int) int64 {
	p := int64(pct)
	return (amount/100)*p + (amount%100)*p/100
}

// ResolveRob applies a rob attempt. A success moves part of the victim's
// wallet to the robber; a failure fines the robber and the fine is destroyed.
func ResolveRob(robber, victim model.Account, draws RobDraws) (model.Account, model.Account, model.RobReceipt, error) {
	if robber.UserID == victim.UserID {
		return robber, victim, model.RobReceipt{}, model.ErrSelfTarget
	}
	if robber.Money < MinRobberMoney {
		return robber, victim, model.RobReceipt{}, fmt.Errorf("%w: need at least %d", model.ErrRobberTooPoor, MinRobberMoney)
	}
	if victim.Money < MinVictimMoney {
		return robber, victim, model.RobReceipt{}, fmt.Errorf("%w: victim needs at least %d", model.ErrVictimTooPoor, MinVictimMoney)
	}

	receipt := model.RobReceipt{
		RobberID:      robber.UserID,
		VictimID:      victim.UserID,
		Roll:          draws.Roll,
		SuccessChance: SuccessChance(robber.Level, victim.Level),
	}

	nextRobber, nextVictim := robber, victim
	var err error
	if float64(draws.Roll) < receipt.SuccessChance {
		receipt.Success = true
		receipt.Percent = draws.StealPercent
		receipt.Stolen = percentOf(victim.Money, draws.StealPercent)
		nextVictim, nextRobber, _, err = ledger.ApplyTransfer(victim, robber, receipt.Stolen, 0)
	} else {
		receipt.Percent = draws.FinePercent
		receipt.Fine = percentOf(robber.Money, draws.FinePercent)
		nextRobber, err = ledger.ApplyDebit(robber, receipt.Fine)
	}
	if err != nil {
		return robber, victim, model.RobReceipt{}, err
	}

	receipt.RobberMoney = nextRobber.Money
	receipt.VictimMoney = nextVictim.Money
	return nextRobber, nextVictim, receipt, nil
}
