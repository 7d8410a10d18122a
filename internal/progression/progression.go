// Package progression converts accumulated experience into levels and bank capacity.
//
// All functions are pure and total: every non-negative input maps to a defined
// result, and LevelForExp is the inverse boundary of the cumulative sum of
// ExpThresholdForLevel.
package progression

import (
	"math"

	"chatbot-economy-api/internal/model"
)

// maxLevel keeps cumulative arithmetic inside int64.
const maxLevel = 900_000_000

// ExpThresholdForLevel returns the experience needed to go from level to level+1.
// Levels below 1 are treated as level 1.
func ExpThresholdForLevel(level int) int64 {
	switch {
	case level <= 1:
		return 40
	case level == 2:
		return 60
	case level == 3:
		return 80
	default:
		return int64(level) * 20
	}
}

// CumulativeExpForLevel returns the total experience at which level is reached.
func CumulativeExpForLevel(level int) int64 {
	switch {
	case level <= 1:
		return 0
	case level == 2:
		return 40
	case level == 3:
		return 100
	case level == 4:
		return 180
	}
	if level > maxLevel {
		level = maxLevel
	}
	// 180 + sum(20k) for k in [4, level-1]
	l := int64(level)
	return 60 + 10*l*(l-1)
}

// LevelForExp returns the level reached with totalExp experience.
// Negative input is treated as zero.
func LevelForExp(totalExp int64) int {
	switch {
	case totalExp < 40:
		return 1
	case totalExp < 100:
		return 2
	case totalExp < 180:
		return 3
	}

	q := (totalExp - 60) / 10
	level := int((1 + math.Sqrt(1+4*float64(q))) / 2)
	if level < 4 {
		level = 4
	}
	if level > maxLevel {
		level = maxLevel
	}
	for level < maxLevel && CumulativeExpForLevel(level+1) <= totalExp {
		level++
	}
	for level > 4 && CumulativeExpForLevel(level) > totalExp {
		level--
	}
	return level
}

// BankCapacityForLevel returns the maximum bank balance allowed at level.
func BankCapacityForLevel(level int) int64 {
	switch {
	case level <= 1:
		return 5000
	case level == 2:
		return 7000
	case level == 3:
		return 10000
	default:
		return 15000 + int64(level-4)*5000
	}
}

// ExpToNextLevel returns how much experience is missing for the next level.
func ExpToNextLevel(totalExp int64) int64 {
	if totalExp < 0 {
		totalExp = 0
	}
	level := LevelForExp(totalExp)
	return CumulativeExpForLevel(level+1) - totalExp
}

// Apply re-derives level and bank capacity from the account's experience.
// It returns the level the account had before.
func Apply(acc *model.Account) int {
	prev := acc.Level
	acc.Level = LevelForExp(acc.Exp)
	acc.BankCapacity = BankCapacityForLevel(acc.Level)
	return prev
}
