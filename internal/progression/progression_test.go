package progression

import (
	"math"
	"testing"

	"chatbot-economy-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpThresholdForLevel(t *testing.T) {
	cases := map[int]int64{
		-3: 40,
		0:  40,
		1:  40,
		2:  60,
		3:  80,
		4:  80,
		5:  100,
		10: 200,
	}
	for level, want := range cases {
		assert.Equal(t, want, ExpThresholdForLevel(level), "level %d", level)
	}
}

func TestLevelForExpBoundaries(t *testing.T) {
	cases := []struct {
		exp  int64
		want int
	}{
		{-10, 1},
		{0, 1},
		{39, 1},
		{40, 2},
		{99, 2},
		{100, 3},
		{179, 3},
		{180, 4},
		{259, 4},
		{260, 5},
		{359, 5},
		{360, 6},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelForExp(tc.exp), "exp %d", tc.exp)
	}
}

// naiveLevel walks the thresholds one level at a time.
func naiveLevel(exp int64) int {
	level := 1
	var acc int64
	for exp >= acc+ExpThresholdForLevel(level) {
		acc += ExpThresholdForLevel(level)
		level++
	}
	return level
}

func TestLevelForExpAgreesWithThresholdWalk(t *testing.T) {
	for exp := int64(0); exp <= 20000; exp++ {
		require.Equal(t, naiveLevel(exp), LevelForExp(exp), "exp %d", exp)
	}
}

func TestCumulativeIsInverseOfLevel(t *testing.T) {
	for level := 1; level < 500; level++ {
		cum := CumulativeExpForLevel(level)
		assert.Equal(t, level, LevelForExp(cum), "level %d at its own boundary", level)
		if cum > 0 {
			assert.Equal(t, level-1, LevelForExp(cum-1), "level %d one below boundary", level)
		}
		assert.Equal(t, cum+ExpThresholdForLevel(level), CumulativeExpForLevel(level+1))
	}
}

func TestLevelForExpIsMonotonic(t *testing.T) {
	prev := LevelForExp(0)
	for exp := int64(1); exp < 100000; exp += 7 {
		cur := LevelForExp(exp)
		require.GreaterOrEqual(t, cur, prev, "exp %d", exp)
		prev = cur
	}
}

func TestLevelForExpIsTotal(t *testing.T) {
	level := LevelForExp(math.MaxInt64)
	assert.Greater(t, level, 4)
	assert.LessOrEqual(t, CumulativeExpForLevel(level), int64(math.MaxInt64))
}

func TestBankCapacityForLevel(t *testing.T) {
	assert.Equal(t, int64(5000), BankCapacityForLevel(0))
	assert.Equal(t, int64(5000), BankCapacityForLevel(1))
	assert.Equal(t, int64(7000), BankCapacityForLevel(2))
	assert.Equal(t, int64(10000), BankCapacityForLevel(3))
	assert.Equal(t, int64(15000), BankCapacityForLevel(4))
	assert.Equal(t, int64(20000), BankCapacityForLevel(5))
	assert.Equal(t, int64(45000), BankCapacityForLevel(10))

	prev := BankCapacityForLevel(1)
	for level := 2; level < 1000; level++ {
		cur := BankCapacityForLevel(level)
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestExpToNextLevel(t *testing.T) {
	assert.Equal(t, int64(40), ExpToNextLevel(0))
	assert.Equal(t, int64(1), ExpToNextLevel(99))
	assert.Equal(t, int64(80), ExpToNextLevel(100))
}

func TestApply(t *testing.T) {
	acc := model.Account{Exp: 100, Level: 1, BankCapacity: 5000}
	prev := Apply(&acc)
	assert.Equal(t, 1, prev)
	assert.Equal(t, 3, acc.Level)
	assert.Equal(t, int64(10000), acc.BankCapacity)
}
