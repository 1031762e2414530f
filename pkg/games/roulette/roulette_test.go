package roulette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgarza/eldorado/pkg/entities"
	"github.com/sgarza/eldorado/pkg/games/random"
)

func TestColorTable(t *testing.T) {
	assert.Equal(t, entities.ColorGreen, ColorOf(0))

	// Spot checks where the wheel deviates from simple parity.
	assert.Equal(t, entities.ColorRed, ColorOf(1))
	assert.Equal(t, entities.ColorBlack, ColorOf(10))
	assert.Equal(t, entities.ColorBlack, ColorOf(11))
	assert.Equal(t, entities.ColorRed, ColorOf(18))
	assert.Equal(t, entities.ColorRed, ColorOf(19))
	assert.Equal(t, entities.ColorBlack, ColorOf(28))
	assert.Equal(t, entities.ColorBlack, ColorOf(29))
	assert.Equal(t, entities.ColorRed, ColorOf(36))

	var reds, blacks int
	for n := 1; n < Pockets; n++ {
		switch ColorOf(n) {
		case entities.ColorRed:
			reds++
		case entities.ColorBlack:
			blacks++
		}
	}
	assert.Equal(t, 18, reds)
	assert.Equal(t, 18, blacks)
}

func TestClassify(t *testing.T) {
	zero := Classify(0)
	assert.Equal(t, entities.ColorGreen, zero.Color)
	assert.False(t, zero.IsEven, "zero is neither even nor odd for betting")
	assert.False(t, zero.IsOdd)
	assert.False(t, zero.IsLow)
	assert.False(t, zero.IsHigh)
	assert.Zero(t, zero.Dozen)
	assert.Zero(t, zero.Column)

	seventeen := Classify(17)
	assert.Equal(t, 2, seventeen.Dozen)
	assert.Equal(t, 2, seventeen.Column)
	assert.True(t, seventeen.IsOdd)
	assert.True(t, seventeen.IsLow)

	thirty := Classify(30)
	assert.Equal(t, 3, thirty.Dozen)
	assert.Equal(t, 3, thirty.Column)
	assert.True(t, thirty.IsEven)
	assert.True(t, thirty.IsHigh)
}

func TestSpinIsScriptable(t *testing.T) {
	result := Spin(random.NewSequence(17))
	assert.Equal(t, 17, result.Number)
	assert.Equal(t, entities.ColorBlack, result.Color)
}

func TestRedBetPaysEvenMoney(t *testing.T) {
	bets := []entities.RouletteBet{{Type: entities.BetRed, Amount: 10}}

	win := CalculateWinnings(bets, Classify(1)) // red
	assert.Equal(t, int64(20), win)

	loss := CalculateWinnings(bets, Classify(2)) // black
	assert.Zero(t, loss)
}

func TestStraightBetPaysThirtyFiveToOne(t *testing.T) {
	bets := []entities.RouletteBet{{Type: entities.BetStraight, Number: 17, Amount: 5}}

	assert.Equal(t, int64(180), CalculateWinnings(bets, Classify(17)))
	assert.Zero(t, CalculateWinnings(bets, Classify(16)))
}

func TestMultiNumberBets(t *testing.T) {
	split := entities.RouletteBet{Type: entities.BetSplit, Numbers: []int{8, 9}, Amount: 10}
	assert.Equal(t, int64(180), CalculateWinnings([]entities.RouletteBet{split}, Classify(9)))
	assert.Zero(t, CalculateWinnings([]entities.RouletteBet{split}, Classify(10)))

	corner := entities.RouletteBet{Type: entities.BetCorner, Numbers: []int{1, 2, 4, 5}, Amount: 10}
	assert.Equal(t, int64(90), CalculateWinnings([]entities.RouletteBet{corner}, Classify(5)))

	// On a single-zero wheel the five-number line covers 0-3.
	five := entities.RouletteBet{Type: entities.BetFiveNumber, Amount: 10}
	assert.Equal(t, int64(70), CalculateWinnings([]entities.RouletteBet{five}, Classify(0)))
	assert.Equal(t, int64(70), CalculateWinnings([]entities.RouletteBet{five}, Classify(3)))
	assert.Zero(t, CalculateWinnings([]entities.RouletteBet{five}, Classify(4)))
}

func TestOutsideBets(t *testing.T) {
	dozen := entities.RouletteBet{Type: entities.BetDozen, Dozen: 2, Amount: 10}
	assert.Equal(t, int64(30), CalculateWinnings([]entities.RouletteBet{dozen}, Classify(13)))
	assert.Zero(t, CalculateWinnings([]entities.RouletteBet{dozen}, Classify(25)))

	column := entities.RouletteBet{Type: entities.BetColumn, Column: 3, Amount: 10}
	assert.Equal(t, int64(30), CalculateWinnings([]entities.RouletteBet{column}, Classify(30)))

	// Zero loses every outside bet.
	outside := []entities.RouletteBet{
		{Type: entities.BetRed, Amount: 10},
		{Type: entities.BetBlack, Amount: 10},
		{Type: entities.BetEven, Amount: 10},
		{Type: entities.BetOdd, Amount: 10},
		{Type: entities.BetLow, Amount: 10},
		{Type: entities.BetHigh, Amount: 10},
		{Type: entities.BetDozen, Dozen: 1, Amount: 10},
		{Type: entities.BetColumn, Column: 1, Amount: 10},
	}
	assert.Zero(t, CalculateWinnings(outside, Classify(0)))
}

func TestValidateBets(t *testing.T) {
	valid := []entities.RouletteBet{
		{Type: entities.BetStraight, Number: 17, Amount: 500},
		{Type: entities.BetRed, Amount: 500},
	}
	require.NoError(t, ValidateBets(valid, 1000))

	t.Run("unknown type rejected", func(t *testing.T) {
		bets := []entities.RouletteBet{{Type: "snake", Amount: 1000}}
		assert.ErrorIs(t, ValidateBets(bets, 1000), ErrUnknownBetType)
	})

	t.Run("stake mismatch rejected", func(t *testing.T) {
		bets := []entities.RouletteBet{{Type: entities.BetRed, Amount: 700}}
		assert.ErrorIs(t, ValidateBets(bets, 1000), ErrStakeMismatch)
	})

	t.Run("empty submission rejected", func(t *testing.T) {
		assert.Error(t, ValidateBets(nil, 1000))
	})

	t.Run("number off the wheel rejected", func(t *testing.T) {
		bets := []entities.RouletteBet{{Type: entities.BetStraight, Number: 37, Amount: 1000}}
		assert.Error(t, ValidateBets(bets, 1000))
	})

	t.Run("wrong group size rejected", func(t *testing.T) {
		bets := []entities.RouletteBet{{Type: entities.BetSplit, Numbers: []int{1, 2, 3}, Amount: 1000}}
		assert.Error(t, ValidateBets(bets, 1000))
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		bets := []entities.RouletteBet{{Type: entities.BetRed, Amount: 0}}
		assert.Error(t, ValidateBets(bets, 0))
	})

	t.Run("dozen out of range rejected", func(t *testing.T) {
		bets := []entities.RouletteBet{{Type: entities.BetDozen, Dozen: 4, Amount: 1000}}
		assert.Error(t, ValidateBets(bets, 1000))
	})
}
