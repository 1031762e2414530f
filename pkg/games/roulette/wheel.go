// Package roulette implements the European single-zero wheel: spin
// classification and bet resolution for the fourteen supported wager types.
package roulette

import (
	"github.com/sgarza/eldorado/pkg/entities"
	"github.com/sgarza/eldorado/pkg/games/random"
)

// Pockets is the number of pockets on a single-zero wheel (0-36).
const Pockets = 37

// colors is the standard European wheel assignment. Real wheels do not
// follow a simple parity pattern, so the table is spelled out.
var colors = [Pockets]entities.RouletteColor{
	0:  entities.ColorGreen,
	1:  entities.ColorRed,
	2:  entities.ColorBlack,
	3:  entities.ColorRed,
	4:  entities.ColorBlack,
	5:  entities.ColorRed,
	6:  entities.ColorBlack,
	7:  entities.ColorRed,
	8:  entities.ColorBlack,
	9:  entities.ColorRed,
	10: entities.ColorBlack,
	11: entities.ColorBlack,
	12: entities.ColorRed,
	13: entities.ColorBlack,
	14: entities.ColorRed,
	15: entities.ColorBlack,
	16: entities.ColorRed,
	17: entities.ColorBlack,
	18: entities.ColorRed,
	19: entities.ColorRed,
	20: entities.ColorBlack,
	21: entities.ColorRed,
	22: entities.ColorBlack,
	23: entities.ColorRed,
	24: entities.ColorBlack,
	25: entities.ColorRed,
	26: entities.ColorBlack,
	27: entities.ColorRed,
	28: entities.ColorBlack,
	29: entities.ColorBlack,
	30: entities.ColorRed,
	31: entities.ColorBlack,
	32: entities.ColorRed,
	33: entities.ColorBlack,
	34: entities.ColorRed,
	35: entities.ColorBlack,
	36: entities.ColorRed,
}

// ColorOf returns the pocket color for a number on the wheel.
func ColorOf(number int) entities.RouletteColor {
	return colors[number]
}

// Spin draws a winning number and derives its classification. Dozen and
// Column are 0 for the zero pocket.
func Spin(src random.Source) *entities.RouletteResult {
	number := src.Intn(Pockets)
	return Classify(number)
}

// Classify builds the full result record for a winning number.
func Classify(number int) *entities.RouletteResult {
	result := &entities.RouletteResult{
		Number: number,
		Color:  colors[number],
		IsEven: number != 0 && number%2 == 0,
		IsOdd:  number%2 == 1,
		IsLow:  number >= 1 && number <= 18,
		IsHigh: number >= 19 && number <= 36,
	}

	if number != 0 {
		switch {
		case number <= 12:
			result.Dozen = 1
		case number <= 24:
			result.Dozen = 2
		default:
			result.Dozen = 3
		}

		switch number % 3 {
		case 1:
			result.Column = 1
		case 2:
			result.Column = 2
		default:
			result.Column = 3
		}
	}

	return result
}
