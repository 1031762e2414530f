package roulette

import (
	"errors"
	"fmt"

	"github.com/sgarza/eldorado/pkg/entities"
)

// payoutRatios maps each bet type to its winnings-per-unit-staked ratio.
// A winning bet pays amount x (ratio + 1): the stake comes back alongside
// the winnings.
var payoutRatios = map[entities.RouletteBetType]int64{
	entities.BetStraight:   35,
	entities.BetSplit:      17,
	entities.BetStreet:     11,
	entities.BetCorner:     8,
	entities.BetFiveNumber: 6,
	entities.BetSixLine:    5,
	entities.BetDozen:      2,
	entities.BetColumn:     2,
	entities.BetRed:        1,
	entities.BetBlack:      1,
	entities.BetEven:       1,
	entities.BetOdd:        1,
	entities.BetLow:        1,
	entities.BetHigh:       1,
}

// groupSizes constrains the Numbers list per multi-number bet type.
var groupSizes = map[entities.RouletteBetType]int{
	entities.BetSplit:   2,
	entities.BetStreet:  3,
	entities.BetCorner:  4,
	entities.BetSixLine: 6,
}

var (
	ErrUnknownBetType = errors.New("unknown roulette bet type")
	ErrStakeMismatch  = errors.New("bet amounts do not sum to the session stake")
)

// ValidateBets checks a spin submission before the wheel turns: every bet
// type must be known, every referenced number on the wheel, and the amounts
// must sum to the session stake. Malformed bets are rejected rather than
// silently ignored so the ledger stays interpretable.
func ValidateBets(bets []entities.RouletteBet, stake int64) error {
	if len(bets) == 0 {
		return errors.New("no bets submitted")
	}

	var total int64
	for i, bet := range bets {
		if _, ok := payoutRatios[bet.Type]; !ok {
			return fmt.Errorf("%w: %q (bet %d)", ErrUnknownBetType, bet.Type, i)
		}
		if bet.Amount <= 0 {
			return fmt.Errorf("bet %d: amount must be positive", i)
		}

		switch bet.Type {
		case entities.BetStraight:
			if bet.Number < 0 || bet.Number >= Pockets {
				return fmt.Errorf("bet %d: number %d not on the wheel", i, bet.Number)
			}
		case entities.BetSplit, entities.BetStreet, entities.BetCorner, entities.BetSixLine:
			if len(bet.Numbers) != groupSizes[bet.Type] {
				return fmt.Errorf("bet %d: %s requires %d numbers", i, bet.Type, groupSizes[bet.Type])
			}
			for _, n := range bet.Numbers {
				if n < 0 || n >= Pockets {
					return fmt.Errorf("bet %d: number %d not on the wheel", i, n)
				}
			}
		case entities.BetDozen:
			if bet.Dozen < 1 || bet.Dozen > 3 {
				return fmt.Errorf("bet %d: dozen must be 1-3", i)
			}
		case entities.BetColumn:
			if bet.Column < 1 || bet.Column > 3 {
				return fmt.Errorf("bet %d: column must be 1-3", i)
			}
		}

		total += bet.Amount
	}

	if total != stake {
		return fmt.Errorf("%w: have %d, stake is %d", ErrStakeMismatch, total, stake)
	}
	return nil
}

// Wins reports whether a single bet is satisfied by the wheel result.
func Wins(bet entities.RouletteBet, result *entities.RouletteResult) bool {
	switch bet.Type {
	case entities.BetStraight:
		return result.Number == bet.Number
	case entities.BetSplit, entities.BetStreet, entities.BetCorner, entities.BetSixLine:
		return containsNumber(bet.Numbers, result.Number)
	case entities.BetFiveNumber:
		// Single-zero wheel: the five-number line degenerates to 0-3.
		return result.Number >= 0 && result.Number <= 3
	case entities.BetDozen:
		return result.Dozen == bet.Dozen
	case entities.BetColumn:
		return result.Column == bet.Column
	case entities.BetRed:
		return result.Color == entities.ColorRed
	case entities.BetBlack:
		return result.Color == entities.ColorBlack
	case entities.BetEven:
		return result.IsEven
	case entities.BetOdd:
		return result.IsOdd
	case entities.BetLow:
		return result.IsLow
	case entities.BetHigh:
		return result.IsHigh
	}
	return false
}

// CalculateWinnings totals the payout across all submitted bets. Each winning
// bet pays amount x (ratio + 1); losing and unknown bets pay nothing.
func CalculateWinnings(bets []entities.RouletteBet, result *entities.RouletteResult) int64 {
	var total int64
	for _, bet := range bets {
		ratio, ok := payoutRatios[bet.Type]
		if !ok {
			continue
		}
		if Wins(bet, result) {
			total += bet.Amount * (ratio + 1)
		}
	}
	return total
}

func containsNumber(numbers []int, n int) bool {
	for _, v := range numbers {
		if v == n {
			return true
		}
	}
	return false
}
