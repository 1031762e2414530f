package blackjack

import (
	"strconv"

	"github.com/sgarza/eldorado/pkg/entities"
)

const (
	// DealerStandsAt is the total at which the dealer stops drawing. The
	// dealer stands on all 17s, soft or hard.
	DealerStandsAt = 17

	// Target is the winning total.
	Target = 21
)

// CardValue returns a card's blackjack value with aces counted high.
func CardValue(card entities.Card) int {
	switch card.Rank {
	case entities.Ace:
		return 11
	case entities.King, entities.Queen, entities.Jack:
		return 10
	default:
		v, _ := strconv.Atoi(string(card.Rank))
		return v
	}
}

// IsAce reports whether the card is an ace.
func IsAce(card entities.Card) bool {
	return card.Rank == entities.Ace
}

// HandValue computes a hand's total. Aces start at 11 and demote to 1 one at
// a time while the total busts, which reproduces soft/hard hand handling.
func HandValue(hand []entities.Card) int {
	total := 0
	softAces := 0
	for _, card := range hand {
		total += CardValue(card)
		if IsAce(card) {
			softAces++
		}
	}
	for total > Target && softAces > 0 {
		total -= 10
		softAces--
	}
	return total
}

// IsBlackjack reports a natural: exactly two cards totalling 21. A
// multi-card 21 is a plain win, not a blackjack.
func IsBlackjack(hand []entities.Card) bool {
	return len(hand) == 2 && HandValue(hand) == Target
}

// IsBust reports whether the hand exceeds 21.
func IsBust(hand []entities.Card) bool {
	return HandValue(hand) > Target
}
