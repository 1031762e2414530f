// Package blackjack implements the single-seat blackjack state machine. The
// whole hand state (phase, hands, undealt deck) lives in the session's
// outcome payload, so every player action resumes exactly where the previous
// request left off instead of re-deriving state from a bet log.
package blackjack

import (
	"errors"

	"github.com/sgarza/eldorado/pkg/entities"
	"github.com/sgarza/eldorado/pkg/games/random"
)

var (
	// ErrInvalidPhase is returned when an action is not legal in the hand's
	// current phase. The hand state is left untouched.
	ErrInvalidPhase = errors.New("action not allowed in current game phase")

	// ErrDeckExhausted is returned if a draw finds no cards left. A single
	// 52-card deck cannot run out in a one-seat hand, so seeing this means
	// the persisted state was corrupted.
	ErrDeckExhausted = errors.New("deck exhausted")
)

// Deal starts a hand: fresh 52-card deck, Fisher-Yates shuffle through src,
// two cards each dealt alternately to player and dealer. A natural two-card
// 21 resolves immediately.
func Deal(src random.Source, bet int64) (*entities.BlackjackOutcome, error) {
	deck := entities.NewDeck()
	deck.Shuffle(src)

	state := &entities.BlackjackOutcome{
		Phase: entities.PhaseBetting,
		Bet:   bet,
	}

	for i := 0; i < 2; i++ {
		if err := dealTo(deck, &state.PlayerHand); err != nil {
			return nil, err
		}
		if err := dealTo(deck, &state.DealerHand); err != nil {
			return nil, err
		}
	}

	state.Deck = deck.Cards
	state.Phase = entities.PhasePlaying
	refreshValues(state)

	if state.PlayerValue == Target {
		resolve(state)
	}

	return state, nil
}

// Hit draws one card into the player hand. Reaching or exceeding 21 resolves
// the hand immediately; otherwise play continues.
func Hit(state *entities.BlackjackOutcome) error {
	if state.Phase != entities.PhasePlaying {
		return ErrInvalidPhase
	}

	card, ok := drawFrom(state)
	if !ok {
		return ErrDeckExhausted
	}
	state.PlayerHand = append(state.PlayerHand, card)
	refreshValues(state)

	if state.PlayerValue >= Target {
		resolve(state)
	}
	return nil
}

// Stand ends the player's turn. The dealer draws to 17 and the hand
// resolves.
func Stand(state *entities.BlackjackOutcome) error {
	if state.Phase != entities.PhasePlaying {
		return ErrInvalidPhase
	}

	state.Phase = entities.PhaseDealerTurn
	for HandValue(state.DealerHand) < DealerStandsAt {
		card, ok := drawFrom(state)
		if !ok {
			return ErrDeckExhausted
		}
		state.DealerHand = append(state.DealerHand, card)
	}

	resolve(state)
	return nil
}

// resolve applies the terminal payout rule exactly once, at the transition
// into the complete phase. Payouts are gross amounts credited back to the
// wallet; the bet itself was debited when the session opened.
func resolve(state *entities.BlackjackOutcome) {
	state.Phase = entities.PhaseComplete
	refreshValues(state)

	playerValue := state.PlayerValue
	dealerValue := state.DealerValue

	switch {
	case playerValue > Target:
		state.Result = entities.ResultPlayerBust
		state.Winnings = 0
	case dealerValue > Target:
		state.Result = entities.ResultDealerBust
		state.Winnings = state.Bet * 2
	case IsBlackjack(state.PlayerHand):
		state.Result = entities.ResultBlackjack
		state.Winnings = state.Bet * 5 / 2
	case playerValue > dealerValue:
		state.Result = entities.ResultPlayerWin
		state.Winnings = state.Bet * 2
	case dealerValue > playerValue:
		state.Result = entities.ResultDealerWin
		state.Winnings = 0
	default:
		state.Result = entities.ResultPush
		state.Winnings = state.Bet
	}
}

// View returns the caller-facing snapshot of the hand. While the player is
// still acting, the dealer shows only the up card and its value; the undealt
// deck is never exposed.
func View(state *entities.BlackjackOutcome) *entities.BlackjackOutcome {
	view := &entities.BlackjackOutcome{
		Phase:       state.Phase,
		PlayerHand:  append([]entities.Card(nil), state.PlayerHand...),
		Bet:         state.Bet,
		PlayerValue: state.PlayerValue,
		Result:      state.Result,
		Winnings:    state.Winnings,
	}

	if state.Phase == entities.PhasePlaying && len(state.DealerHand) > 0 {
		view.DealerHand = []entities.Card{state.DealerHand[0]}
		view.DealerValue = CardValue(state.DealerHand[0])
	} else {
		view.DealerHand = append([]entities.Card(nil), state.DealerHand...)
		view.DealerValue = state.DealerValue
	}

	return view
}

func refreshValues(state *entities.BlackjackOutcome) {
	state.PlayerValue = HandValue(state.PlayerHand)
	state.DealerValue = HandValue(state.DealerHand)
}

func dealTo(deck *entities.Deck, hand *[]entities.Card) error {
	card, ok := deck.Draw()
	if !ok {
		return ErrDeckExhausted
	}
	*hand = append(*hand, card)
	return nil
}

func drawFrom(state *entities.BlackjackOutcome) (entities.Card, bool) {
	if len(state.Deck) == 0 {
		return entities.Card{}, false
	}
	card := state.Deck[0]
	state.Deck = state.Deck[1:]
	return card, true
}
