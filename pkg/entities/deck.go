package entities

import "github.com/sgarza/eldorado/pkg/games/random"

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck creates a new deck of 52 cards, one of each rank and suit
func NewDeck() *Deck {
	cards := make([]Card, 0, 52)
	suits := []Suit{Hearts, Diamonds, Clubs, Spades}
	ranks := []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}

	return &Deck{Cards: cards}
}

// Shuffle performs a Fisher-Yates shuffle using the supplied source.
func (d *Deck) Shuffle(src random.Source) {
	for i := len(d.Cards) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	}
}

// Draw removes and returns the top card from the deck. The second return
// value is false when the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.Cards) == 0 {
		return Card{}, false
	}
	card := d.Cards[0]
	d.Cards = d.Cards[1:]
	return card, true
}

// Remaining returns the number of undrawn cards.
func (d *Deck) Remaining() int {
	return len(d.Cards)
}
