package game

import (
	"context"
	"errors"

	"github.com/sgarza/eldorado/pkg/entities"
)

var ErrGameNotFound = errors.New("game not found")

// Repository defines the interface for the game catalog.
type Repository interface {
	// GetGame retrieves a catalog entry by ID
	GetGame(ctx context.Context, id string) (*entities.Game, error)

	// ListActiveGames returns the games currently open for play.
	ListActiveGames(ctx context.Context) ([]*entities.Game, error)

	// SaveGame creates or updates a catalog entry.
	SaveGame(ctx context.Context, game *entities.Game) error

	// Seed inserts the default catalog entries that are missing. Existing
	// entries are left untouched so operator edits survive restarts.
	Seed(ctx context.Context) error

	// Close releases any resources held by the repository
	Close() error
}

// DefaultGames is the catalog seeded on first boot. Bet limits are integer
// cents.
func DefaultGames() []*entities.Game {
	return []*entities.Game{
		{
			ID:          "classic-slots",
			Name:        "Classic Slots",
			Type:        entities.GameTypeSlots,
			Description: "Three-reel slot machine with five paylines",
			Rules:       "Match three symbols on any payline to win that line's multiplier times your bet.",
			MinBet:      100,
			MaxBet:      10000,
			HouseEdge:   5.0,
			IsActive:    true,
		},
		{
			ID:          "blackjack-pro",
			Name:        "Blackjack Pro",
			Type:        entities.GameTypeBlackjack,
			Description: "Single-deck blackjack, dealer stands on all 17s",
			Rules:       "Beat the dealer without going over 21. Blackjack pays 3:2.",
			MinBet:      500,
			MaxBet:      50000,
			HouseEdge:   0.5,
			IsActive:    true,
		},
		{
			ID:          "european-roulette",
			Name:        "European Roulette",
			Type:        entities.GameTypeRoulette,
			Description: "Single-zero wheel with inside and outside bets",
			Rules:       "Place one or more bets totalling your stake, then spin. Straight bets pay 35:1.",
			MinBet:      100,
			MaxBet:      20000,
			HouseEdge:   2.7,
			IsActive:    true,
		},
	}
}
