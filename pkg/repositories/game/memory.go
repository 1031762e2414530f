package game

import (
	"context"
	"sort"
	"sync"

	"github.com/sgarza/eldorado/pkg/entities"
)

// MemoryRepository implements Repository using in-memory storage.
type MemoryRepository struct {
	games map[string]*entities.Game
	mu    sync.RWMutex
}

// NewMemoryRepository creates a new in-memory game catalog
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games: make(map[string]*entities.Game),
	}
}

// GetGame retrieves a catalog entry by ID
func (r *MemoryRepository) GetGame(ctx context.Context, id string) (*entities.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.games[id]
	if !exists {
		return nil, ErrGameNotFound
	}
	gameCopy := *stored
	return &gameCopy, nil
}

// ListActiveGames returns the games currently open for play, sorted by name.
func (r *MemoryRepository) ListActiveGames(ctx context.Context) ([]*entities.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.Game
	for _, stored := range r.games {
		if !stored.IsActive {
			continue
		}
		gameCopy := *stored
		result = append(result, &gameCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SaveGame creates or updates a catalog entry.
func (r *MemoryRepository) SaveGame(ctx context.Context, game *entities.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	gameCopy := *game
	r.games[game.ID] = &gameCopy
	return nil
}

// Seed inserts any missing default catalog entries.
func (r *MemoryRepository) Seed(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, game := range DefaultGames() {
		if _, exists := r.games[game.ID]; exists {
			continue
		}
		r.games[game.ID] = game
	}
	return nil
}

// Close is a no-op for the memory repository.
func (r *MemoryRepository) Close() error {
	return nil
}
