package session

import (
	"context"
	"errors"
	"time"

	"github.com/sgarza/eldorado/pkg/entities"
)

var (
	ErrSessionNotFound = errors.New("session not found")

	// ErrVersionConflict is returned by SaveSession when the stored version
	// no longer matches the caller's copy: another writer settled or
	// mutated the session first. Callers reload and re-evaluate rather
	// than retry blindly.
	ErrVersionConflict = errors.New("session version conflict")
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/sgarza/eldorado/pkg/repositories/session Repository

// Repository defines the interface for game session persistence.
//
// Sessions are saved with an optimistic concurrency check on Version so two
// concurrent actions against the same session can never both settle it.
type Repository interface {
	// CreateSession stores a new session at version 1.
	CreateSession(ctx context.Context, session *entities.GameSession) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, id string) (*entities.GameSession, error)

	// SaveSession persists the session if its Version still matches the
	// stored row, then increments Version on both. Returns
	// ErrVersionConflict otherwise.
	SaveSession(ctx context.Context, session *entities.GameSession) error

	// ListIdleSessions returns active sessions whose last update is older
	// than the cutoff, oldest first. The reaper uses this to find hands
	// the player walked away from.
	ListIdleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*entities.GameSession, error)

	// ListSessionsByStatus returns sessions in the given status updated
	// after the watermark, oldest first. The archiver pages through
	// completed sessions with this.
	ListSessionsByStatus(ctx context.Context, status entities.SessionStatus, updatedAfter time.Time, limit int) ([]*entities.GameSession, error)

	// Close releases any resources held by the repository
	Close() error
}
