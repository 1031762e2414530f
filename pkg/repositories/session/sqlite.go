package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sgarza/eldorado/pkg/entities"
)

// Sessions persist scalar columns for querying plus the bet log (including
// the game-specific outcome payload) as a JSON document, the same way the
// blackjack tables store full game state as a blob.
const createSessionsTableSQL = `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL,
		start_balance INTEGER NOT NULL,
		end_balance INTEGER NOT NULL DEFAULT 0,
		bets TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		updated_at TEXT NOT NULL
	)`

const createSessionIndexesSQL = `
	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON game_sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status_updated ON game_sessions(status, updated_at)
	`

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	for _, stmt := range []string{createSessionsTableSQL, createSessionIndexesSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating session schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// CreateSession stores a new session at version 1.
func (r *SQLiteRepository) CreateSession(ctx context.Context, session *entities.GameSession) error {
	session.Version = 1
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now()
	}

	bets, err := json.Marshal(session.Bets)
	if err != nil {
		return fmt.Errorf("error encoding bets: %w", err)
	}

	query := `
		INSERT INTO game_sessions (id, user_id, game_id, status, version, start_balance, end_balance, bets, start_time, end_time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.GameID,
		string(session.Status),
		session.Version,
		session.StartBalance,
		session.EndBalance,
		string(bets),
		session.StartTime.Format(time.RFC3339Nano),
		nullableTime(session.EndTime),
		session.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*entities.GameSession, error) {
	query := selectSessionSQL + ` WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// SaveSession persists the session if the caller's Version still matches the
// stored row. The version guard lives in the WHERE clause, so the check and
// the write are one statement.
func (r *SQLiteRepository) SaveSession(ctx context.Context, session *entities.GameSession) error {
	bets, err := json.Marshal(session.Bets)
	if err != nil {
		return fmt.Errorf("error encoding bets: %w", err)
	}

	updatedAt := time.Now()
	query := `
		UPDATE game_sessions
		SET status = ?, version = version + 1, start_balance = ?, end_balance = ?, bets = ?, end_time = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(session.Status),
		session.StartBalance,
		session.EndBalance,
		string(bets),
		nullableTime(session.EndTime),
		updatedAt.Format(time.RFC3339Nano),
		session.ID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking session save: %w", err)
	}
	if affected == 0 {
		var exists int
		probe := r.db.QueryRowContext(ctx, `SELECT 1 FROM game_sessions WHERE id = ?`, session.ID)
		if err := probe.Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		return ErrVersionConflict
	}

	session.Version++
	session.UpdatedAt = updatedAt
	return nil
}

// ListIdleSessions returns active sessions last updated before the cutoff.
func (r *SQLiteRepository) ListIdleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*entities.GameSession, error) {
	query := selectSessionSQL + `
		WHERE status = ? AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.query(ctx, query, string(entities.SessionStatusActive), cutoff.Format(time.RFC3339Nano), normalizeLimit(limit))
}

// ListSessionsByStatus returns sessions in a status updated after the
// watermark.
func (r *SQLiteRepository) ListSessionsByStatus(ctx context.Context, status entities.SessionStatus, updatedAfter time.Time, limit int) ([]*entities.GameSession, error) {
	query := selectSessionSQL + `
		WHERE status = ? AND updated_at > ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.query(ctx, query, string(status), updatedAfter.Format(time.RFC3339Nano), normalizeLimit(limit))
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const selectSessionSQL = `
	SELECT id, user_id, game_id, status, version, start_balance, end_balance, bets, start_time, end_time, updated_at
	FROM game_sessions
`

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*entities.GameSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying sessions: %w", err)
	}
	defer rows.Close()

	var result []*entities.GameSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*entities.GameSession, error) {
	var session entities.GameSession
	var bets, startTime, updatedAt string
	var endTime sql.NullString

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.GameID,
		(*string)(&session.Status),
		&session.Version,
		&session.StartBalance,
		&session.EndBalance,
		&bets,
		&startTime,
		&endTime,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning session: %w", err)
	}

	if err := json.Unmarshal([]byte(bets), &session.Bets); err != nil {
		return nil, fmt.Errorf("error decoding bets for session %s: %w", session.ID, err)
	}

	if session.StartTime, err = time.Parse(time.RFC3339Nano, startTime); err != nil {
		return nil, fmt.Errorf("error parsing session start time %q: %w", startTime, err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("error parsing session update time %q: %w", updatedAt, err)
	}
	if endTime.Valid {
		if session.EndTime, err = time.Parse(time.RFC3339Nano, endTime.String); err != nil {
			return nil, fmt.Errorf("error parsing session end time %q: %w", endTime.String, err)
		}
	}

	return &session, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
