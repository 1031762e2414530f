package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sgarza/eldorado/pkg/entities"
)

const createGamesTableSQL = `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT,
		rules TEXT,
		min_bet INTEGER NOT NULL,
		max_bet INTEGER NOT NULL,
		house_edge REAL NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	)`

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

	if _, err := db.Exec(createGamesTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating games table: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// GetGame retrieves a catalog entry by ID
func (r *SQLiteRepository) GetGame(ctx context.Context, id string) (*entities.Game, error) {
	query := `SELECT id, name, type, description, rules, min_bet, max_bet, house_edge, is_active FROM games WHERE id = ?`
	game, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	return game, err
}

// ListActiveGames returns the games currently open for play, sorted by name.
func (r *SQLiteRepository) ListActiveGames(ctx context.Context) ([]*entities.Game, error) {
	query := `SELECT id, name, type, description, rules, min_bet, max_bet, house_edge, is_active FROM games WHERE is_active = 1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying games: %w", err)
	}
	defer rows.Close()

	var result []*entities.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return result, nil
}

// SaveGame creates or updates a catalog entry.
func (r *SQLiteRepository) SaveGame(ctx context.Context, game *entities.Game) error {
	query := `
		INSERT INTO games (id, name, type, description, rules, min_bet, max_bet, house_edge, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			description = excluded.description,
			rules = excluded.rules,
			min_bet = excluded.min_bet,
			max_bet = excluded.max_bet,
			house_edge = excluded.house_edge,
			is_active = excluded.is_active
	`
	_, err := r.db.ExecContext(ctx, query,
		game.ID, game.Name, string(game.Type), game.Description, game.Rules,
		game.MinBet, game.MaxBet, game.HouseEdge, boolToInt(game.IsActive),
	)
	if err != nil {
		return fmt.Errorf("error saving game: %w", err)
	}
	return nil
}

// Seed inserts any missing default catalog entries, leaving existing rows
// untouched.
func (r *SQLiteRepository) Seed(ctx context.Context) error {
	query := `
		INSERT INTO games (id, name, type, description, rules, min_bet, max_bet, house_edge, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	for _, game := range DefaultGames() {
		_, err := r.db.ExecContext(ctx, query,
			game.ID, game.Name, string(game.Type), game.Description, game.Rules,
			game.MinBet, game.MaxBet, game.HouseEdge, boolToInt(game.IsActive),
		)
		if err != nil {
			return fmt.Errorf("error seeding game %s: %w", game.ID, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*entities.Game, error) {
	var game entities.Game
	var description, rules sql.NullString
	var isActive int

	err := row.Scan(
		&game.ID,
		&game.Name,
		(*string)(&game.Type),
		&description,
		&rules,
		&game.MinBet,
		&game.MaxBet,
		&game.HouseEdge,
		&isActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning game: %w", err)
	}

	game.Description = description.String
	game.Rules = rules.String
	game.IsActive = isActive != 0
	return &game, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
