package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sgarza/eldorado/pkg/entities"
)

// SQLite table schemas. Timestamps are stored as RFC 3339 strings so they
// round-trip through time.Parse without format guessing.
const (
	createWalletsTableSQL = `
	CREATE TABLE IF NOT EXISTS wallets (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'USD',
		updated_at TEXT NOT NULL
	)`

	createTransactionsTableSQL = `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		game_id TEXT,
		game_session_id TEXT,
		status TEXT NOT NULL,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES wallets(user_id)
	)`

	createTransactionIndexesSQL = `
	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC)
	`
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	for _, stmt := range []string{createWalletsTableSQL, createTransactionsTableSQL, createTransactionIndexesSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating wallet schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// GetWallet retrieves a wallet by user ID
func (r *SQLiteRepository) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	query := `SELECT user_id, balance, currency, updated_at FROM wallets WHERE user_id = ?`

	var wallet entities.Wallet
	var updatedAt string

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&wallet.UserID,
		&wallet.Balance,
		&wallet.Currency,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	wallet.LastUpdated, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("error parsing wallet timestamp %q: %w", updatedAt, err)
	}

	return &wallet, nil
}

// CreateWallet creates a wallet for a new user.
func (r *SQLiteRepository) CreateWallet(ctx context.Context, wallet *entities.Wallet) error {
	currency := wallet.Currency
	if currency == "" {
		currency = entities.DefaultCurrency
	}

	query := `INSERT INTO wallets (user_id, balance, currency, updated_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		wallet.UserID, wallet.Balance, currency, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		// sqlite reports the primary-key violation as a constraint error;
		// the probe below keeps the sentinel without driver-specific codes.
		if existing, getErr := r.GetWallet(ctx, wallet.UserID); getErr == nil && existing != nil {
			return ErrWalletExists
		}
		return fmt.Errorf("error creating wallet: %w", err)
	}
	return nil
}

// Credit adds amount to the wallet balance.
func (r *SQLiteRepository) Credit(ctx context.Context, userID string, amount int64) error {
	return r.adjustBalance(ctx, r.db, userID, amount)
}

// Debit subtracts amount from the wallet balance, refusing to go negative.
func (r *SQLiteRepository) Debit(ctx context.Context, userID string, amount int64) error {
	return r.adjustBalance(ctx, r.db, userID, -amount)
}

// DebitAndRecord runs the debit and the ledger insert inside one database
// transaction. If either side fails the whole move rolls back.
func (r *SQLiteRepository) DebitAndRecord(ctx context.Context, record *entities.Transaction) (int64, error) {
	return r.moveAndRecord(ctx, record, -record.Amount)
}

// CreditAndRecord runs the credit and the ledger insert inside one database
// transaction.
func (r *SQLiteRepository) CreditAndRecord(ctx context.Context, record *entities.Transaction) (int64, error) {
	return r.moveAndRecord(ctx, record, record.Amount)
}

// AddTransaction records a ledger entry with no balance change.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, transaction *entities.Transaction) error {
	return insertTransaction(ctx, r.db, prepareRecord(transaction))
}

// GetTransactions retrieves recent transactions for a user, newest first.
func (r *SQLiteRepository) GetTransactions(ctx context.Context, userID string, limit int) ([]*entities.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, type, amount, currency, game_id, game_session_id, status, completed_at, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var result []*entities.Transaction
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return result, nil
}

// SumByType totals completed transaction amounts of one type for a user.
func (r *SQLiteRepository) SumByType(ctx context.Context, userID string, transactionType entities.TransactionType) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ? AND type = ? AND status = ?
	`

	var total int64
	err := r.db.QueryRowContext(ctx, query, userID, string(transactionType), string(entities.TransactionStatusCompleted)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("error summing transactions: %w", err)
	}
	return total, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// execer covers *sql.DB and *sql.Tx for statements shared between the plain
// and transactional paths.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// adjustBalance applies a signed delta to a wallet. The WHERE clause keeps
// the balance non-negative, so an insufficient debit simply matches no row.
func (r *SQLiteRepository) adjustBalance(ctx context.Context, ex execer, userID string, delta int64) error {
	query := `
		UPDATE wallets
		SET balance = balance + ?, updated_at = ?
		WHERE user_id = ? AND balance + ? >= 0
	`

	res, err := ex.ExecContext(ctx, query, delta, time.Now().Format(time.RFC3339Nano), userID, delta)
	if err != nil {
		return fmt.Errorf("error updating balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking balance update: %w", err)
	}
	if affected == 0 {
		var exists int
		probe := ex.QueryRowContext(ctx, `SELECT 1 FROM wallets WHERE user_id = ?`, userID)
		if err := probe.Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrWalletNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

// moveAndRecord is the shared body of DebitAndRecord and CreditAndRecord.
func (r *SQLiteRepository) moveAndRecord(ctx context.Context, record *entities.Transaction, delta int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.adjustBalance(ctx, tx, record.UserID, delta); err != nil {
		return 0, err
	}

	if err := insertTransaction(ctx, tx, prepareRecord(record)); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = ?`, record.UserID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("error reading balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}
	return balance, nil
}

func insertTransaction(ctx context.Context, ex execer, entry *entities.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, currency, game_id, game_session_id, status, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var completedAt any
	if !entry.CompletedAt.IsZero() {
		completedAt = entry.CompletedAt.Format(time.RFC3339Nano)
	}

	_, err := ex.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		string(entry.Type),
		entry.Amount,
		entry.Currency,
		entry.GameID,
		entry.GameSessionID,
		string(entry.Status),
		completedAt,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error inserting transaction: %w", err)
	}
	return nil
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*entities.Transaction, error) {
	var entry entities.Transaction
	var gameID, sessionID, completedAt sql.NullString
	var createdAt string

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		(*string)(&entry.Type),
		&entry.Amount,
		&entry.Currency,
		&gameID,
		&sessionID,
		(*string)(&entry.Status),
		&completedAt,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning transaction: %w", err)
	}

	entry.GameID = gameID.String
	entry.GameSessionID = sessionID.String

	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("error parsing transaction timestamp %q: %w", createdAt, err)
	}
	if completedAt.Valid {
		entry.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("error parsing completion timestamp %q: %w", completedAt.String, err)
		}
	}

	return &entry, nil
}
