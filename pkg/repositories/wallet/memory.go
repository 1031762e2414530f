package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgarza/eldorado/pkg/entities"
)

// MemoryRepository implements Repository using in-memory storage. It is the
// development and test backing; production runs on SQLite.
type MemoryRepository struct {
	wallets      map[string]*entities.Wallet
	transactions map[string][]*entities.Transaction
	mu           sync.RWMutex
}

// NewMemoryRepository creates a new in-memory wallet repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wallets:      make(map[string]*entities.Wallet),
		transactions: make(map[string][]*entities.Transaction),
	}
}

// GetWallet retrieves a wallet by user ID
func (r *MemoryRepository) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return nil, ErrWalletNotFound
	}

	// Return a copy to prevent concurrent modification
	walletCopy := *wallet
	return &walletCopy, nil
}

// CreateWallet creates a wallet for a new user.
func (r *MemoryRepository) CreateWallet(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.wallets[wallet.UserID]; exists {
		return ErrWalletExists
	}

	walletCopy := *wallet
	if walletCopy.Currency == "" {
		walletCopy.Currency = entities.DefaultCurrency
	}
	walletCopy.LastUpdated = time.Now()
	r.wallets[wallet.UserID] = &walletCopy

	return nil
}

// Credit adds amount to the wallet balance.
func (r *MemoryRepository) Credit(ctx context.Context, userID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(userID, amount)
}

// Debit subtracts amount from the wallet balance, refusing to go negative.
func (r *MemoryRepository) Debit(ctx context.Context, userID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(userID, -amount)
}

// DebitAndRecord applies the debit and appends the ledger entry under one
// lock hold, mirroring the single-transaction SQLite implementation.
func (r *MemoryRepository) DebitAndRecord(ctx context.Context, record *entities.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.applyLocked(record.UserID, -record.Amount); err != nil {
		return 0, err
	}
	r.appendLocked(record)
	return r.wallets[record.UserID].Balance, nil
}

// CreditAndRecord applies the credit and appends the ledger entry under one
// lock hold.
func (r *MemoryRepository) CreditAndRecord(ctx context.Context, record *entities.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.applyLocked(record.UserID, record.Amount); err != nil {
		return 0, err
	}
	r.appendLocked(record)
	return r.wallets[record.UserID].Balance, nil
}

// AddTransaction records a new transaction
func (r *MemoryRepository) AddTransaction(ctx context.Context, transaction *entities.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.appendLocked(transaction)
	return nil
}

// GetTransactions retrieves recent transactions for a user, newest first.
func (r *MemoryRepository) GetTransactions(ctx context.Context, userID string, limit int) ([]*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.transactions[userID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}

	// Entries are appended in order; walk backwards for newest first.
	result := make([]*entities.Transaction, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(result) < limit; i-- {
		entryCopy := *entries[i]
		result = append(result, &entryCopy)
	}
	return result, nil
}

// SumByType totals completed transaction amounts of one type for a user.
func (r *MemoryRepository) SumByType(ctx context.Context, userID string, transactionType entities.TransactionType) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, entry := range r.transactions[userID] {
		if entry.Type == transactionType && entry.Status == entities.TransactionStatusCompleted {
			total += entry.Amount
		}
	}
	return total, nil
}

// Close is a no-op for the memory repository.
func (r *MemoryRepository) Close() error {
	return nil
}

// applyLocked adjusts a balance by a signed delta. Callers hold the write
// lock.
func (r *MemoryRepository) applyLocked(userID string, delta int64) error {
	wallet, exists := r.wallets[userID]
	if !exists {
		return ErrWalletNotFound
	}
	if wallet.Balance+delta < 0 {
		return ErrInsufficientFunds
	}
	wallet.Balance += delta
	wallet.LastUpdated = time.Now()
	return nil
}

// appendLocked stores a completed copy of the record. Callers hold the write
// lock.
func (r *MemoryRepository) appendLocked(record *entities.Transaction) {
	entry := prepareRecord(record)
	r.transactions[entry.UserID] = append(r.transactions[entry.UserID], entry)
}

// prepareRecord fills the bookkeeping fields a caller may leave blank and
// returns a detached copy, so both store implementations persist identical
// shapes.
func prepareRecord(record *entities.Transaction) *entities.Transaction {
	entry := *record
	now := time.Now()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Currency == "" {
		entry.Currency = entities.DefaultCurrency
	}
	if entry.Status == "" {
		entry.Status = entities.TransactionStatusCompleted
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.CompletedAt.IsZero() && entry.Status == entities.TransactionStatusCompleted {
		entry.CompletedAt = now
	}

	// Reflect the filled fields back so callers see the persisted identity.
	*record = entry
	return &entry
}
