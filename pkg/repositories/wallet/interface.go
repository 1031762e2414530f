package wallet

import (
	"context"
	"errors"

	"github.com/sgarza/eldorado/pkg/entities"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")

	// ErrInsufficientFunds is returned by debit operations when the wallet
	// balance is below the requested amount. The balance is never driven
	// negative; callers surface this to the player as a rejected bet.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Repository defines the interface for wallet and ledger operations.
//
// DebitAndRecord and CreditAndRecord are the settlement primitives: they
// apply the balance change and append the ledger entry atomically, so a
// crash can never leave a balance move without its transaction (or the
// reverse). All bet and payout money flows through them.
type Repository interface {
	// GetWallet retrieves a wallet by user ID
	GetWallet(ctx context.Context, userID string) (*entities.Wallet, error)

	// CreateWallet creates a wallet with the given starting state. It fails
	// if a wallet already exists for the user.
	CreateWallet(ctx context.Context, wallet *entities.Wallet) error

	// Credit adds amount to the wallet balance without a ledger entry.
	Credit(ctx context.Context, userID string, amount int64) error

	// Debit subtracts amount from the wallet balance without a ledger
	// entry. Returns ErrInsufficientFunds when the balance would go
	// negative.
	Debit(ctx context.Context, userID string, amount int64) error

	// DebitAndRecord subtracts record.Amount from record.UserID's balance
	// and appends the ledger entry in one atomic step. Returns the balance
	// after the debit.
	DebitAndRecord(ctx context.Context, record *entities.Transaction) (int64, error)

	// CreditAndRecord adds record.Amount to record.UserID's balance and
	// appends the ledger entry in one atomic step. Returns the balance
	// after the credit.
	CreditAndRecord(ctx context.Context, record *entities.Transaction) (int64, error)

	// AddTransaction records a ledger entry with no balance change.
	AddTransaction(ctx context.Context, transaction *entities.Transaction) error

	// GetTransactions retrieves recent transactions for a user, newest
	// first.
	GetTransactions(ctx context.Context, userID string, limit int) ([]*entities.Transaction, error)

	// SumByType totals the completed transaction amounts of one type for a
	// user.
	SumByType(ctx context.Context, userID string, transactionType entities.TransactionType) (int64, error)

	// Close releases any resources held by the repository
	Close() error
}
