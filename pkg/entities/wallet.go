package entities

import (
	"time"
)

// Wallet holds a user's balance. Amounts are integer cents; the balance is
// never allowed below zero, enforced at debit time by the wallet repository.
type Wallet struct {
	UserID      string    `json:"userId"`
	Balance     int64     `json:"balance"`
	Currency    string    `json:"currency"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// DefaultCurrency is applied to wallets and transactions created without one.
const DefaultCurrency = "USD"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeBet        TransactionType = "bet"
	TransactionTypeWin        TransactionType = "win"
)

// TransactionStatus is the settlement status of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an immutable ledger entry. Amount is always positive; the
// sign is implied by Type. The signed sum of a user's completed entries
// (deposit + win - withdrawal - bet) must equal their wallet balance.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Type          TransactionType   `json:"type"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	GameID        string            `json:"gameId,omitempty"`
	GameSessionID string            `json:"gameSessionId,omitempty"`
	Status        TransactionStatus `json:"status"`
	CompletedAt   time.Time         `json:"completedAt"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// Signed returns the amount with the sign implied by the transaction type.
func (t *Transaction) Signed() int64 {
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeWin:
		return t.Amount
	case TransactionTypeWithdrawal, TransactionTypeBet:
		return -t.Amount
	}
	return 0
}
