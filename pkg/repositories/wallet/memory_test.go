package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sgarza/eldorado/pkg/entities"
)

type MemoryRepositorySuite struct {
	suite.Suite
	repo *MemoryRepository
	ctx  context.Context
}

func TestMemoryRepositorySuite(t *testing.T) {
	suite.Run(t, new(MemoryRepositorySuite))
}

func (s *MemoryRepositorySuite) SetupTest() {
	s.repo = NewMemoryRepository()
	s.ctx = context.Background()
}

func (s *MemoryRepositorySuite) createWallet(userID string, balance int64) {
	s.Require().NoError(s.repo.CreateWallet(s.ctx, &entities.Wallet{
		UserID:  userID,
		Balance: balance,
	}))
}

func (s *MemoryRepositorySuite) TestCreateAndGetWallet() {
	s.createWallet("user1", 5000)

	wallet, err := s.repo.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal("user1", wallet.UserID)
	s.Equal(int64(5000), wallet.Balance)
	s.Equal(entities.DefaultCurrency, wallet.Currency)
}

func (s *MemoryRepositorySuite) TestCreateDuplicateWalletFails() {
	s.createWallet("user1", 0)
	err := s.repo.CreateWallet(s.ctx, &entities.Wallet{UserID: "user1"})
	s.ErrorIs(err, ErrWalletExists)
}

func (s *MemoryRepositorySuite) TestGetMissingWallet() {
	_, err := s.repo.GetWallet(s.ctx, "nobody")
	s.ErrorIs(err, ErrWalletNotFound)
}

func (s *MemoryRepositorySuite) TestDebitRefusesOverdraft() {
	s.createWallet("user1", 100)

	s.ErrorIs(s.repo.Debit(s.ctx, "user1", 200), ErrInsufficientFunds)

	wallet, err := s.repo.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal(int64(100), wallet.Balance, "failed debit must not move the balance")
}

func (s *MemoryRepositorySuite) TestDebitAndRecordIsAllOrNothing() {
	s.createWallet("user1", 100)

	_, err := s.repo.DebitAndRecord(s.ctx, &entities.Transaction{
		UserID: "user1",
		Type:   entities.TransactionTypeBet,
		Amount: 500,
	})
	s.ErrorIs(err, ErrInsufficientFunds)

	// Neither side applied: balance intact, ledger empty.
	wallet, err := s.repo.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal(int64(100), wallet.Balance)

	entries, err := s.repo.GetTransactions(s.ctx, "user1", 10)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *MemoryRepositorySuite) TestLedgerMatchesBalance() {
	s.createWallet("user1", 0)

	moves := []struct {
		kind   entities.TransactionType
		amount int64
	}{
		{entities.TransactionTypeDeposit, 10000},
		{entities.TransactionTypeBet, 1000},
		{entities.TransactionTypeWin, 2000},
		{entities.TransactionTypeBet, 500},
		{entities.TransactionTypeWithdrawal, 3000},
	}

	for _, move := range moves {
		record := &entities.Transaction{UserID: "user1", Type: move.kind, Amount: move.amount}
		var err error
		switch move.kind {
		case entities.TransactionTypeDeposit, entities.TransactionTypeWin:
			_, err = s.repo.CreditAndRecord(s.ctx, record)
		default:
			_, err = s.repo.DebitAndRecord(s.ctx, record)
		}
		s.Require().NoError(err)

		// Invariant holds at every observation point.
		wallet, err := s.repo.GetWallet(s.ctx, "user1")
		s.Require().NoError(err)

		entries, err := s.repo.GetTransactions(s.ctx, "user1", 100)
		s.Require().NoError(err)
		var sum int64
		for _, entry := range entries {
			sum += entry.Signed()
		}
		s.Equal(sum, wallet.Balance)
	}

	deposits, err := s.repo.SumByType(s.ctx, "user1", entities.TransactionTypeDeposit)
	s.Require().NoError(err)
	s.Equal(int64(10000), deposits)

	bets, err := s.repo.SumByType(s.ctx, "user1", entities.TransactionTypeBet)
	s.Require().NoError(err)
	s.Equal(int64(1500), bets)
}

func (s *MemoryRepositorySuite) TestGetTransactionsNewestFirst() {
	s.createWallet("user1", 0)

	for _, amount := range []int64{1, 2, 3} {
		_, err := s.repo.CreditAndRecord(s.ctx, &entities.Transaction{
			UserID: "user1",
			Type:   entities.TransactionTypeDeposit,
			Amount: amount,
		})
		s.Require().NoError(err)
	}

	entries, err := s.repo.GetTransactions(s.ctx, "user1", 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(3), entries[0].Amount)
	s.Equal(int64(2), entries[1].Amount)
}

func (s *MemoryRepositorySuite) TestRecordFieldsAreFilled() {
	s.createWallet("user1", 0)

	record := &entities.Transaction{
		UserID: "user1",
		Type:   entities.TransactionTypeDeposit,
		Amount: 100,
	}
	_, err := s.repo.CreditAndRecord(s.ctx, record)
	s.Require().NoError(err)

	s.NotEmpty(record.ID)
	s.Equal(entities.DefaultCurrency, record.Currency)
	s.Equal(entities.TransactionStatusCompleted, record.Status)
	s.False(record.CreatedAt.IsZero())
	s.False(record.CompletedAt.IsZero())
}

func (s *MemoryRepositorySuite) TestConcurrentDebitsNeverOverdraw() {
	s.createWallet("user1", 1000)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.repo.DebitAndRecord(s.ctx, &entities.Transaction{
				UserID: "user1",
				Type:   entities.TransactionTypeBet,
				Amount: 300,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, ErrInsufficientFunds)
		}
	}
	s.Equal(3, succeeded, "only three 300-unit debits fit in 1000")

	wallet, err := s.repo.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal(int64(100), wallet.Balance)
}
