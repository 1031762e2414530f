package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sgarza/eldorado/internal/logging"
	"github.com/sgarza/eldorado/internal/types"
	"github.com/sgarza/eldorado/pkg/entities"
	"github.com/sgarza/eldorado/pkg/games/random"
	gameRepo "github.com/sgarza/eldorado/pkg/repositories/game"
	sessionRepo "github.com/sgarza/eldorado/pkg/repositories/session"
	walletRepo "github.com/sgarza/eldorado/pkg/repositories/wallet"
)

type EngineSuite struct {
	suite.Suite
	ctx      context.Context
	wallets  *walletRepo.MemoryRepository
	sessions *sessionRepo.MemoryRepository
	catalog  *gameRepo.MemoryRepository
	notifier *recordingNotifier
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.wallets = walletRepo.NewMemoryRepository()
	s.sessions = sessionRepo.NewMemoryRepository()
	s.catalog = gameRepo.NewMemoryRepository()
	s.Require().NoError(s.catalog.Seed(s.ctx))
	s.notifier = &recordingNotifier{}
}

// newEngine builds an engine over the suite's stores with a scripted random
// source.
func (s *EngineSuite) newEngine(src random.Source) *Engine {
	return New(Deps{
		Wallets:  s.wallets,
		Sessions: s.sessions,
		Catalog:  s.catalog,
		Logger:   logging.NewNop(),
		Notifier: s.notifier,
		Source:   src,
	})
}

func (s *EngineSuite) fund(userID string, balance int64) {
	s.Require().NoError(s.wallets.CreateWallet(s.ctx, &entities.Wallet{
		UserID:  userID,
		Balance: balance,
	}))
}

// assertLedgerMatchesBalance checks the core money invariant for a user.
func (s *EngineSuite) assertLedgerMatchesBalance(userID string) {
	wallet, err := s.wallets.GetWallet(s.ctx, userID)
	s.Require().NoError(err)

	entries, err := s.wallets.GetTransactions(s.ctx, userID, 1000)
	s.Require().NoError(err)

	var sum int64
	for _, entry := range entries {
		sum += entry.Signed()
	}
	s.Equal(sum, wallet.Balance, "ledger sum must equal balance")
}

type recordingNotifier struct {
	mu       sync.Mutex
	balances []int64
	sessions []*entities.GameSession
}

func (n *recordingNotifier) BalanceChanged(_ string, balance int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances = append(n.balances, balance)
}

func (n *recordingNotifier) GameStateChanged(session *entities.GameSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions = append(n.sessions, session)
}

func (s *EngineSuite) TestSlotsFullFlow() {
	s.fund("user1", 10000)

	// Every draw picks symbol index 0, so all five paylines match the
	// cherry line at 10x.
	eng := s.newEngine(random.NewSequence(0))

	started, err := eng.StartSession(s.ctx, "user1", "classic-slots", 1000)
	s.Require().NoError(err)
	s.Equal(int64(9000), started.Balance)
	s.Equal(entities.SessionStatusActive, started.Session.Status)
	s.Equal(int64(10000), started.Session.StartBalance)

	opening := started.Session.CurrentBet().Outcome
	s.Require().NotNil(opening.Slots)
	s.False(opening.Slots.Spun)

	result, err := eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionSpin})
	s.Require().NoError(err)

	// 5 paylines x 10x multiplier x 1000 bet.
	s.Equal(int64(9000+50000), result.Balance)
	s.Equal(entities.SessionStatusCompleted, result.Session.Status)
	s.Equal(int64(59000), result.Session.EndBalance)
	s.False(result.Session.EndTime.IsZero())

	outcome := result.Session.CurrentBet().Outcome
	s.Require().NotNil(outcome.Slots)
	s.True(outcome.Slots.Spun)
	s.Equal(int64(50000), outcome.Slots.WinAmount)
	s.Len(outcome.Slots.Wins, 5)

	s.assertLedgerMatchesBalance("user1")
	s.NotEmpty(s.notifier.balances)
	s.NotEmpty(s.notifier.sessions)
}

func (s *EngineSuite) TestSlotsLosingSpinPaysNothing() {
	s.fund("user1", 10000)

	// Alternating symbols produce no matching payline.
	eng := s.newEngine(random.NewSequence(0, 1, 2, 3, 4, 5, 6, 0, 2))

	started, err := eng.StartSession(s.ctx, "user1", "classic-slots", 1000)
	s.Require().NoError(err)

	result, err := eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionSpin})
	s.Require().NoError(err)

	s.Equal(entities.SessionStatusCompleted, result.Session.Status)
	s.Equal(int64(9000), result.Balance, "losing spin settles without a win credit")

	// No win transaction was created for the zero-value win.
	entries, err := s.wallets.GetTransactions(s.ctx, "user1", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(entities.TransactionTypeBet, entries[0].Type)

	s.assertLedgerMatchesBalance("user1")
}

func (s *EngineSuite) TestActionOnSettledSessionFails() {
	s.fund("user1", 10000)
	eng := s.newEngine(random.NewSequence(0))

	started, err := eng.StartSession(s.ctx, "user1", "classic-slots", 1000)
	s.Require().NoError(err)

	first, err := eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionSpin})
	s.Require().NoError(err)
	balanceAfter := first.Balance

	_, err = eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionSpin})
	s.True(types.IsKind(err, types.KindInvalidSessionState), "got %v", err)

	// The balance reflects the winnings exactly once.
	wallet, err := s.wallets.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal(balanceAfter, wallet.Balance)
}

func (s *EngineSuite) TestRouletteFlow() {
	s.fund("user1", 10000)

	// The wheel draw is scripted to land on 1 (red).
	eng := s.newEngine(random.NewSequence(1))

	started, err := eng.StartSession(s.ctx, "user1", "european-roulette", 1000)
	s.Require().NoError(err)
	s.Equal(int64(9000), started.Balance)

	result, err := eng.ApplyAction(s.ctx, started.Session.ID, Action{
		Type: ActionSpin,
		RouletteBets: []entities.RouletteBet{
			{Type: entities.BetRed, Amount: 500},
			{Type: entities.BetStraight, Number: 17, Amount: 500},
		},
	})
	s.Require().NoError(err)

	outcome := result.Session.CurrentBet().Outcome.Roulette
	s.Require().NotNil(outcome.Result)
	s.Equal(1, outcome.Result.Number)
	s.Equal(entities.ColorRed, outcome.Result.Color)

	// Red pays 500x2, the straight on 17 loses.
	s.Equal(int64(1000), outcome.Winnings)
	s.Equal(int64(10000), result.Balance)
	s.Equal(entities.SessionStatusCompleted, result.Session.Status)

	s.assertLedgerMatchesBalance("user1")
}

func (s *EngineSuite) TestRouletteRejectsBadBets() {
	s.fund("user1", 10000)
	eng := s.newEngine(random.NewSequence(1))

	started, err := eng.StartSession(s.ctx, "user1", "european-roulette", 1000)
	s.Require().NoError(err)

	// Stake mismatch.
	_, err = eng.ApplyAction(s.ctx, started.Session.ID, Action{
		Type:         ActionSpin,
		RouletteBets: []entities.RouletteBet{{Type: entities.BetRed, Amount: 700}},
	})
	s.True(types.IsKind(err, types.KindValidation), "got %v", err)

	// Unknown bet type.
	_, err = eng.ApplyAction(s.ctx, started.Session.ID, Action{
		Type:         ActionSpin,
		RouletteBets: []entities.RouletteBet{{Type: "snake", Amount: 1000}},
	})
	s.True(types.IsKind(err, types.KindValidation), "got %v", err)

	// The session survives rejected submissions and still settles.
	result, err := eng.ApplyAction(s.ctx, started.Session.ID, Action{
		Type:         ActionSpin,
		RouletteBets: []entities.RouletteBet{{Type: entities.BetBlack, Amount: 1000}},
	})
	s.Require().NoError(err)
	s.Equal(entities.SessionStatusCompleted, result.Session.Status)
}

func (s *EngineSuite) TestBlackjackFlowSettlesConsistently() {
	s.fund("user1", 100000)
	eng := s.newEngine(random.NewSeededSource(11))

	started, err := eng.StartSession(s.ctx, "user1", "blackjack-pro", 1000)
	s.Require().NoError(err)

	state := started.Session.CurrentBet().Outcome.Blackjack
	s.Require().NotNil(state)

	if started.Session.Status == entities.SessionStatusActive {
		// Dealer hole card and deck are hidden while the hand is live.
		s.Len(state.DealerHand, 1)
		s.Empty(state.Deck)

		view, err := eng.GetSession(s.ctx, started.Session.ID)
		s.Require().NoError(err)
		s.Len(view.CurrentBet().Outcome.Blackjack.DealerHand, 1)

		result, err := eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionStand})
		s.Require().NoError(err)
		s.Equal(entities.SessionStatusCompleted, result.Session.Status)

		final := result.Session.CurrentBet().Outcome.Blackjack
		s.Equal(entities.PhaseComplete, final.Phase)
		s.GreaterOrEqual(final.DealerValue, 17)

		// End balance = start - bet + winnings, whatever the result.
		s.Equal(int64(100000)-1000+final.Winnings, result.Balance)
	} else {
		// Natural on the deal settled immediately at 3:2.
		s.Equal(entities.ResultBlackjack, state.Result)
		s.Equal(int64(100000)-1000+state.Winnings, started.Balance)
	}

	s.assertLedgerMatchesBalance("user1")
}

// The notifier is the push channel to clients, so it must receive the same
// masked snapshot callers get: no hole card, no undealt deck.
func (s *EngineSuite) TestNotifierGetsMaskedBlackjackSession() {
	s.fund("user1", 100000)
	eng := s.newEngine(random.NewSeededSource(11))

	started, err := eng.StartSession(s.ctx, "user1", "blackjack-pro", 1000)
	s.Require().NoError(err)

	s.Require().NotEmpty(s.notifier.sessions)
	notified := s.notifier.sessions[len(s.notifier.sessions)-1]
	state := notified.CurrentBet().Outcome.Blackjack
	s.Require().NotNil(state)

	s.Empty(state.Deck, "undealt deck must not leave the engine")
	if started.Session.Status == entities.SessionStatusActive {
		s.Len(state.DealerHand, 1, "hole card stays hidden while the hand is live")
	}
}

// strandSession stores an active session whose hand already resolved: the
// state left behind when a settlement save fails after the game finished.
func (s *EngineSuite) strandSession(id string) *entities.GameSession {
	session := &entities.GameSession{
		ID:           id,
		UserID:       "user1",
		GameID:       "blackjack-pro",
		StartBalance: 10000,
		Bets: []entities.Bet{{
			Amount: 1000,
			Outcome: &entities.Outcome{
				Game: entities.GameTypeBlackjack,
				Blackjack: &entities.BlackjackOutcome{
					Phase: entities.PhaseComplete,
					PlayerHand: []entities.Card{
						{Suit: entities.Spades, Rank: entities.Ace},
						{Suit: entities.Hearts, Rank: entities.King},
					},
					DealerHand: []entities.Card{
						{Suit: entities.Clubs, Rank: entities.Ten},
						{Suit: entities.Diamonds, Rank: entities.Nine},
					},
					Bet:         1000,
					PlayerValue: 21,
					DealerValue: 19,
					Result:      entities.ResultBlackjack,
					Winnings:    2500,
				},
			},
			Timestamp: time.Now(),
		}},
		Status:    entities.SessionStatusActive,
		StartTime: time.Now(),
	}
	s.Require().NoError(s.sessions.CreateSession(s.ctx, session))
	return session
}

// A retried action on a stranded session must complete the settlement and
// pay the win exactly once.
func (s *EngineSuite) TestRetrySettlesStrandedTerminalOutcome() {
	s.fund("user1", 9000)
	session := s.strandSession("stranded")
	eng := s.newEngine(random.NewSequence(0))

	result, err := eng.ApplyAction(s.ctx, session.ID, Action{Type: ActionStand})
	s.Require().NoError(err)
	s.Equal(entities.SessionStatusCompleted, result.Session.Status)
	s.Equal(int64(11500), result.Balance, "the 3:2 win lands on retry")

	entries, err := s.wallets.GetTransactions(s.ctx, "user1", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(entities.TransactionTypeWin, entries[0].Type)
	s.Equal(int64(2500), entries[0].Amount)

	// A further retry sees the completed session and pays nothing more.
	_, err = eng.ApplyAction(s.ctx, session.ID, Action{Type: ActionStand})
	s.True(types.IsKind(err, types.KindInvalidSessionState), "got %v", err)

	wallet, err := s.wallets.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal(int64(11500), wallet.Balance)
}

// newGame on a stranded session settles the finished hand first, then opens
// the rebet session.
func (s *EngineSuite) TestNewGameSettlesStrandedSessionBeforeRebet() {
	s.fund("user1", 9000)
	session := s.strandSession("stranded")
	eng := s.newEngine(random.NewSeededSource(7))

	result, err := eng.ApplyAction(s.ctx, session.ID, Action{Type: ActionNewGame})
	s.Require().NoError(err)
	s.NotEqual(session.ID, result.Session.ID)
	s.Equal(int64(1000), result.Session.CurrentBet().Amount)

	settled, err := eng.GetSession(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(entities.SessionStatusCompleted, settled.Status)
}

func (s *EngineSuite) TestBlackjackHitRejectsWrongGame() {
	s.fund("user1", 10000)
	eng := s.newEngine(random.NewSequence(0))

	started, err := eng.StartSession(s.ctx, "user1", "classic-slots", 1000)
	s.Require().NoError(err)

	_, err = eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionHit})
	s.True(types.IsKind(err, types.KindValidation), "got %v", err)
}

func (s *EngineSuite) TestNewGameRebetsOnFinishedSession() {
	s.fund("user1", 100000)
	eng := s.newEngine(random.NewSeededSource(3))

	started, err := eng.StartSession(s.ctx, "user1", "blackjack-pro", 1000)
	s.Require().NoError(err)

	// newGame on a live hand is rejected.
	if started.Session.Status == entities.SessionStatusActive {
		_, err = eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionNewGame})
		s.True(types.IsKind(err, types.KindInvalidSessionState), "got %v", err)

		_, err = eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionStand})
		s.Require().NoError(err)
	}

	rebet, err := eng.ApplyAction(s.ctx, started.Session.ID, Action{Type: ActionNewGame})
	s.Require().NoError(err)
	s.NotEqual(started.Session.ID, rebet.Session.ID)
	s.Equal(int64(1000), rebet.Session.CurrentBet().Amount)

	s.assertLedgerMatchesBalance("user1")
}

func (s *EngineSuite) TestStartSessionValidation() {
	s.fund("user1", 10000)
	eng := s.newEngine(random.NewSequence(0))

	_, err := eng.StartSession(s.ctx, "user1", "craps", 1000)
	s.True(types.IsKind(err, types.KindNotFound), "got %v", err)

	// Below minimum bet.
	_, err = eng.StartSession(s.ctx, "user1", "classic-slots", 50)
	s.True(types.IsKind(err, types.KindValidation), "got %v", err)

	// Above maximum bet.
	_, err = eng.StartSession(s.ctx, "user1", "classic-slots", 20000)
	s.True(types.IsKind(err, types.KindValidation), "got %v", err)

	_, err = eng.StartSession(s.ctx, "ghost", "classic-slots", 1000)
	s.True(types.IsKind(err, types.KindNotFound), "got %v", err)
}

func (s *EngineSuite) TestInsufficientFundsLeavesNoTrace() {
	s.fund("user1", 500)
	eng := s.newEngine(random.NewSequence(0))

	_, err := eng.StartSession(s.ctx, "user1", "classic-slots", 1000)
	s.True(types.IsKind(err, types.KindInsufficientFunds), "got %v", err)

	wallet, err := s.wallets.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal(int64(500), wallet.Balance)

	entries, err := s.wallets.GetTransactions(s.ctx, "user1", 10)
	s.Require().NoError(err)
	s.Empty(entries, "a rejected bet must not reach the ledger")
}

func (s *EngineSuite) TestConcurrentBetsNeverOverdraw() {
	s.fund("user1", 1500)
	eng := s.newEngine(random.NewSeededSource(5))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.StartSession(s.ctx, "user1", "classic-slots", 1000)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(types.IsKind(err, types.KindInsufficientFunds), "got %v", err)
			rejected++
		}
	}
	s.Equal(1, succeeded, "two 1000 bets cannot both fit in 1500")
	s.Equal(1, rejected)

	wallet, err := s.wallets.GetWallet(s.ctx, "user1")
	s.Require().NoError(err)
	s.Equal(int64(500), wallet.Balance)
	s.assertLedgerMatchesBalance("user1")
}

func (s *EngineSuite) TestDepositAndWithdraw() {
	eng := s.newEngine(random.NewSequence(0))

	// Deposit creates the wallet on first contact.
	balance, err := eng.Deposit(s.ctx, "fresh", 5000)
	s.Require().NoError(err)
	s.Equal(int64(5000), balance)

	balance, err = eng.Withdraw(s.ctx, "fresh", 2000)
	s.Require().NoError(err)
	s.Equal(int64(3000), balance)

	_, err = eng.Withdraw(s.ctx, "fresh", 9999)
	s.True(types.IsKind(err, types.KindInsufficientFunds), "got %v", err)

	_, err = eng.Deposit(s.ctx, "fresh", -5)
	s.True(types.IsKind(err, types.KindValidation), "got %v", err)

	s.assertLedgerMatchesBalance("fresh")
}

func (s *EngineSuite) TestGetSessionNotFound() {
	eng := s.newEngine(random.NewSequence(0))
	_, err := eng.GetSession(s.ctx, "missing")
	s.True(types.IsKind(err, types.KindNotFound), "got %v", err)
}
