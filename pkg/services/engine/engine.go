// Package engine is the settlement coordinator: it owns the money path from
// bet placement through outcome generation to settlement. Game packages
// compute outcomes; stores persist them; only the engine moves balances.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sgarza/eldorado/internal/types"
	"github.com/sgarza/eldorado/pkg/entities"
	"github.com/sgarza/eldorado/pkg/games/blackjack"
	"github.com/sgarza/eldorado/pkg/games/random"
	"github.com/sgarza/eldorado/pkg/games/slots"
	gameRepo "github.com/sgarza/eldorado/pkg/repositories/game"
	sessionRepo "github.com/sgarza/eldorado/pkg/repositories/session"
	walletRepo "github.com/sgarza/eldorado/pkg/repositories/wallet"
)

// Deps are the collaborators the engine is built from.
type Deps struct {
	Wallets  walletRepo.Repository
	Sessions sessionRepo.Repository
	Catalog  gameRepo.Repository
	Logger   *logrus.Logger
	Notifier Notifier
	Source   random.Source

	// StoreTimeout bounds every persistence call. Zero selects a default.
	StoreTimeout time.Duration
}

// Engine coordinates game play and settlement for all users.
type Engine struct {
	wallets  walletRepo.Repository
	sessions sessionRepo.Repository
	catalog  gameRepo.Repository
	log      *logrus.Logger
	notifier Notifier
	source   random.Source
	slots    *slots.Machine

	storeTimeout time.Duration
	userLocks    *keyedMutex
}

const defaultStoreTimeout = 5 * time.Second

// New creates an engine. Logger and Notifier may be nil; Source defaults to
// a shared time-seeded source.
func New(deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Source == nil {
		deps.Source = random.NewConcurrentSource()
	}
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = defaultStoreTimeout
	}

	return &Engine{
		wallets:      deps.Wallets,
		sessions:     deps.Sessions,
		catalog:      deps.Catalog,
		log:          deps.Logger,
		notifier:     deps.Notifier,
		source:       deps.Source,
		slots:        slots.NewMachine(slots.Config{}),
		storeTimeout: deps.StoreTimeout,
		userLocks:    newKeyedMutex(),
	}
}

// ActionResult is returned by the session-mutating operations: the
// caller-facing session snapshot plus the wallet balance after the
// operation.
type ActionResult struct {
	Session *entities.GameSession
	Balance int64
}

// StartSession places a bet and opens a session for the user on the given
// game. The bet debit, its ledger entry, and the session creation behave as
// one unit: a session is never observable without its debit. Blackjack
// deals the opening hand immediately; a natural 21 settles before this
// returns.
func (e *Engine) StartSession(ctx context.Context, userID, gameID string, betAmount int64) (*ActionResult, error) {
	unlock := e.userLocks.Lock(userID)
	defer unlock()

	return e.startSessionLocked(ctx, userID, gameID, betAmount)
}

func (e *Engine) startSessionLocked(ctx context.Context, userID, gameID string, betAmount int64) (*ActionResult, error) {
	game, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsActive {
		return nil, types.Errorf(types.KindValidation, "game %s is not open for play", gameID)
	}
	if betAmount < game.MinBet || betAmount > game.MaxBet {
		return nil, types.Errorf(types.KindValidation,
			"bet %d outside allowed range %d-%d for game %s", betAmount, game.MinBet, game.MaxBet, gameID)
	}

	wallet, err := e.loadWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < betAmount {
		return nil, types.Errorf(types.KindInsufficientFunds,
			"balance %d below bet %d", wallet.Balance, betAmount)
	}

	outcome, err := e.openingOutcome(game, betAmount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &entities.GameSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		GameID:       game.ID,
		StartBalance: wallet.Balance,
		Bets: []entities.Bet{{
			Amount:    betAmount,
			Outcome:   outcome,
			Timestamp: now,
		}},
		Status:    entities.SessionStatusActive,
		StartTime: now,
	}

	balance, err := e.debitBet(ctx, session, betAmount)
	if err != nil {
		return nil, err
	}

	if err := e.createSession(ctx, session); err != nil {
		e.refundBet(ctx, session, betAmount)
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    userID,
		"game_id":    game.ID,
		"bet":        betAmount,
	}).Info("session started")

	// A natural blackjack resolves during the deal; settle it now so the
	// caller sees a completed session with the payout applied.
	if outcome.Game == entities.GameTypeBlackjack && outcome.Blackjack.Phase == entities.PhaseComplete {
		if balance, err = e.settle(ctx, session); err != nil {
			return nil, err
		}
	}

	view := sessionView(session)
	e.notifier.BalanceChanged(userID, balance)
	e.notifier.GameStateChanged(view)

	return &ActionResult{Session: view, Balance: balance}, nil
}

// GetSession returns the caller-facing snapshot of a session. In-play
// blackjack hands hide the dealer hole card and the undealt deck.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*entities.GameSession, error) {
	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionView(session), nil
}

// GetOrCreateWallet fetches the user's wallet, creating an empty one on
// first contact.
func (e *Engine) GetOrCreateWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	unlock := e.userLocks.Lock(userID)
	defer unlock()
	return e.getOrCreateWalletLocked(ctx, userID)
}

func (e *Engine) getOrCreateWalletLocked(ctx context.Context, userID string) (*entities.Wallet, error) {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	wallet, err := e.wallets.GetWallet(storeCtx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, walletRepo.ErrWalletNotFound) {
		return nil, e.storeError("load wallet", err)
	}

	wallet = &entities.Wallet{
		UserID:   userID,
		Currency: entities.DefaultCurrency,
	}
	if err := e.wallets.CreateWallet(storeCtx, wallet); err != nil {
		return nil, e.storeError("create wallet", err)
	}
	return wallet, nil
}

// Deposit credits funds into the user's wallet with a ledger entry,
// creating the wallet if needed.
func (e *Engine) Deposit(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, types.NewError(types.KindValidation, "deposit amount must be positive")
	}

	unlock := e.userLocks.Lock(userID)
	defer unlock()

	if _, err := e.getOrCreateWalletLocked(ctx, userID); err != nil {
		return 0, err
	}

	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	balance, err := e.wallets.CreditAndRecord(storeCtx, &entities.Transaction{
		UserID: userID,
		Type:   entities.TransactionTypeDeposit,
		Amount: amount,
	})
	if err != nil {
		return 0, e.storeError("deposit", err)
	}

	e.notifier.BalanceChanged(userID, balance)
	return balance, nil
}

// Withdraw debits funds from the user's wallet with a ledger entry.
func (e *Engine) Withdraw(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, types.NewError(types.KindValidation, "withdrawal amount must be positive")
	}

	unlock := e.userLocks.Lock(userID)
	defer unlock()

	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	balance, err := e.wallets.DebitAndRecord(storeCtx, &entities.Transaction{
		UserID: userID,
		Type:   entities.TransactionTypeWithdrawal,
		Amount: amount,
	})
	if err != nil {
		return 0, e.storeError("withdraw", err)
	}

	e.notifier.BalanceChanged(userID, balance)
	return balance, nil
}

// openingOutcome builds the outcome payload recorded at session start.
func (e *Engine) openingOutcome(game *entities.Game, betAmount int64) (*entities.Outcome, error) {
	switch game.Type {
	case entities.GameTypeSlots:
		return &entities.Outcome{
			Game:  entities.GameTypeSlots,
			Slots: e.slots.Placeholder(betAmount),
		}, nil
	case entities.GameTypeBlackjack:
		state, err := blackjack.Deal(e.source, betAmount)
		if err != nil {
			return nil, types.WrapError(types.KindTransientStore, "deal opening hand", err)
		}
		return &entities.Outcome{
			Game:      entities.GameTypeBlackjack,
			Blackjack: state,
		}, nil
	case entities.GameTypeRoulette:
		return &entities.Outcome{
			Game:     entities.GameTypeRoulette,
			Roulette: &entities.RouletteOutcome{Bet: betAmount},
		}, nil
	default:
		return nil, types.Errorf(types.KindValidation, "game type %q is not playable", game.Type)
	}
}

// debitBet applies the bet debit and ledger entry atomically.
func (e *Engine) debitBet(ctx context.Context, session *entities.GameSession, amount int64) (int64, error) {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	balance, err := e.wallets.DebitAndRecord(storeCtx, &entities.Transaction{
		UserID:        session.UserID,
		Type:          entities.TransactionTypeBet,
		Amount:        amount,
		GameID:        session.GameID,
		GameSessionID: session.ID,
	})
	if err != nil {
		return 0, e.storeError("place bet", err)
	}
	return balance, nil
}

// refundBet compensates a debited bet when the session could not be
// created. The reversing entry is typed as a win against the same session
// ID so the ledger sum still matches the balance. Reversals are the win
// transactions whose session ID has no stored session row; reconciliation
// excludes those pairs before reading per-type totals.
func (e *Engine) refundBet(ctx context.Context, session *entities.GameSession, amount int64) {
	storeCtx, cancel := e.storeContext(context.WithoutCancel(ctx))
	defer cancel()

	_, err := e.wallets.CreditAndRecord(storeCtx, &entities.Transaction{
		UserID:        session.UserID,
		Type:          entities.TransactionTypeWin,
		Amount:        amount,
		GameID:        session.GameID,
		GameSessionID: session.ID,
	})
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"session_id": session.ID,
			"user_id":    session.UserID,
			"amount":     amount,
		}).WithError(err).Error("failed to refund bet after session create failure")
	}
}

func (e *Engine) createSession(ctx context.Context, session *entities.GameSession) error {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	if err := e.sessions.CreateSession(storeCtx, session); err != nil {
		return e.storeError("create session", err)
	}
	return nil
}

func (e *Engine) loadGame(ctx context.Context, gameID string) (*entities.Game, error) {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	game, err := e.catalog.GetGame(storeCtx, gameID)
	if err != nil {
		if errors.Is(err, gameRepo.ErrGameNotFound) {
			return nil, types.Errorf(types.KindNotFound, "game %s not found", gameID)
		}
		return nil, e.storeError("load game", err)
	}
	return game, nil
}

func (e *Engine) loadWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	wallet, err := e.wallets.GetWallet(storeCtx, userID)
	if err != nil {
		if errors.Is(err, walletRepo.ErrWalletNotFound) {
			return nil, types.Errorf(types.KindNotFound, "wallet for user %s not found", userID)
		}
		return nil, e.storeError("load wallet", err)
	}
	return wallet, nil
}

func (e *Engine) loadSession(ctx context.Context, sessionID string) (*entities.GameSession, error) {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	session, err := e.sessions.GetSession(storeCtx, sessionID)
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return nil, types.Errorf(types.KindNotFound, "session %s not found", sessionID)
		}
		return nil, e.storeError("load session", err)
	}
	return session, nil
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.storeTimeout)
}

// storeError maps a repository failure onto the caller taxonomy. Timeouts
// and write conflicts are transient; the caller may retry, the engine never
// does.
func (e *Engine) storeError(op string, err error) error {
	switch {
	case errors.Is(err, walletRepo.ErrInsufficientFunds):
		return types.WrapError(types.KindInsufficientFunds, op, err)
	case errors.Is(err, walletRepo.ErrWalletNotFound),
		errors.Is(err, sessionRepo.ErrSessionNotFound),
		errors.Is(err, gameRepo.ErrGameNotFound):
		return types.WrapError(types.KindNotFound, op, err)
	default:
		return types.WrapError(types.KindTransientStore, op, err)
	}
}

// sessionView returns the session shaped for callers: a deep enough copy
// that masking blackjack state never mutates stored state.
func sessionView(session *entities.GameSession) *entities.GameSession {
	view := *session
	view.Bets = make([]entities.Bet, len(session.Bets))
	copy(view.Bets, session.Bets)

	for i := range view.Bets {
		outcome := view.Bets[i].Outcome
		if outcome == nil || outcome.Blackjack == nil {
			continue
		}
		masked := *outcome
		masked.Blackjack = blackjack.View(outcome.Blackjack)
		view.Bets[i].Outcome = &masked
	}
	return &view
}
