package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sgarza/eldorado/internal/types"
	"github.com/sgarza/eldorado/pkg/entities"
	"github.com/sgarza/eldorado/pkg/games/blackjack"
	"github.com/sgarza/eldorado/pkg/games/roulette"
)

// ActionType names a player action against an open session.
type ActionType string

const (
	ActionSpin    ActionType = "spin"    // slots and roulette
	ActionHit     ActionType = "hit"     // blackjack
	ActionStand   ActionType = "stand"   // blackjack
	ActionNewGame ActionType = "newGame" // blackjack: rebet on a finished session
)

// Action carries one player action. RouletteBets is consulted only for
// roulette spins, where the caller distributes the session stake across
// individual wagers.
type Action struct {
	Type         ActionType
	RouletteBets []entities.RouletteBet
}

// ApplyAction advances a session by one player action and settles it when
// the outcome turns terminal. All work runs under the session owner's lock,
// so a double-submitted action observes the first one's result instead of
// racing it.
func (e *Engine) ApplyAction(ctx context.Context, sessionID string, action Action) (*ActionResult, error) {
	// Resolve the owner before locking; the authoritative re-read happens
	// under the lock.
	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := e.userLocks.Lock(session.UserID)
	defer unlock()

	session, err = e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	game, err := e.loadGame(ctx, session.GameID)
	if err != nil {
		return nil, err
	}

	// A terminal outcome on a session still marked active means an earlier
	// settlement attempt failed after the game resolved. Finish that
	// settlement first, so a retried action recovers the payout instead of
	// dead-ending on phase checks.
	if !session.IsTerminal() {
		if bet := session.CurrentBet(); bet != nil && bet.Outcome != nil && outcomeTerminal(bet.Outcome) {
			balance, err := e.settle(ctx, session)
			if err != nil {
				return nil, err
			}
			view := sessionView(session)
			e.notifier.BalanceChanged(session.UserID, balance)
			e.notifier.GameStateChanged(view)
			if action.Type == ActionNewGame {
				return e.rebet(ctx, session, game)
			}
			return &ActionResult{Session: view, Balance: balance}, nil
		}
	}

	// newGame opens a fresh session with the same stake once this one is
	// finished; every other action requires the session to still be open.
	if action.Type == ActionNewGame {
		return e.rebet(ctx, session, game)
	}
	if session.IsTerminal() {
		return nil, types.Errorf(types.KindInvalidSessionState,
			"session %s is %s", session.ID, session.Status)
	}

	bet := session.CurrentBet()
	if bet == nil || bet.Outcome == nil {
		return nil, types.Errorf(types.KindInvalidSessionState,
			"session %s has no open bet", session.ID)
	}

	switch {
	case game.Type == entities.GameTypeSlots && action.Type == ActionSpin:
		err = e.spinSlots(bet)
	case game.Type == entities.GameTypeRoulette && action.Type == ActionSpin:
		err = e.spinRoulette(bet, action.RouletteBets)
	case game.Type == entities.GameTypeBlackjack && (action.Type == ActionHit || action.Type == ActionStand):
		err = e.playBlackjack(bet, action.Type)
	default:
		return nil, types.Errorf(types.KindValidation,
			"action %q is not valid for game type %s", action.Type, game.Type)
	}
	if err != nil {
		return nil, err
	}

	balance, err := e.finishAction(ctx, session, bet)
	if err != nil {
		return nil, err
	}

	view := sessionView(session)
	e.notifier.BalanceChanged(session.UserID, balance)
	e.notifier.GameStateChanged(view)

	return &ActionResult{Session: view, Balance: balance}, nil
}

// spinSlots resolves the single spin a slots session carries.
func (e *Engine) spinSlots(bet *entities.Bet) error {
	state := bet.Outcome.Slots
	if state == nil || state.Spun {
		return types.NewError(types.KindInvalidSessionState, "spin already resolved")
	}
	bet.Outcome.Slots = e.slots.Play(e.source, bet.Amount)
	return nil
}

// spinRoulette validates the submitted wagers against the session stake,
// spins the wheel, and resolves winnings.
func (e *Engine) spinRoulette(bet *entities.Bet, wagers []entities.RouletteBet) error {
	state := bet.Outcome.Roulette
	if state == nil || state.Result != nil {
		return types.NewError(types.KindInvalidSessionState, "spin already resolved")
	}

	if err := roulette.ValidateBets(wagers, bet.Amount); err != nil {
		return types.WrapError(types.KindValidation, "invalid roulette bets", err)
	}

	result := roulette.Spin(e.source)
	state.Bets = wagers
	state.Result = result
	state.Winnings = roulette.CalculateWinnings(wagers, result)
	return nil
}

// playBlackjack applies hit or stand to the persisted hand state.
func (e *Engine) playBlackjack(bet *entities.Bet, action ActionType) error {
	state := bet.Outcome.Blackjack
	if state == nil {
		return types.NewError(types.KindInvalidSessionState, "no blackjack hand in session")
	}

	var err error
	switch action {
	case ActionHit:
		err = blackjack.Hit(state)
	case ActionStand:
		err = blackjack.Stand(state)
	}
	if errors.Is(err, blackjack.ErrInvalidPhase) {
		return types.Errorf(types.KindInvalidSessionState,
			"cannot %s in phase %s", action, state.Phase)
	}
	if err != nil {
		return types.WrapError(types.KindTransientStore, "advance hand", err)
	}
	return nil
}

// rebet starts a new session mirroring a finished one's game and stake.
func (e *Engine) rebet(ctx context.Context, session *entities.GameSession, game *entities.Game) (*ActionResult, error) {
	if game.Type != entities.GameTypeBlackjack {
		return nil, types.Errorf(types.KindValidation,
			"action %q is not valid for game type %s", ActionNewGame, game.Type)
	}
	if !session.IsTerminal() {
		return nil, types.Errorf(types.KindInvalidSessionState,
			"session %s is still %s", session.ID, session.Status)
	}

	bet := session.CurrentBet()
	if bet == nil {
		return nil, types.Errorf(types.KindInvalidSessionState,
			"session %s has no bet to repeat", session.ID)
	}

	// Caller already holds the user lock.
	return e.startSessionLocked(ctx, session.UserID, session.GameID, bet.Amount)
}

// finishAction persists the advanced state, settling when it is terminal.
func (e *Engine) finishAction(ctx context.Context, session *entities.GameSession, bet *entities.Bet) (int64, error) {
	if outcomeTerminal(bet.Outcome) {
		return e.settle(ctx, session)
	}

	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.sessions.SaveSession(storeCtx, session); err != nil {
		return 0, e.storeError("save session", err)
	}

	wallet, err := e.loadWallet(ctx, session.UserID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// settle finalizes an active session: validates the outcome payload, marks
// the session completed, and credits the win.
//
// The completed session is saved before the credit moves money. Settling an
// already-completed session fails, so this ordering makes double payment
// impossible even across retries; a version conflict on the save aborts
// with wallet and ledger untouched.
func (e *Engine) settle(ctx context.Context, session *entities.GameSession) (int64, error) {
	if session.Status != entities.SessionStatusActive {
		return 0, types.Errorf(types.KindInvalidSessionState,
			"session %s already %s", session.ID, session.Status)
	}

	bet := session.CurrentBet()
	if bet == nil || bet.Outcome == nil {
		return 0, types.Errorf(types.KindInvalidSessionState,
			"session %s has no outcome to settle", session.ID)
	}
	if err := bet.Outcome.Validate(); err != nil {
		return 0, types.WrapError(types.KindValidation, "outcome payload invalid", err)
	}

	wallet, err := e.loadWallet(ctx, session.UserID)
	if err != nil {
		return 0, err
	}

	winAmount := bet.Outcome.WinAmount()
	endBalance := wallet.Balance + winAmount

	now := time.Now()
	session.Status = entities.SessionStatusCompleted
	session.EndBalance = endBalance
	session.EndTime = now

	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.sessions.SaveSession(storeCtx, session); err != nil {
		session.Status = entities.SessionStatusActive
		session.EndBalance = 0
		session.EndTime = time.Time{}
		return 0, e.storeError("save settled session", err)
	}

	balance := wallet.Balance
	if winAmount > 0 {
		creditCtx, cancelCredit := e.storeContext(context.WithoutCancel(ctx))
		defer cancelCredit()

		balance, err = e.wallets.CreditAndRecord(creditCtx, &entities.Transaction{
			UserID:        session.UserID,
			Type:          entities.TransactionTypeWin,
			Amount:        winAmount,
			GameID:        session.GameID,
			GameSessionID: session.ID,
		})
		if err != nil {
			// The session is durably completed but the payout did not
			// land; surface as transient so the operator can reconcile
			// from the ledger.
			e.log.WithFields(logrus.Fields{
				"session_id": session.ID,
				"user_id":    session.UserID,
				"win":        winAmount,
			}).WithError(err).Error("win credit failed after session completion")
			return 0, e.storeError("credit win", err)
		}
	}

	e.log.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"user_id":     session.UserID,
		"game_id":     session.GameID,
		"win":         winAmount,
		"end_balance": endBalance,
	}).Info("session settled")

	return balance, nil
}

// outcomeTerminal reports whether the payload has reached a settleable
// state.
func outcomeTerminal(outcome *entities.Outcome) bool {
	switch outcome.Game {
	case entities.GameTypeSlots:
		return outcome.Slots != nil && outcome.Slots.Spun
	case entities.GameTypeBlackjack:
		return outcome.Blackjack != nil && outcome.Blackjack.Phase == entities.PhaseComplete
	case entities.GameTypeRoulette:
		return outcome.Roulette != nil && outcome.Roulette.Result != nil
	}
	return false
}
