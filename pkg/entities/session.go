package entities

import (
	"errors"
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// GameSession records one play of one game by one user, from bet placement to
// terminal outcome. Once Status is completed the session is immutable.
// Version backs the optimistic concurrency check in the session store.
type GameSession struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	GameID       string        `json:"gameId"`
	StartBalance int64         `json:"startBalance"`
	EndBalance   int64         `json:"endBalance,omitempty"`
	Bets         []Bet         `json:"bets"`
	Status       SessionStatus `json:"status"`
	Version      int64         `json:"version"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Bet is one wager within a session. All three current games place exactly
// one bet per session; its Outcome is rewritten as the game progresses.
type Bet struct {
	Amount    int64     `json:"amount"`
	Outcome   *Outcome  `json:"outcome,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CurrentBet returns the session's bet entry, or nil if none was recorded.
func (s *GameSession) CurrentBet() *Bet {
	if len(s.Bets) == 0 {
		return nil
	}
	return &s.Bets[len(s.Bets)-1]
}

// IsTerminal reports whether the session reached a final status.
func (s *GameSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusAbandoned
}

var (
	ErrOutcomeGameUnknown  = errors.New("outcome game type unknown")
	ErrOutcomePayloadNil   = errors.New("outcome payload missing for game type")
	ErrOutcomePayloadExtra = errors.New("outcome carries payload for another game type")
)

// Outcome is the game-specific result payload embedded in a session's bet
// log. It is a tagged union: Game names the variant and exactly one payload
// pointer may be set. Validate is called at the settlement boundary so a
// loosely shaped payload never reaches the ledger.
type Outcome struct {
	Game      GameType          `json:"game"`
	Slots     *SlotsOutcome     `json:"slots,omitempty"`
	Blackjack *BlackjackOutcome `json:"blackjack,omitempty"`
	Roulette  *RouletteOutcome  `json:"roulette,omitempty"`
}

// Validate checks the tag/payload pairing.
func (o *Outcome) Validate() error {
	var want, extra int
	switch o.Game {
	case GameTypeSlots:
		if o.Slots != nil {
			want = 1
		}
		if o.Blackjack != nil || o.Roulette != nil {
			extra = 1
		}
	case GameTypeBlackjack:
		if o.Blackjack != nil {
			want = 1
		}
		if o.Slots != nil || o.Roulette != nil {
			extra = 1
		}
	case GameTypeRoulette:
		if o.Roulette != nil {
			want = 1
		}
		if o.Slots != nil || o.Blackjack != nil {
			extra = 1
		}
	default:
		return fmt.Errorf("%w: %q", ErrOutcomeGameUnknown, o.Game)
	}

	if want == 0 {
		return fmt.Errorf("%w: %s", ErrOutcomePayloadNil, o.Game)
	}
	if extra != 0 {
		return fmt.Errorf("%w: %s", ErrOutcomePayloadExtra, o.Game)
	}
	return nil
}

// WinAmount returns the settled win for the outcome, zero when the variant
// has not resolved yet.
func (o *Outcome) WinAmount() int64 {
	switch o.Game {
	case GameTypeSlots:
		if o.Slots != nil {
			return o.Slots.WinAmount
		}
	case GameTypeBlackjack:
		if o.Blackjack != nil {
			return o.Blackjack.Winnings
		}
	case GameTypeRoulette:
		if o.Roulette != nil {
			return o.Roulette.Winnings
		}
	}
	return 0
}

// SlotLineWin describes one matched payline.
type SlotLineWin struct {
	Line       int      `json:"line"`
	Symbols    []string `json:"symbols"`
	Multiplier int64    `json:"multiplier"`
	Amount     int64    `json:"amount"`
}

// SlotsOutcome is the resolved state of a slot spin. Reels is reel-major:
// Reels[reel][row].
type SlotsOutcome struct {
	Reels     [][]string    `json:"reels"`
	Wins      []SlotLineWin `json:"wins"`
	Bet       int64         `json:"bet"`
	WinAmount int64         `json:"winAmount"`
	Spun      bool          `json:"spun"`
}

// BlackjackPhase is the explicit state-machine position persisted with the
// session, so hit and stand resume stored state instead of re-deriving it
// from the bet log.
type BlackjackPhase string

const (
	PhaseBetting    BlackjackPhase = "betting"
	PhasePlaying    BlackjackPhase = "playing"
	PhaseDealerTurn BlackjackPhase = "dealer-turn"
	PhaseComplete   BlackjackPhase = "complete"
)

// BlackjackResult tags the terminal outcome of a hand.
type BlackjackResult string

const (
	ResultPlayerBust BlackjackResult = "player-bust"
	ResultDealerBust BlackjackResult = "dealer-bust"
	ResultBlackjack  BlackjackResult = "blackjack"
	ResultPlayerWin  BlackjackResult = "player-win"
	ResultDealerWin  BlackjackResult = "dealer-win"
	ResultPush       BlackjackResult = "push"
)

// BlackjackOutcome carries the full hand state. Deck is the undealt remainder
// of the shoe; it is persisted so hit/stand continue the same shuffle, and it
// is stripped from any caller-facing view.
type BlackjackOutcome struct {
	Phase       BlackjackPhase  `json:"phase"`
	PlayerHand  []Card          `json:"playerHand"`
	DealerHand  []Card          `json:"dealerHand"`
	Deck        []Card          `json:"deck,omitempty"`
	Bet         int64           `json:"bet"`
	PlayerValue int             `json:"playerValue"`
	DealerValue int             `json:"dealerValue"`
	Result      BlackjackResult `json:"result,omitempty"`
	Winnings    int64           `json:"winnings"`
}

// RouletteColor is a wheel pocket color.
type RouletteColor string

const (
	ColorRed   RouletteColor = "red"
	ColorBlack RouletteColor = "black"
	ColorGreen RouletteColor = "green"
)

// RouletteBetType names a supported roulette wager.
type RouletteBetType string

const (
	BetStraight   RouletteBetType = "straight"
	BetSplit      RouletteBetType = "split"
	BetStreet     RouletteBetType = "street"
	BetCorner     RouletteBetType = "corner"
	BetFiveNumber RouletteBetType = "fiveNumber"
	BetSixLine    RouletteBetType = "sixLine"
	BetDozen      RouletteBetType = "dozen"
	BetColumn     RouletteBetType = "column"
	BetRed        RouletteBetType = "red"
	BetBlack      RouletteBetType = "black"
	BetEven       RouletteBetType = "even"
	BetOdd        RouletteBetType = "odd"
	BetLow        RouletteBetType = "low"
	BetHigh       RouletteBetType = "high"
)

// RouletteBet is one wager submitted with a spin action. Number applies to
// straight bets, Numbers to split/street/corner/sixLine, Dozen and Column to
// their respective outside bets.
type RouletteBet struct {
	Type    RouletteBetType `json:"type"`
	Amount  int64           `json:"amount"`
	Number  int             `json:"number,omitempty"`
	Numbers []int           `json:"numbers,omitempty"`
	Dozen   int             `json:"dozen,omitempty"`
	Column  int             `json:"column,omitempty"`
}

// RouletteResult classifies the winning pocket. Dozen and Column are 0 when
// the ball lands on zero.
type RouletteResult struct {
	Number int           `json:"number"`
	Color  RouletteColor `json:"color"`
	IsEven bool          `json:"isEven"`
	IsOdd  bool          `json:"isOdd"`
	IsLow  bool          `json:"isLow"`
	IsHigh bool          `json:"isHigh"`
	Dozen  int           `json:"dozen"`
	Column int           `json:"column"`
}

// RouletteOutcome is the state of a roulette session: the submitted bets,
// the wheel result once spun, and the settled winnings.
type RouletteOutcome struct {
	Bets     []RouletteBet   `json:"bets"`
	Result   *RouletteResult `json:"result,omitempty"`
	Bet      int64           `json:"bet"`
	Winnings int64           `json:"winnings"`
}
