package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/sgarza/eldorado/pkg/entities"
)

// Notifier receives best-effort events after settlement. Delivery is
// fire-and-forget: implementations must not block and have no way to report
// failure back into the engine. Sessions arrive as caller-facing views, so
// a live blackjack hand never exposes the hole card or the undealt deck.
type Notifier interface {
	BalanceChanged(userID string, balance int64)
	GameStateChanged(session *entities.GameSession)
}

// LogNotifier writes events to the structured log. It stands in until a real
// push channel is attached by the API layer.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) BalanceChanged(userID string, balance int64) {
	n.log.WithFields(logrus.Fields{
		"user_id": userID,
		"balance": balance,
	}).Debug("balance changed")
}

func (n *LogNotifier) GameStateChanged(session *entities.GameSession) {
	n.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    session.UserID,
		"game_id":    session.GameID,
		"status":     session.Status,
	}).Debug("game state changed")
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) BalanceChanged(string, int64)           {}
func (NopNotifier) GameStateChanged(*entities.GameSession) {}
