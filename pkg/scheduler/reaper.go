package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sgarza/eldorado/pkg/entities"
	sessionRepo "github.com/sgarza/eldorado/pkg/repositories/session"
)

// Reaper closes sessions the player walked away from: active sessions idle
// past the TTL transition to abandoned. The stake is not refunded; the bet
// was placed and the player chose not to play it out. Abandoned sessions are
// terminal, so a late action against one fails like any other settled
// session.
type Reaper struct {
	sessions   sessionRepo.Repository
	sessionTTL time.Duration
	batchSize  int
	log        *logrus.Logger
}

// NewReaper creates a reaper over the session store.
func NewReaper(sessions sessionRepo.Repository, sessionTTL time.Duration, log *logrus.Logger) *Reaper {
	return &Reaper{
		sessions:   sessions,
		sessionTTL: sessionTTL,
		batchSize:  100,
		log:        log,
	}
}

// Run performs one sweep. It is registered with the scheduler as a periodic
// task.
func (r *Reaper) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-r.sessionTTL)

	idle, err := r.sessions.ListIdleSessions(ctx, cutoff, r.batchSize)
	if err != nil {
		return err
	}

	var reaped int
	for _, session := range idle {
		session.Status = entities.SessionStatusAbandoned
		session.EndTime = time.Now()

		err := r.sessions.SaveSession(ctx, session)
		if errors.Is(err, sessionRepo.ErrVersionConflict) {
			// The player came back between the list and the save; leave
			// the session to them.
			continue
		}
		if err != nil {
			r.log.WithField("session_id", session.ID).WithError(err).Error("failed to abandon session")
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.log.WithFields(logrus.Fields{
			"reaped": reaped,
			"cutoff": cutoff,
		}).Info("abandoned idle sessions")
	}
	return nil
}
