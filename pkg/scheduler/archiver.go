package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sgarza/eldorado/pkg/entities"
	archiveRepo "github.com/sgarza/eldorado/pkg/repositories/archive"
	sessionRepo "github.com/sgarza/eldorado/pkg/repositories/session"
)

// Archiver pages terminal sessions into the Elasticsearch archive. It keeps
// an in-memory watermark per status; after a restart the first sweep
// re-archives from the beginning, which is harmless because indexing is
// idempotent on session ID.
type Archiver struct {
	sessions  sessionRepo.Repository
	archive   archiveRepo.Repository
	batchSize int
	log       *logrus.Logger

	mu         sync.Mutex
	watermarks map[entities.SessionStatus]time.Time
}

// NewArchiver creates an archiver over the session store and archive sink.
func NewArchiver(sessions sessionRepo.Repository, archive archiveRepo.Repository, log *logrus.Logger) *Archiver {
	return &Archiver{
		sessions:   sessions,
		archive:    archive,
		batchSize:  100,
		log:        log,
		watermarks: make(map[entities.SessionStatus]time.Time),
	}
}

// Run performs one sweep over completed and abandoned sessions.
func (a *Archiver) Run(ctx context.Context) error {
	for _, status := range []entities.SessionStatus{
		entities.SessionStatusCompleted,
		entities.SessionStatusAbandoned,
	} {
		if err := a.sweep(ctx, status); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archiver) sweep(ctx context.Context, status entities.SessionStatus) error {
	a.mu.Lock()
	watermark := a.watermarks[status]
	a.mu.Unlock()

	for {
		batch, err := a.sessions.ListSessionsByStatus(ctx, status, watermark, a.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := a.archive.ArchiveSessions(ctx, batch); err != nil {
			// Watermark stays put; the batch is retried next sweep.
			return err
		}

		watermark = batch[len(batch)-1].UpdatedAt
		a.mu.Lock()
		a.watermarks[status] = watermark
		a.mu.Unlock()

		a.log.WithFields(logrus.Fields{
			"status":   status,
			"archived": len(batch),
		}).Debug("archived sessions")

		if len(batch) < a.batchSize {
			return nil
		}
	}
}
