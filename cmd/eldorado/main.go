// Command eldorado hosts the game engine: it wires configuration, stores,
// the settlement engine, and the maintenance scheduler, then waits for a
// shutdown signal. The HTTP/API layer attaches to the engine from a separate
// service.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sgarza/eldorado/internal/config"
	"github.com/sgarza/eldorado/internal/logging"
	"github.com/sgarza/eldorado/pkg/repositories/archive"
	gameRepo "github.com/sgarza/eldorado/pkg/repositories/game"
	sessionRepo "github.com/sgarza/eldorado/pkg/repositories/session"
	walletRepo "github.com/sgarza/eldorado/pkg/repositories/wallet"
	"github.com/sgarza/eldorado/pkg/scheduler"
	"github.com/sgarza/eldorado/pkg/services/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"data_dir":    cfg.DataDir,
	}).Info("starting eldorado engine")

	wallets, err := walletRepo.NewSQLiteRepository(cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open wallet store")
	}
	defer wallets.Close()

	sessions, err := sessionRepo.NewSQLiteRepository(cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open session store")
	}
	defer sessions.Close()

	catalog, err := gameRepo.NewSQLiteRepository(cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open game catalog")
	}
	defer catalog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := catalog.Seed(ctx); err != nil {
		log.WithError(err).Fatal("failed to seed game catalog")
	}

	eng := engine.New(engine.Deps{
		Wallets:      wallets,
		Sessions:     sessions,
		Catalog:      catalog,
		Logger:       log,
		Notifier:     engine.NewLogNotifier(log),
		StoreTimeout: cfg.StoreTimeout,
	})
	_ = eng // the API layer binds here

	sched := scheduler.NewScheduler(log)

	reaper := scheduler.NewReaper(sessions, cfg.SessionTTL, log)
	sched.AddTask("session-reaper", cfg.ReapInterval, reaper.Run)

	if cfg.ElasticsearchURL != "" {
		archiveStore, err := archive.NewElasticsearchRepository(&archive.ElasticsearchConfig{
			URL:         cfg.ElasticsearchURL,
			IndexPrefix: cfg.ArchiveIndexPrefix,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to connect to Elasticsearch")
		}
		archiver := scheduler.NewArchiver(sessions, archiveStore, log)
		sched.AddTask("session-archiver", cfg.ArchiveInterval, archiver.Run)
	} else {
		log.Info("ELASTICSEARCH_URL not set, session archiving disabled")
	}

	sched.Start(ctx)
	defer sched.Stop()

	log.Info("engine ready")
	<-ctx.Done()
	log.Info("shutting down")
}
