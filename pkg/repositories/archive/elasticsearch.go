// Package archive ships terminal game sessions to Elasticsearch for
// long-term analytics. SQLite stays the system of record; the archive is a
// searchable copy, so indexing failures are retried on the next sweep rather
// than failing gameplay.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/sgarza/eldorado/pkg/entities"
)

// Repository is the archive sink. The scheduler's archiver task is its only
// caller.
type Repository interface {
	// ArchiveSessions indexes a batch of terminal sessions. Indexing is
	// idempotent: the session ID is the document ID, so re-archiving a
	// session overwrites the same document.
	ArchiveSessions(ctx context.Context, sessions []*entities.GameSession) error
}

// ElasticsearchConfig holds configuration options for the Elasticsearch
// archive.
type ElasticsearchConfig struct {
	URL            string
	Username       string
	Password       string
	IndexPrefix    string
	RotationPeriod time.Duration // how often a fresh index is started
}

// DefaultElasticsearchConfig returns a default configuration for the archive.
func DefaultElasticsearchConfig() *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:            "http://localhost:9200",
		IndexPrefix:    "eldorado",
		RotationPeriod: 30 * 24 * time.Hour,
	}
}

// ElasticsearchRepository implements Repository using Elasticsearch with
// time-rotated indices (prefix_sessions_2006.01).
type ElasticsearchRepository struct {
	client *elasticsearch.Client
	config *ElasticsearchConfig
}

// NewElasticsearchRepository creates a new Elasticsearch archive repository
func NewElasticsearchRepository(config *ElasticsearchConfig) (*ElasticsearchRepository, error) {
	if config == nil {
		config = DefaultElasticsearchConfig()
	}
	if config.IndexPrefix == "" {
		config.IndexPrefix = "eldorado"
	}
	if config.RotationPeriod == 0 {
		config.RotationPeriod = 30 * 24 * time.Hour
	}

	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	return &ElasticsearchRepository{client: client, config: config}, nil
}

// sessionDocument flattens a session for indexing: scalar fields for
// aggregation plus the raw outcome payload for drill-down.
type sessionDocument struct {
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id"`
	GameID       string            `json:"game_id"`
	Status       string            `json:"status"`
	StartBalance int64             `json:"start_balance"`
	EndBalance   int64             `json:"end_balance"`
	BetAmount    int64             `json:"bet_amount"`
	WinAmount    int64             `json:"win_amount"`
	NetResult    int64             `json:"net_result"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      *time.Time        `json:"end_time,omitempty"`
	Outcome      *entities.Outcome `json:"outcome,omitempty"`
	ArchivedAt   time.Time         `json:"archived_at"`
}

func newSessionDocument(session *entities.GameSession) *sessionDocument {
	doc := &sessionDocument{
		SessionID:    session.ID,
		UserID:       session.UserID,
		GameID:       session.GameID,
		Status:       string(session.Status),
		StartBalance: session.StartBalance,
		EndBalance:   session.EndBalance,
		NetResult:    session.EndBalance - session.StartBalance,
		StartTime:    session.StartTime,
		ArchivedAt:   time.Now(),
	}
	if !session.EndTime.IsZero() {
		endTime := session.EndTime
		doc.EndTime = &endTime
	}
	if bet := session.CurrentBet(); bet != nil {
		doc.BetAmount = bet.Amount
		doc.Outcome = bet.Outcome
		if bet.Outcome != nil {
			doc.WinAmount = bet.Outcome.WinAmount()
		}
	}
	return doc
}

// ArchiveSessions indexes each session into the current rotation index.
func (r *ElasticsearchRepository) ArchiveSessions(ctx context.Context, sessions []*entities.GameSession) error {
	if len(sessions) == 0 {
		return nil
	}

	index := r.currentIndex(time.Now())
	for _, session := range sessions {
		body, err := json.Marshal(newSessionDocument(session))
		if err != nil {
			return fmt.Errorf("error encoding session %s: %w", session.ID, err)
		}

		req := esapi.IndexRequest{
			Index:      index,
			DocumentID: session.ID,
			Body:       bytes.NewReader(body),
		}
		res, err := req.Do(ctx, r.client)
		if err != nil {
			return fmt.Errorf("error indexing session %s: %w", session.ID, err)
		}
		if res.IsError() {
			detail, _ := io.ReadAll(res.Body)
			res.Body.Close()
			return fmt.Errorf("error indexing session %s: %s: %s", session.ID, res.Status(), detail)
		}
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}

	return nil
}

// currentIndex names the rotation bucket for a point in time. Monthly
// rotation keeps index counts manageable at this write volume.
func (r *ElasticsearchRepository) currentIndex(now time.Time) string {
	bucket := now.Truncate(r.config.RotationPeriod)
	return fmt.Sprintf("%s_sessions_%s", r.config.IndexPrefix, bucket.Format("2006.01"))
}
