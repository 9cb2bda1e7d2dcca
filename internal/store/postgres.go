// Package store persists per-video extraction state and transcripts in
// Postgres. It implements the narrow pipeline.Store contract; the
// conditional transition into extracting is what prevents two concurrent
// requests from both starting work on the same video.
package store

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/pipeline"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS videos (
    video_id   text PRIMARY KEY,
    status     text NOT NULL DEFAULT 'pending',
    transcript text,
    language   text,
    word_count int,
    method     text,
    error      text,
    updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_videos_status ON videos (status);
`

type Store struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func Connect(ctx context.Context, databaseURL string, log zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Str("url", maskDSN(databaseURL)).
		Int32("max_conns", cfg.MaxConns).
		Msg("database connected")

	return &Store{Pool: pool, log: log}, nil
}

// InitSchema applies the schema. Every statement is idempotent, so this
// runs unconditionally at startup.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schemaSQL)
	return err
}

func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *Store) Close() {
	s.log.Info().Msg("closing database pool")
	s.Pool.Close()
}

// Status returns the video's extraction status; unknown videos are pending.
func (s *Store) Status(ctx context.Context, videoID string) (pipeline.Status, error) {
	var raw string
	err := s.Pool.QueryRow(ctx,
		`SELECT status FROM videos WHERE video_id = $1`, videoID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.StatusPending, nil
	}
	if err != nil {
		return "", err
	}
	return pipeline.ParseStatus(raw)
}

// BeginExtraction claims the video for one attempt. The upsert only moves
// pending or failed rows into extracting; a row already extracting or
// completed is left untouched and the claim is refused.
func (s *Store) BeginExtraction(ctx context.Context, videoID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO videos (video_id, status, updated_at)
		VALUES ($1, 'extracting', now())
		ON CONFLICT (video_id) DO UPDATE
		SET status = 'extracting', error = NULL, updated_at = now()
		WHERE videos.status IN ('pending', 'failed')`,
		videoID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Complete(ctx context.Context, videoID string, outcome *pipeline.Outcome) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE videos
		SET status = 'completed', transcript = $2, language = $3,
		    word_count = $4, method = $5, error = NULL, updated_at = now()
		WHERE video_id = $1`,
		videoID, outcome.Content, outcome.Language, outcome.WordCount, outcome.Method)
	return err
}

func (s *Store) Fail(ctx context.Context, videoID string, msg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE videos
		SET status = 'failed', error = $2, updated_at = now()
		WHERE video_id = $1`,
		videoID, msg)
	return err
}

// Get returns the stored state for videoID, or nil when it has never been
// seen.
func (s *Store) Get(ctx context.Context, videoID string) (*pipeline.Record, error) {
	var (
		rec        pipeline.Record
		raw        string
		transcript *string
		language   *string
		wordCount  *int
		method     *string
		errMsg     *string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT video_id, status, transcript, language, word_count, method, error, updated_at
		FROM videos WHERE video_id = $1`, videoID,
	).Scan(&rec.VideoID, &raw, &transcript, &language, &wordCount, &method, &errMsg, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Status, err = pipeline.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		rec.Error = *errMsg
	}
	if rec.Status == pipeline.StatusCompleted && transcript != nil {
		rec.Outcome = &pipeline.Outcome{Content: *transcript}
		if language != nil {
			rec.Outcome.Language = *language
		}
		if wordCount != nil {
			rec.Outcome.WordCount = *wordCount
		}
		if method != nil {
			rec.Outcome.Method = *method
		}
	}
	return &rec, nil
}

// ReleaseStale moves videos stuck in extracting longer than olderThan back
// to pending. Called at startup so a crash mid-attempt never wedges an
// item forever.
func (s *Store) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.Pool.Exec(ctx, `
		UPDATE videos
		SET status = 'pending', updated_at = now()
		WHERE status = 'extracting' AND updated_at < $1`,
		cutoff)
	if err != nil {
		return 0, err
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.Warn().Int64("count", n).Msg("released stale extracting videos")
		return n, nil
	}
	return 0, nil
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
