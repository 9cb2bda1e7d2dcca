package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Store persists per-item extraction state. The transition into extracting
// is a conditional update so two concurrent requests for the same item
// cannot both start work.
type Store interface {
	// Status returns the item's current extraction status.
	Status(ctx context.Context, videoID string) (Status, error)
	// BeginExtraction atomically moves pending or failed to extracting.
	// Returns false when the item is already extracting or completed.
	BeginExtraction(ctx context.Context, videoID string) (bool, error)
	// Complete records the outcome and moves the item to completed.
	Complete(ctx context.Context, videoID string, outcome *Outcome) error
	// Fail moves the item to failed with a bounded error message.
	Fail(ctx context.Context, videoID string, msg string) error
}

// ErrAlreadyRunning is returned when another attempt holds the extracting
// state for the item.
var ErrAlreadyRunning = errors.New("extraction already in progress for this video")

// msgNoTranscript is persisted when the chain legitimately produced
// nothing: no captions and AI disabled.
const msgNoTranscript = "no captions available and AI transcription not enabled"

// Runner drives the status machine around each acquisition: claim the item,
// run the chain, and always land on a terminal status.
type Runner struct {
	orch  *Orchestrator
	store Store
	log   zerolog.Logger
}

func NewRunner(orch *Orchestrator, store Store, log zerolog.Logger) *Runner {
	return &Runner{
		orch:  orch,
		store: store,
		log:   log.With().Str("component", "runner").Logger(),
	}
}

// Process claims videoID, runs the fallback chain, and persists the result.
// A (nil, nil) return means the item finished without a transcript and was
// marked failed with msgNoTranscript.
//
// The attempt is detached from the caller's cancellation. A client that
// disconnects mid-extraction must not abort the work, and above all must
// not abort the terminal status write: a store that rejects writes on a
// canceled context would otherwise strand the item in extracting, where
// BeginExtraction refuses retries.
func (r *Runner) Process(ctx context.Context, item WorkItem) (*Outcome, error) {
	ctx = context.WithoutCancel(ctx)

	ok, err := r.store.BeginExtraction(ctx, item.VideoID)
	if err != nil {
		return nil, fmt.Errorf("begin extraction: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	outcome, err := r.acquire(ctx, item)
	if err != nil {
		msg := TruncateError(err)
		r.log.Warn().Err(err).Str("video_id", item.VideoID).Msg("extraction failed")
		if ferr := r.store.Fail(ctx, item.VideoID, msg); ferr != nil {
			r.log.Error().Err(ferr).Str("video_id", item.VideoID).Msg("failed to persist failure")
		}
		return nil, err
	}

	if outcome == nil {
		if ferr := r.store.Fail(ctx, item.VideoID, msgNoTranscript); ferr != nil {
			r.log.Error().Err(ferr).Str("video_id", item.VideoID).Msg("failed to persist failure")
		}
		return nil, nil
	}

	if err := r.store.Complete(ctx, item.VideoID, outcome); err != nil {
		return nil, fmt.Errorf("persist outcome: %w", err)
	}
	return outcome, nil
}

// acquire runs the chain, converting a panic in any stage into a bounded
// error so the item can never be left stuck in extracting.
func (r *Runner) acquire(ctx context.Context, item WorkItem) (outcome *Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome = nil
			err = fmt.Errorf("unexpected extraction failure: %v", p)
		}
	}()
	return r.orch.Acquire(ctx, item)
}
