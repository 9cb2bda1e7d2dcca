package pipeline

import (
	"context"

	"github.com/rs/zerolog"
)

// CaptionSource extracts platform captions. Platform failures surface as
// (nil, nil), never as an error.
type CaptionSource interface {
	Extract(ctx context.Context, videoID string) (*Outcome, error)
}

// LocalTranscriber runs speech-to-text on this host.
type LocalTranscriber interface {
	// Available reports whether any model is installed for the host backend.
	Available() bool
	Transcribe(ctx context.Context, videoID string) (*Outcome, error)
}

// RemoteTranscriber ships audio to a third-party speech-to-text provider.
type RemoteTranscriber interface {
	// Configured reports whether a default provider is set.
	Configured() bool
	Transcribe(ctx context.Context, item WorkItem) (*Outcome, error)
}

// Orchestrator runs the fallback chain for one item: captions first, then
// local whisper, then a remote provider. Stages run strictly in order,
// never concurrently.
type Orchestrator struct {
	captions CaptionSource
	local    LocalTranscriber
	remote   RemoteTranscriber
	log      zerolog.Logger
}

func NewOrchestrator(captions CaptionSource, local LocalTranscriber, remote RemoteTranscriber, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		captions: captions,
		local:    local,
		remote:   remote,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Acquire walks the chain until a stage produces a transcript. A nil
// outcome with nil error means no transcript exists and AI was not allowed;
// it is a legitimate result, not a failure.
func (o *Orchestrator) Acquire(ctx context.Context, item WorkItem) (*Outcome, error) {
	log := o.log.With().Str("video_id", item.VideoID).Logger()

	outcome, err := o.captions.Extract(ctx, item.VideoID)
	if err != nil {
		// The caption stage only errors on context cancellation or
		// programmer-level faults. Either way the chain stops here.
		return nil, err
	}
	if outcome != nil {
		log.Info().Int("words", outcome.WordCount).Msg("captions extracted")
		return outcome, nil
	}

	if !item.AllowAI {
		log.Debug().Msg("no captions and AI disabled")
		return nil, nil
	}

	localOK := o.local != nil && o.local.Available()
	remoteOK := o.remote != nil && (item.Provider != "" || o.remote.Configured())
	if !localOK && !remoteOK {
		return nil, ErrNoMethodAvailable
	}

	if localOK {
		outcome, err := o.local.Transcribe(ctx, item.VideoID)
		if err == nil {
			log.Info().Str("method", outcome.Method).Msg("local transcription complete")
			return outcome, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !remoteOK {
			return nil, err
		}
		log.Warn().Err(err).Msg("local transcription failed, falling back to remote")
	}

	return o.remote.Transcribe(ctx, item)
}
