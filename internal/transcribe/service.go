package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/media"
	"github.com/snarg/tubescribe/internal/pipeline"
	"github.com/snarg/tubescribe/internal/words"
)

// AudioFetcher acquires the audio stream for a video. Satisfied by
// *media.Fetcher.
type AudioFetcher interface {
	Download(ctx context.Context, videoID, dir string) (string, error)
}

// Service runs remote speech-to-text: download audio into a scratch
// directory, ship it to the selected provider, and return a tagged outcome.
type Service struct {
	fetcher         AudioFetcher
	cfg             Config
	defaultProvider string
	log             zerolog.Logger

	// newProvider is swappable in tests; defaults to New.
	newProvider func(name string, cfg Config) (Provider, error)
}

func NewService(fetcher AudioFetcher, cfg Config, defaultProvider string, log zerolog.Logger) *Service {
	return &Service{
		fetcher:         fetcher,
		cfg:             cfg,
		defaultProvider: defaultProvider,
		log:             log.With().Str("component", "transcribe").Logger(),
		newProvider:     New,
	}
}

// Configured reports whether any provider can be selected at all.
func (s *Service) Configured() bool {
	return s.defaultProvider != ""
}

// Transcribe acquires audio for item and sends it to the provider the item
// requests, falling back to the configured default. Audio is removed before
// returning on every path.
func (s *Service) Transcribe(ctx context.Context, item pipeline.WorkItem) (*pipeline.Outcome, error) {
	name := item.Provider
	if name == "" {
		name = s.defaultProvider
	}
	provider, err := s.newProvider(name, s.cfg)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = media.WithTempDir(func(dir string) error {
		audioPath, err := s.fetcher.Download(ctx, item.VideoID, dir)
		if err != nil {
			s.log.Warn().Err(err).Str("video_id", item.VideoID).Msg("audio download failed")
			return fmt.Errorf("%w: %v", ErrNoAudio, err)
		}

		result, err = provider.Transcribe(ctx, audioPath, item.Language)
		return err
	})
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(result.Text)
	s.log.Info().
		Str("video_id", item.VideoID).
		Str("provider", provider.Name()).
		Str("language", result.Language).
		Msg("remote transcription complete")

	return &pipeline.Outcome{
		Content:   content,
		Language:  result.Language,
		WordCount: words.Count(content),
		Method:    pipeline.MethodAI,
	}, nil
}
