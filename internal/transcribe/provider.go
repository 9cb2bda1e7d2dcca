// Package transcribe delegates speech-to-text to third-party providers.
// Providers form a closed set selected by explicit dispatch; each one
// classifies its own failure surface into the shared auth/quota/unknown
// taxonomy.
package transcribe

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderReplicate   = "replicate"
	ProviderSiliconFlow = "siliconflow"
)

// Provider is one remote speech-to-text backend.
type Provider interface {
	// Transcribe sends the audio file and returns the recognized text.
	// language is an optional hint, "" = auto-detect.
	Transcribe(ctx context.Context, audioPath, language string) (*Result, error)
	Name() string
}

// Result is the common transcription result from any provider.
type Result struct {
	Text     string
	Language string // detected or hinted language, "auto" if unreported
}

// Config carries per-provider credentials and shared request settings.
type Config struct {
	ReplicateToken string
	SiliconFlowKey string
	Timeout        time.Duration
}

// New constructs the named provider. Unknown names are a configuration
// error, not a silent default.
func New(name string, cfg Config) (Provider, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	switch name {
	case ProviderReplicate:
		return newReplicateClient(cfg.ReplicateToken, cfg.Timeout), nil
	case ProviderSiliconFlow:
		return newSiliconFlowClient(cfg.SiliconFlowKey, cfg.Timeout), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}
