package transcribe

import (
	"errors"
	"fmt"
)

// Reason classifies a provider failure into the three categories the
// orchestrator and callers differentiate. Everything else a provider can
// report collapses into ReasonUnknown.
type Reason string

const (
	ReasonAuth    Reason = "auth"    // invalid or missing credentials
	ReasonQuota   Reason = "quota"   // billing or quota exhausted
	ReasonUnknown Reason = "unknown" // anything else, message bounded
)

// maxMessageLen bounds provider error text carried to callers.
const maxMessageLen = 200

// Error is a classified provider failure.
type Error struct {
	Provider string
	Reason   Reason
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func newError(provider string, reason Reason, message string) *Error {
	runes := []rune(message)
	if len(runes) > maxMessageLen {
		message = string(runes[:maxMessageLen])
	}
	return &Error{Provider: provider, Reason: reason, Message: message}
}

// ReasonOf extracts the failure reason from err, or ReasonUnknown when err
// is not a classified provider error.
func ReasonOf(err error) Reason {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonUnknown
}

// ErrUnknownProvider marks a provider name outside the closed set. This is
// a configuration error, never a silent default.
var ErrUnknownProvider = errors.New("unknown transcription provider")

// ErrNoAudio marks a failed audio acquisition: no stream found, network
// failure, or transcoding failure. Terminal for the AI stages.
var ErrNoAudio = errors.New("failed to download audio: the video may be restricted or unavailable")
