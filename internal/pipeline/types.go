// Package pipeline composes the transcript extraction stages (captions,
// local speech-to-text, remote providers) into a single fallback chain and
// drives the per-item status machine and batch progress stream.
package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Method tags recorded with each outcome. Downstream consumers branch on
// these to classify free vs AI-assisted extraction, so the vocabulary is
// stable: "caption", "ai", and "whisper-<backend>".
const (
	MethodCaption = "caption"
	MethodAI      = "ai"
)

// WorkItem identifies one video to transcribe. Immutable once created.
type WorkItem struct {
	VideoID  string // platform video id
	Language string // optional language hint for AI stages
	AllowAI  bool   // false = caption-only mode
	Provider string // optional explicit remote provider, "" = configured default
}

// Outcome is the result of a successful acquisition.
type Outcome struct {
	Content   string `json:"content"`
	Language  string `json:"language"`
	WordCount int    `json:"word_count"`
	Method    string `json:"method"`
}

// Status is the extraction state attached to each item's owning record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExtracting Status = "extracting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusExtracting, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown extraction status %q", s)
}

// Terminal reports whether the status is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is one video's persisted extraction state. Outcome is non-nil
// only for completed videos; Error carries the bounded failure message for
// failed ones.
type Record struct {
	VideoID   string
	Status    Status
	Outcome   *Outcome
	Error     string
	UpdatedAt time.Time
}

// ErrNoMethodAvailable indicates that no extraction stage is eligible at
// all: no local model installed and no remote provider configured. It is a
// deployment problem, not a per-video one.
var ErrNoMethodAvailable = errors.New(
	"no transcription method available: download a local model or configure a remote provider")

// MaxErrorLen bounds the failure message persisted with a failed item.
const MaxErrorLen = 200

// TruncateError renders err as a status-machine failure string, capped at
// MaxErrorLen runes.
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	runes := []rune(msg)
	if len(runes) <= MaxErrorLen {
		return msg
	}
	return string(runes[:MaxErrorLen])
}
