package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/tubescribe/internal/metrics"
	"github.com/snarg/tubescribe/internal/pipeline"
)

// RecordStore reads persisted extraction state. Satisfied by *store.Store
// and *pipeline.MemoryStore.
type RecordStore interface {
	Get(ctx context.Context, videoID string) (*pipeline.Record, error)
}

type TranscriptsHandler struct {
	runner  *pipeline.Runner
	records RecordStore
}

func NewTranscriptsHandler(runner *pipeline.Runner, records RecordStore) *TranscriptsHandler {
	return &TranscriptsHandler{runner: runner, records: records}
}

func (h *TranscriptsHandler) Routes(r chi.Router) {
	r.Get("/videos/{videoID}/transcript", h.GetTranscript)
	r.Post("/videos/{videoID}/transcript", h.ExtractTranscript)
	r.Get("/transcripts/stream", h.StreamBatch)
}

// TranscriptResponse is the transcript representation for API responses.
type TranscriptResponse struct {
	VideoID    string `json:"video_id"`
	Status     string `json:"status"`
	Transcript string `json:"transcript,omitempty"`
	Language   string `json:"language,omitempty"`
	WordCount  int    `json:"word_count,omitempty"`
	Method     string `json:"method,omitempty"`
	Error      string `json:"error,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
}

func transcriptResponse(videoID string, status pipeline.Status, outcome *pipeline.Outcome, errMsg string) TranscriptResponse {
	resp := TranscriptResponse{VideoID: videoID, Status: string(status), Error: errMsg}
	if outcome != nil {
		resp.Transcript = outcome.Content
		resp.Language = outcome.Language
		resp.WordCount = outcome.WordCount
		resp.Method = outcome.Method
	}
	return resp
}

// GetTranscript returns the stored state for a video without triggering
// extraction.
func (h *TranscriptsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	rec, err := h.records.Get(r.Context(), videoID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load video state")
		return
	}
	if rec == nil {
		WriteError(w, http.StatusNotFound, "video not known")
		return
	}
	WriteJSON(w, http.StatusOK, transcriptResponse(rec.VideoID, rec.Status, rec.Outcome, rec.Error))
}

// ExtractRequest is the body for single-video extraction.
type ExtractRequest struct {
	Language string `json:"language"`
	AllowAI  *bool  `json:"allow_ai"` // default true
	Provider string `json:"provider"`
}

// ExtractTranscript runs the fallback chain for one video. A transcript
// already extracted is returned as-is without re-running the chain.
func (h *TranscriptsHandler) ExtractTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	log := hlog.FromRequest(r)

	var req ExtractRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := DecodeJSON(r, &req); err != nil {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	allowAI := req.AllowAI == nil || *req.AllowAI

	if rec, err := h.records.Get(r.Context(), videoID); err == nil &&
		rec != nil && rec.Status == pipeline.StatusCompleted && rec.Outcome != nil {
		resp := transcriptResponse(rec.VideoID, rec.Status, rec.Outcome, "")
		resp.Cached = true
		WriteJSON(w, http.StatusOK, resp)
		return
	}

	item := pipeline.WorkItem{
		VideoID:  videoID,
		Language: req.Language,
		AllowAI:  allowAI,
		Provider: req.Provider,
	}
	outcome, err := h.runner.Process(r.Context(), item)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		WriteError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, pipeline.ErrNoMethodAvailable):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		metrics.ExtractionFailuresTotal.Inc()
		log.Warn().Err(err).Str("video_id", videoID).Msg("extraction failed")
		WriteErrorDetail(w, http.StatusBadGateway, "extraction failed", pipeline.TruncateError(err))
		return
	case outcome == nil:
		metrics.ExtractionFailuresTotal.Inc()
		WriteError(w, http.StatusNotFound, "no captions available and AI transcription not enabled")
		return
	}

	metrics.ExtractionsTotal.WithLabelValues(outcome.Method).Inc()
	WriteJSON(w, http.StatusOK, transcriptResponse(videoID, pipeline.StatusCompleted, outcome, ""))
}

// StreamBatch extracts transcripts for a list of videos sequentially,
// pushing progress over SSE. Wire format is one `data: {json}` frame per
// event with a status discriminator: "extracting" while running,
// "complete" at the end.
func (h *TranscriptsHandler) StreamBatch(w http.ResponseWriter, r *http.Request) {
	ids := QueryStringList(r, "ids")
	if len(ids) == 0 {
		WriteError(w, http.StatusBadRequest, "missing ids parameter")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	allowAI := true
	if v, ok := QueryBool(r, "allow_ai"); ok {
		allowAI = v
	}
	language, _ := QueryString(r, "language")
	provider, _ := QueryString(r, "provider")

	items := make([]pipeline.WorkItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, pipeline.WorkItem{
			VideoID:  id,
			Language: language,
			AllowAI:  allowAI,
			Provider: provider,
		})
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	log := hlog.FromRequest(r)
	log.Info().Int("count", len(items)).Msg("batch extraction started")

	for ev := range h.runner.Stream(r.Context(), items) {
		data, err := json.Marshal(wireEvent(ev))
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		metrics.SSEEventsPublishedTotal.Inc()

		switch ev.Type {
		case pipeline.EventItemCompleted:
			metrics.ExtractionsTotal.WithLabelValues(ev.Method).Inc()
		case pipeline.EventItemFailed:
			metrics.ExtractionFailuresTotal.Inc()
		}
	}
}

// wireEvent folds a pipeline event into the JSON object the stream emits.
func wireEvent(ev pipeline.Event) map[string]any {
	obj := map[string]any{
		"extracted":    ev.Counters.Caption,
		"extracted_ai": ev.Counters.AI,
		"failed":       ev.Counters.Failed,
		"total":        ev.Counters.Total,
	}
	switch ev.Type {
	case pipeline.EventFinished:
		obj["status"] = "complete"
	case pipeline.EventStarted:
		obj["status"] = "extracting"
		obj["current"] = ev.Index
		obj["title"] = ev.Label
	case pipeline.EventItemCompleted:
		obj["status"] = "extracting"
		obj["method"] = ev.Method
	case pipeline.EventItemFailed:
		obj["status"] = "extracting"
		obj["error"] = ev.Reason
	}
	return obj
}
