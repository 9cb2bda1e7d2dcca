package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/tubescribe/internal/metrics"
	"github.com/snarg/tubescribe/internal/whisperlocal"
)

type ModelsHandler struct {
	registry *whisperlocal.Registry
}

func NewModelsHandler(registry *whisperlocal.Registry) *ModelsHandler {
	return &ModelsHandler{registry: registry}
}

func (h *ModelsHandler) Routes(r chi.Router) {
	r.Get("/models", h.ListModels)
	r.Get("/models/backend", h.BackendInfo)
	r.Post("/models/{name}/download", h.DownloadModel)
}

// ListModels returns the catalog for the active backend with installed
// state per model.
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"backend": h.registry.Backend(),
		"models":  h.registry.List(),
	})
}

// BackendInfo reports host platform details and the effective backend,
// which may differ from the detected one when overridden by config.
func (h *ModelsHandler) BackendInfo(w http.ResponseWriter, r *http.Request) {
	info := whisperlocal.HostInfo()
	info.Backend = h.registry.Backend()
	WriteJSON(w, http.StatusOK, info)
}

// DownloadModel fetches a model from Hugging Face, streaming progress over
// SSE. Already-installed models complete immediately.
func (h *ModelsHandler) DownloadModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	log := hlog.FromRequest(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.ModelDownloadsTotal.Inc()
	log.Info().Str("model", name).Msg("model download requested")

	emit := func(obj map[string]any) {
		data, err := json.Marshal(obj)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		metrics.SSEEventsPublishedTotal.Inc()
	}

	err := h.registry.Download(r.Context(), name, func(percent int) {
		emit(map[string]any{"status": "downloading", "model": name, "progress": percent})
	})
	if err != nil {
		log.Warn().Err(err).Str("model", name).Msg("model download failed")
		emit(map[string]any{"status": "error", "model": name, "error": err.Error()})
		return
	}
	emit(map[string]any{"status": "complete", "model": name})
}
