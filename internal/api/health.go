package api

import (
	"context"
	"net/http"
	"time"

	"github.com/snarg/tubescribe/internal/cache"
	"github.com/snarg/tubescribe/internal/whisperlocal"
)

// HealthPinger is the database health surface. Nil when no database is
// configured.
type HealthPinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Backend       string            `json:"whisper_backend"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	db        HealthPinger
	cache     *cache.Cache
	registry  *whisperlocal.Registry
	version   string
	startTime time.Time
}

func NewHealthHandler(db HealthPinger, c *cache.Cache, registry *whisperlocal.Registry, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     c,
		registry:  registry,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ok"

	switch {
	case h.db == nil:
		checks["database"] = "not configured"
	default:
		if err := h.db.HealthCheck(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}

	if h.cache.UsingRedis() {
		checks["cache"] = "redis"
	} else {
		checks["cache"] = "in-process"
	}

	if h.registry.AnyInstalled() {
		checks["whisper"] = "model installed"
	} else {
		checks["whisper"] = "no model installed"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Backend:       string(h.registry.Backend()),
		Checks:        checks,
	})
}
