package api

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/tubescribe/internal/cache"
	"github.com/snarg/tubescribe/internal/pipeline"
)

// DownloadToken is the cached hand-off payload behind a one-time download
// link. The file lives in its own temp dir so consuming the link can remove
// everything.
type DownloadToken struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	TempDir  string `json:"temp_dir"`
	OwnerID  string `json:"owner_id"`
}

type DownloadsHandler struct {
	records RecordStore
	cache   *cache.Cache
}

func NewDownloadsHandler(records RecordStore, c *cache.Cache) *DownloadsHandler {
	return &DownloadsHandler{records: records, cache: c}
}

// PrepareRoutes registers the authenticated preparation endpoint.
func (h *DownloadsHandler) PrepareRoutes(r chi.Router) {
	r.Post("/videos/{videoID}/transcript/download", h.PrepareDownload)
}

// Routes registers the token-redeeming endpoint. The token itself is the
// credential, so this lives outside the auth group.
func (h *DownloadsHandler) Routes(r chi.Router) {
	r.Get("/downloads/{token}", h.Download)
}

// PrepareResponse describes a freshly minted download link.
type PrepareResponse struct {
	Token            string `json:"token"`
	DownloadURL      string `json:"download_url"`
	Filename         string `json:"filename"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// PrepareDownload writes the completed transcript to a scratch file and
// returns a single-use link to it.
func (h *DownloadsHandler) PrepareDownload(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	ownerID := downloadOwner(r)

	rec, err := h.records.Get(r.Context(), videoID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load video state")
		return
	}
	if rec == nil || rec.Status != pipeline.StatusCompleted || rec.Outcome == nil {
		WriteError(w, http.StatusNotFound, "no completed transcript for this video")
		return
	}

	dir, err := os.MkdirTemp("", "tubescribe-download-*")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to prepare download")
		return
	}
	filename := videoID + ".txt"
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(rec.Outcome.Content), 0o644); err != nil {
		os.RemoveAll(dir)
		WriteError(w, http.StatusInternalServerError, "failed to prepare download")
		return
	}

	token := newToken()
	payload := DownloadToken{Path: path, Filename: filename, TempDir: dir, OwnerID: ownerID}
	if err := h.cache.Set(r.Context(), token, payload, cache.DefaultTTL); err != nil {
		os.RemoveAll(dir)
		WriteError(w, http.StatusInternalServerError, "failed to store download token")
		return
	}

	WriteJSON(w, http.StatusOK, PrepareResponse{
		Token:            token,
		DownloadURL:      "/api/v1/downloads/" + token,
		Filename:         filename,
		ExpiresInSeconds: int(cache.DefaultTTL.Seconds()),
	})
}

// Download redeems a token: the entry is deleted before the file is served,
// so a link works at most once. The temp dir is removed after serving.
func (h *DownloadsHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	log := hlog.FromRequest(r)

	var payload DownloadToken
	found, err := h.cache.Get(r.Context(), token, &payload)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load download token")
		return
	}
	if !found {
		WriteError(w, http.StatusNotFound, "download link expired or already used")
		return
	}

	if payload.OwnerID != "" && downloadOwner(r) != payload.OwnerID {
		WriteError(w, http.StatusForbidden, "download link belongs to another requester")
		return
	}

	if err := h.cache.Delete(r.Context(), token); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate download token")
	}
	defer os.RemoveAll(payload.TempDir)

	data, err := os.ReadFile(payload.Path)
	if err != nil {
		WriteError(w, http.StatusNotFound, "download file no longer available")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	w.Write(data)
}

// downloadOwner resolves the identity a link is bound to: an explicit
// owner_id, or failing that a fingerprint of the bearer credential the
// request presents. With auth enabled a preparer therefore always binds the
// link to itself; redeeming takes the same owner_id or the same credential
// (?token= works for plain links).
func downloadOwner(r *http.Request) string {
	if owner, ok := QueryString(r, "owner_id"); ok {
		return owner
	}
	if cred := bearerCredential(r); cred != "" {
		sum := sha256.Sum256([]byte(cred))
		return "tok:" + hex.EncodeToString(sum[:8])
	}
	return ""
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
