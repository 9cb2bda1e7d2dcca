package whisperlocal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Registry answers install/list/download questions for the selected
// backend's model catalog. Install status comes from probing the model
// cache directory, so it stays consistent with the filesystem across
// process restarts at the cost of a directory scan per check.
type Registry struct {
	backend  Backend
	cacheDir string
	log      zerolog.Logger

	// fetch downloads a repository snapshot; swappable in tests.
	fetch func(ctx context.Context, repo string) error
}

// NewRegistry creates a registry for the given backend. cacheDir "" uses
// the conventional HuggingFace hub cache under the user's home.
func NewRegistry(backend Backend, cacheDir string, log zerolog.Logger) *Registry {
	if cacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cacheDir = filepath.Join(home, ".cache", "huggingface", "hub")
		}
	}
	return &Registry{
		backend:  backend,
		cacheDir: cacheDir,
		log:      log,
		fetch: func(ctx context.Context, repo string) error {
			cmd := exec.CommandContext(ctx, "huggingface-cli", "download", repo)
			return cmd.Run()
		},
	}
}

// Backend returns the registry's backend family.
func (r *Registry) Backend() Backend { return r.backend }

func (r *Registry) entry(name string) (catalogEntry, bool) {
	for _, e := range catalogFor(r.backend) {
		if e.Name == name {
			return e, true
		}
	}
	return catalogEntry{}, false
}

// modelDir returns the cache directory a repository snapshot lives under,
// e.g. models--Systran--faster-whisper-base.
func (r *Registry) modelDir(repo string) string {
	return filepath.Join(r.cacheDir, "models--"+strings.ReplaceAll(repo, "/", "--"))
}

// Installed reports whether the named model has usable artifacts on disk:
// any snapshot containing either sharded safetensors (mlx) or a single
// model.bin blob (cpu-generic).
func (r *Registry) Installed(name string) bool {
	e, ok := r.entry(name)
	if !ok {
		return false
	}

	snapshots, err := os.ReadDir(filepath.Join(r.modelDir(e.Repo), "snapshots"))
	if err != nil {
		return false
	}

	for _, snap := range snapshots {
		if !snap.IsDir() {
			continue
		}
		dir := filepath.Join(r.modelDir(e.Repo), "snapshots", snap.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if filepath.Ext(f.Name()) == ".safetensors" || f.Name() == "model.bin" {
				return true
			}
		}
	}
	return false
}

// AnyInstalled reports whether at least one catalog model is installed.
func (r *Registry) AnyInstalled() bool {
	for _, e := range catalogFor(r.backend) {
		if r.Installed(e.Name) {
			return true
		}
	}
	return false
}

// List returns descriptors for every model in the backend's catalog.
func (r *Registry) List() []Descriptor {
	catalog := catalogFor(r.backend)
	out := make([]Descriptor, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, Descriptor{
			Name:      e.Name,
			SizeMB:    e.SizeMB,
			Installed: r.Installed(e.Name),
			Backend:   r.backend,
		})
	}
	return out
}

// Download fetches the named model's repository snapshot. onProgress
// receives a completion percentage; the underlying fetch does not report
// granular progress, so callers see 0 at start and 100 on completion.
func (r *Registry) Download(ctx context.Context, name string, onProgress func(percent int)) error {
	e, ok := r.entry(name)
	if !ok {
		return fmt.Errorf("unknown model: %s", name)
	}

	if r.Installed(name) {
		r.log.Info().Str("model", name).Msg("model already installed")
		if onProgress != nil {
			onProgress(100)
		}
		return nil
	}

	if onProgress != nil {
		onProgress(0)
	}
	r.log.Info().Str("model", name).Str("backend", string(r.backend)).Msg("downloading model")

	if err := r.fetch(ctx, e.Repo); err != nil {
		return fmt.Errorf("download model %s: %w", name, err)
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}
