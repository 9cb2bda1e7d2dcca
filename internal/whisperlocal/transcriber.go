package whisperlocal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/gate"
	"github.com/snarg/tubescribe/internal/media"
	"github.com/snarg/tubescribe/internal/pipeline"
	"github.com/snarg/tubescribe/internal/words"
)

// ErrNotInstalled is returned when the configured model has no artifacts
// on disk. The orchestrator treats this as a stage skip, not a failure.
var ErrNotInstalled = errors.New("whisper model not installed")

// Runner executes model inference over a downloaded audio file.
type Runner interface {
	Run(ctx context.Context, audioPath, model string) (text, language string, err error)
}

// AudioFetcher downloads a video's audio into dir. Satisfied by
// *media.Fetcher.
type AudioFetcher interface {
	Download(ctx context.Context, videoID, dir string) (string, error)
}

// Transcriber downloads a video's audio and runs the configured local
// model over it.
type Transcriber struct {
	registry *Registry
	fetcher  AudioFetcher
	gate     *gate.Gate
	model    string
	runner   Runner
	log      zerolog.Logger
}

func NewTranscriber(registry *Registry, fetcher AudioFetcher, g *gate.Gate, model string, log zerolog.Logger) *Transcriber {
	return &Transcriber{
		registry: registry,
		fetcher:  fetcher,
		gate:     g,
		model:    model,
		runner:   newExecRunner(registry),
		log:      log,
	}
}

// Available reports whether this stage is eligible: at least one catalog
// model installed.
func (t *Transcriber) Available() bool {
	return t.registry.AnyInstalled()
}

// Transcribe downloads the video's audio and runs local inference.
func (t *Transcriber) Transcribe(ctx context.Context, videoID string) (*pipeline.Outcome, error) {
	if !t.registry.Installed(t.model) {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, t.model)
	}

	t.log.Info().
		Str("video_id", videoID).
		Str("model", t.model).
		Str("backend", string(t.registry.Backend())).
		Msg("starting local transcription")

	var outcome *pipeline.Outcome
	err := media.WithTempDir(func(dir string) error {
		audioPath, err := t.fetcher.Download(ctx, videoID, dir)
		if err != nil {
			return fmt.Errorf("download audio: %w", err)
		}

		var text, language string
		err = t.gate.Do(ctx, func() error {
			var runErr error
			text, language, runErr = t.runner.Run(ctx, audioPath, t.model)
			return runErr
		})
		if err != nil {
			return fmt.Errorf("inference: %w", err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return errors.New("no transcription result returned")
		}
		if language == "" {
			language = "auto"
		}

		outcome = &pipeline.Outcome{
			Content:   text,
			Language:  language,
			WordCount: words.Count(text),
			Method:    "whisper-" + string(t.registry.Backend()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.log.Info().
		Str("video_id", videoID).
		Int("word_count", outcome.WordCount).
		Str("language", outcome.Language).
		Msg("local transcription complete")
	return outcome, nil
}

// execRunner shells out to the backend family's CLI, writing JSON output
// next to the audio file and reading it back.
type execRunner struct {
	registry *Registry
}

func newExecRunner(registry *Registry) *execRunner {
	return &execRunner{registry: registry}
}

type runnerOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (r *execRunner) Run(ctx context.Context, audioPath, model string) (string, string, error) {
	e, ok := r.registry.entry(model)
	if !ok {
		return "", "", fmt.Errorf("unknown model: %s", model)
	}

	outDir := filepath.Dir(audioPath)
	var cmd *exec.Cmd
	if r.registry.Backend() == BackendMLX {
		cmd = exec.CommandContext(ctx, "mlx_whisper", audioPath,
			"--model", e.Repo,
			"--output-dir", outDir,
			"--output-format", "json")
	} else {
		cmd = exec.CommandContext(ctx, "whisper-ctranslate2", audioPath,
			"--model", model,
			"--device", "cpu",
			"--compute_type", "int8",
			"--output_dir", outDir,
			"--output_format", "json")
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return "", "", fmt.Errorf("%s: %s", err, truncate(string(out), 200))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return "", "", fmt.Errorf("read inference output: %w", err)
	}

	var result runnerOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return "", "", fmt.Errorf("parse inference output: %w", err)
	}
	return result.Text, result.Language, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
