// Package media downloads a video's best audio stream via yt-dlp and hands
// back a compressed file suitable for speech-to-text. Low bitrate is fine
// for speech; both AI stages share this path.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/gate"
)

// formats yt-dlp may leave behind when mp3 extraction is skipped.
var audioExts = []string{"mp3", "m4a", "wav", "webm", "ogg"}

// Options configures the outbound side of audio downloads.
type Options struct {
	YTDLPPath      string // binary name or path, default "yt-dlp"
	ProxyURL       string // optional outbound proxy
	CookiesBrowser string // browser to extract cookies from, "" = none
}

// Fetcher downloads audio for a video through the shared blocking-call gate.
type Fetcher struct {
	opts Options
	gate *gate.Gate
	log  zerolog.Logger

	// run is swappable in tests; defaults to running the real command.
	run func(ctx context.Context, name string, args ...string) error
}

func NewFetcher(opts Options, g *gate.Gate, log zerolog.Logger) *Fetcher {
	if opts.YTDLPPath == "" {
		opts.YTDLPPath = "yt-dlp"
	}
	return &Fetcher{
		opts: opts,
		gate: g,
		log:  log,
		run: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			return cmd.Run()
		},
	}
}

// Download fetches the best audio stream for videoID into dir, transcoding
// to 64kbps mp3. Returns the path of the downloaded file.
func (f *Fetcher) Download(ctx context.Context, videoID, dir string) (string, error) {
	args := []string{
		"--quiet", "--no-warnings",
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "64K",
		"-o", filepath.Join(dir, videoID+".%(ext)s"),
	}
	if f.opts.ProxyURL != "" {
		args = append(args, "--proxy", f.opts.ProxyURL)
	}
	if f.opts.CookiesBrowser != "" {
		args = append(args, "--cookies-from-browser", f.opts.CookiesBrowser)
	}
	args = append(args, "https://www.youtube.com/watch?v="+videoID)

	err := f.gate.Do(ctx, func() error {
		return f.run(ctx, f.opts.YTDLPPath, args...)
	})
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}

	path := findDownloaded(dir, videoID)
	if path == "" {
		return "", fmt.Errorf("audio file not found after download for %s", videoID)
	}

	if info, err := os.Stat(path); err == nil {
		f.log.Debug().
			Str("video_id", videoID).
			Str("path", path).
			Int64("bytes", info.Size()).
			Msg("audio downloaded")
	}
	return path, nil
}

// findDownloaded locates the output file, preferring mp3 and then any
// other format yt-dlp may have produced.
func findDownloaded(dir, videoID string) string {
	for _, ext := range audioExts {
		path := filepath.Join(dir, videoID+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// WithTempDir creates a scratch directory, runs fn with it, and removes it
// on every exit path so downloaded audio never outlives its attempt.
func WithTempDir(fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", "tubescribe-audio-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}
