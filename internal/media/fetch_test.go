package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/gate"
)

func newTestFetcher(opts Options, run func(ctx context.Context, name string, args ...string) error) *Fetcher {
	f := NewFetcher(opts, gate.New(1), zerolog.Nop())
	f.run = run
	return f
}

func TestFetcher_Download(t *testing.T) {
	dir := t.TempDir()

	f := newTestFetcher(Options{}, func(ctx context.Context, name string, args ...string) error {
		// Simulate yt-dlp writing the extracted mp3.
		return os.WriteFile(filepath.Join(dir, "abc123.mp3"), []byte("audio"), 0o644)
	})

	path, err := f.Download(context.Background(), "abc123", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "abc123.mp3" {
		t.Errorf("path = %q, want abc123.mp3", path)
	}
}

func TestFetcher_DownloadFallbackFormat(t *testing.T) {
	dir := t.TempDir()

	f := newTestFetcher(Options{}, func(ctx context.Context, name string, args ...string) error {
		// mp3 extraction skipped, raw webm left behind
		return os.WriteFile(filepath.Join(dir, "abc123.webm"), []byte("audio"), 0o644)
	})

	path, err := f.Download(context.Background(), "abc123", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "abc123.webm" {
		t.Errorf("path = %q, want abc123.webm", path)
	}
}

func TestFetcher_DownloadNoFile(t *testing.T) {
	dir := t.TempDir()

	f := newTestFetcher(Options{}, func(ctx context.Context, name string, args ...string) error {
		return nil // command "succeeds" but writes nothing
	})

	_, err := f.Download(context.Background(), "abc123", dir)
	if err == nil {
		t.Fatal("expected error when no file is produced")
	}
}

func TestFetcher_CommandError(t *testing.T) {
	f := newTestFetcher(Options{}, func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	})

	_, err := f.Download(context.Background(), "abc123", t.TempDir())
	if err == nil {
		t.Fatal("expected error from failed command")
	}
}

func TestFetcher_ProxyAndCookieFlags(t *testing.T) {
	var captured []string
	f := newTestFetcher(Options{ProxyURL: "socks5://localhost:1080", CookiesBrowser: "chrome"},
		func(ctx context.Context, name string, args ...string) error {
			captured = args
			return errors.New("stop")
		})

	f.Download(context.Background(), "abc123", t.TempDir())

	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "--proxy socks5://localhost:1080") {
		t.Errorf("args missing proxy flag: %q", joined)
	}
	if !strings.Contains(joined, "--cookies-from-browser chrome") {
		t.Errorf("args missing cookies flag: %q", joined)
	}
}

func TestWithTempDir_CleansUp(t *testing.T) {
	var saved string
	err := WithTempDir(func(dir string) error {
		saved = dir
		return os.WriteFile(filepath.Join(dir, "x.mp3"), []byte("x"), 0o644)
	})
	if err != nil {
		t.Fatalf("WithTempDir: %v", err)
	}
	if _, err := os.Stat(saved); !os.IsNotExist(err) {
		t.Errorf("temp dir %q should be removed", saved)
	}
}

func TestWithTempDir_CleansUpOnError(t *testing.T) {
	var saved string
	WithTempDir(func(dir string) error {
		saved = dir
		return errors.New("boom")
	})
	if _, err := os.Stat(saved); !os.IsNotExist(err) {
		t.Errorf("temp dir %q should be removed on error", saved)
	}
}
