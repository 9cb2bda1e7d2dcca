package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/pipeline"
)

type stubFetcher struct {
	err error
}

func (f *stubFetcher) Download(ctx context.Context, videoID, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, videoID+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type stubProvider struct {
	name   string
	result *Result
	err    error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, err
	}
	return p.result, p.err
}

func newTestService(fetcher AudioFetcher, provider Provider) *Service {
	svc := NewService(fetcher, Config{}, ProviderReplicate, zerolog.Nop())
	svc.newProvider = func(name string, cfg Config) (Provider, error) {
		if provider == nil {
			return New(name, cfg)
		}
		return provider, nil
	}
	return svc
}

func TestService_Transcribe(t *testing.T) {
	svc := newTestService(&stubFetcher{}, &stubProvider{
		name:   ProviderReplicate,
		result: &Result{Text: " hello 世界 world ", Language: "en"},
	})

	outcome, err := svc.Transcribe(context.Background(), pipeline.WorkItem{VideoID: "abc123", AllowAI: true})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if outcome.Content != "hello 世界 world" {
		t.Errorf("content = %q", outcome.Content)
	}
	if outcome.Method != pipeline.MethodAI {
		t.Errorf("method = %q, want %q", outcome.Method, pipeline.MethodAI)
	}
	if outcome.WordCount != 4 {
		t.Errorf("word count = %d, want 4", outcome.WordCount)
	}
	if outcome.Language != "en" {
		t.Errorf("language = %q, want en", outcome.Language)
	}
}

func TestService_ItemProviderOverridesDefault(t *testing.T) {
	var resolved string
	svc := NewService(&stubFetcher{}, Config{}, ProviderReplicate, zerolog.Nop())
	svc.newProvider = func(name string, cfg Config) (Provider, error) {
		resolved = name
		return &stubProvider{name: name, result: &Result{Text: "ok", Language: "en"}}, nil
	}

	item := pipeline.WorkItem{VideoID: "abc123", AllowAI: true, Provider: ProviderSiliconFlow}
	if _, err := svc.Transcribe(context.Background(), item); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resolved != ProviderSiliconFlow {
		t.Errorf("resolved provider = %q, want %q", resolved, ProviderSiliconFlow)
	}
}

func TestService_UnknownProvider(t *testing.T) {
	svc := newTestService(&stubFetcher{}, nil)

	item := pipeline.WorkItem{VideoID: "abc123", AllowAI: true, Provider: "whispercloud"}
	_, err := svc.Transcribe(context.Background(), item)
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestService_AudioDownloadFailure(t *testing.T) {
	svc := newTestService(&stubFetcher{err: errors.New("403 forbidden")}, &stubProvider{
		name:   ProviderReplicate,
		result: &Result{Text: "unused"},
	})

	_, err := svc.Transcribe(context.Background(), pipeline.WorkItem{VideoID: "abc123", AllowAI: true})
	if !errors.Is(err, ErrNoAudio) {
		t.Errorf("err = %v, want ErrNoAudio", err)
	}
}

func TestService_ProviderFailurePropagates(t *testing.T) {
	svc := newTestService(&stubFetcher{}, &stubProvider{
		name: ProviderReplicate,
		err:  newError(ProviderReplicate, ReasonQuota, "Insufficient credit. Please add funds to your Replicate account."),
	})

	_, err := svc.Transcribe(context.Background(), pipeline.WorkItem{VideoID: "abc123", AllowAI: true})
	if ReasonOf(err) != ReasonQuota {
		t.Errorf("reason = %v, want quota", ReasonOf(err))
	}
}

func TestService_Configured(t *testing.T) {
	if svc := NewService(&stubFetcher{}, Config{}, "", zerolog.Nop()); svc.Configured() {
		t.Error("Configured() = true with no default provider")
	}
	if svc := NewService(&stubFetcher{}, Config{}, ProviderReplicate, zerolog.Nop()); !svc.Configured() {
		t.Error("Configured() = false with default provider set")
	}
}
