// Package captions pulls creator-provided or platform-generated caption
// tracks for a video. It is the first and cheapest extraction stage: any
// platform-side failure (no captions, age restriction, region block,
// private video, network error) degrades to "no captions" so the fallback
// chain can move on, rather than surfacing as an item failure.
package captions

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/gate"
	"github.com/snarg/tubescribe/internal/pipeline"
	"github.com/snarg/tubescribe/internal/words"
)

// Fixed language priority: English variants first, then the small set of
// additional languages the deployment cares about. Manual tracks beat
// automatic ones within the same priority scan.
var langPriority = []string{
	"en", "en-US", "en-GB",
	"it", "it-IT",
	"zh", "zh-Hans", "zh-Hant", "zh-TW", "zh-HK",
	"ja", "ko",
}

// Extractor fetches and parses caption tracks from the platform watch page.
type Extractor struct {
	client  *http.Client
	gate    *gate.Gate
	log     zerolog.Logger
	baseURL string
}

func NewExtractor(g *gate.Gate, log zerolog.Logger) *Extractor {
	return &Extractor{
		client:  &http.Client{Timeout: 30 * time.Second},
		gate:    g,
		log:     log,
		baseURL: "https://www.youtube.com",
	}
}

// track is one entry of the player's captionTracks list.
// Kind "asr" marks platform-generated (automatic) tracks.
type track struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type trackList struct {
	PlayerCaptionsTracklistRenderer struct {
		CaptionTracks []track `json:"captionTracks"`
	} `json:"playerCaptionsTracklistRenderer"`
}

// transcript is the timedtext XML served at a track's base URL.
type transcript struct {
	Entries []struct {
		Text  string  `xml:",chardata"`
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
	} `xml:"text"`
}

// Extract returns a caption outcome, or (nil, nil) when the platform has no
// usable captions for the video. The distinct failure causes are
// indistinguishable from the caller's point of view and all mean "try the
// next stage".
func (e *Extractor) Extract(ctx context.Context, videoID string) (*pipeline.Outcome, error) {
	var outcome *pipeline.Outcome
	err := e.gate.Do(ctx, func() error {
		var err error
		outcome, err = e.extract(ctx, videoID)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Debug().Err(err).Str("video_id", videoID).Msg("caption extraction failed, treating as no captions")
		return nil, nil
	}
	return outcome, nil
}

func (e *Extractor) extract(ctx context.Context, videoID string) (*pipeline.Outcome, error) {
	tracks, err := e.fetchTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	chosen, lang := selectTrack(tracks)
	if chosen == nil {
		return nil, fmt.Errorf("no caption tracks for %s", videoID)
	}

	ts, err := e.fetchTranscript(ctx, chosen.BaseURL)
	if err != nil {
		return nil, err
	}

	return render(ts, lang), nil
}

func (e *Extractor) fetchTracks(ctx context.Context, videoID string) ([]track, error) {
	body, err := e.get(ctx, e.baseURL+"/watch?v="+videoID)
	if err != nil {
		return nil, err
	}

	// The caption list is embedded in the watch page's player response.
	content := string(body)
	_, after, found := strings.Cut(content, `"captions":`)
	if !found {
		return nil, fmt.Errorf("no captions json in watch page for %s", videoID)
	}
	raw, _, _ := strings.Cut(after, `,"videoDetails`)
	raw = strings.ReplaceAll(raw, "\n", "")

	var list trackList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("parse caption track list: %w", err)
	}
	return list.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

func (e *Extractor) fetchTranscript(ctx context.Context, url string) (*transcript, error) {
	body, err := e.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var ts transcript
	if err := xml.Unmarshal(body, &ts); err != nil {
		return nil, fmt.Errorf("parse transcript xml: %w", err)
	}
	return &ts, nil
}

func (e *Extractor) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// selectTrack picks the caption track to use: manual tracks in priority
// order first, then automatic tracks in priority order, then any automatic
// track as a last resort (the platform lists the video's original language
// first). Returns nil when nothing is usable.
func selectTrack(tracks []track) (*track, string) {
	for _, lang := range langPriority {
		for i, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return &tracks[i], lang
			}
		}
	}
	for _, lang := range langPriority {
		for i, t := range tracks {
			if t.LanguageCode == lang && t.Kind == "asr" {
				return &tracks[i], lang
			}
		}
	}
	for i, t := range tracks {
		if t.Kind == "asr" {
			return &tracks[i], t.LanguageCode
		}
	}
	return nil, ""
}

// render joins segments into a timestamped transcript, one line per
// segment, and computes the word count from the plain joined text.
func render(ts *transcript, lang string) *pipeline.Outcome {
	var lines []string
	var plain []string

	for _, entry := range ts.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", formatTimestamp(entry.Start), text))
		plain = append(plain, text)
	}

	if len(lines) == 0 {
		return nil
	}

	return &pipeline.Outcome{
		Content:   strings.Join(lines, "\n"),
		Language:  lang,
		WordCount: words.Count(strings.Join(plain, " ")),
		Method:    pipeline.MethodCaption,
	}
}

// formatTimestamp renders seconds as MM:SS, or H:MM:SS past the first hour.
func formatTimestamp(seconds float64) string {
	s := int(seconds)
	h := s / 3600
	m := s % 3600 / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
