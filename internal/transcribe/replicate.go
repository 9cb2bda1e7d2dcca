package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	replicateBaseURL = "https://api.replicate.com/v1"

	// Fast whisper variant chosen for speed and cost.
	replicateModelVersion = "vaibhavs10/incredibly-fast-whisper:3ab86df6c8f54c11309d4d1f930ac292bad43ace52d10c80d87eb258b3c9f79c"

	replicatePollInterval = 2 * time.Second
)

// replicateClient calls Replicate's predictions API: create a prediction,
// then poll until it reaches a terminal state.
type replicateClient struct {
	apiToken string
	baseURL  string
	client   *http.Client
}

func newReplicateClient(apiToken string, timeout time.Duration) *replicateClient {
	return &replicateClient{
		apiToken: apiToken,
		baseURL:  replicateBaseURL,
		client:   &http.Client{Timeout: timeout},
	}
}

func (rc *replicateClient) Name() string { return ProviderReplicate }

type replicatePrediction struct {
	ID     string `json:"id"`
	Status string `json:"status"` // starting, processing, succeeded, failed, canceled
	Output struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	} `json:"output"`
	Error string `json:"error"`
}

func (rc *replicateClient) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	if rc.apiToken == "" {
		return nil, newError(ProviderReplicate, ReasonAuth, "API token not configured")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	input := map[string]any{
		// Base64 data URI keeps the upload in a single request.
		"audio":      "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio),
		"task":       "transcribe", // never translate, keep the original language
		"batch_size": 64,
	}
	if language != "" {
		input["language"] = language
	}

	body, err := json.Marshal(map[string]any{
		"version": replicateModelVersion,
		"input":   input,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	pred, err := rc.createPrediction(ctx, body)
	if err != nil {
		return nil, err
	}

	for !replicateTerminal(pred.Status) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(replicatePollInterval):
		}
		pred, err = rc.getPrediction(ctx, pred.ID)
		if err != nil {
			return nil, err
		}
	}

	if pred.Status != "succeeded" {
		return nil, classifyReplicate(0, pred.Error)
	}
	if pred.Output.Text == "" {
		return nil, newError(ProviderReplicate, ReasonUnknown, "no transcription result returned")
	}

	lang := pred.Output.Language
	if lang == "" {
		lang = "auto"
	}
	return &Result{Text: pred.Output.Text, Language: lang}, nil
}

func (rc *replicateClient) createPrediction(ctx context.Context, body []byte) (*replicatePrediction, error) {
	return rc.do(ctx, http.MethodPost, rc.baseURL+"/predictions", bytes.NewReader(body))
}

func (rc *replicateClient) getPrediction(ctx context.Context, id string) (*replicatePrediction, error) {
	return rc.do(ctx, http.MethodGet, rc.baseURL+"/predictions/"+id, nil)
}

func (rc *replicateClient) do(ctx context.Context, method, url string, body io.Reader) (*replicatePrediction, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+rc.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, newError(ProviderReplicate, ReasonUnknown, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyReplicate(resp.StatusCode, string(respBody))
	}

	var pred replicatePrediction
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return nil, newError(ProviderReplicate, ReasonUnknown, "unexpected response format")
	}
	return &pred, nil
}

func replicateTerminal(status string) bool {
	return status == "succeeded" || status == "failed" || status == "canceled"
}

// classifyReplicate maps Replicate's failure surface onto the shared
// taxonomy: auth, quota, or generic with a bounded message.
func classifyReplicate(status int, detail string) *Error {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "insufficient credit") || status == http.StatusPaymentRequired:
		return newError(ProviderReplicate, ReasonQuota,
			"Insufficient credit. Please add funds to your Replicate account.")
	case status == http.StatusUnauthorized || strings.Contains(lower, "unauthorized"):
		return newError(ProviderReplicate, ReasonAuth, "Invalid API token")
	}
	return newError(ProviderReplicate, ReasonUnknown, "API error: "+detail)
}
