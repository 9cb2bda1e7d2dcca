package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	siliconFlowEndpoint = "https://api.siliconflow.cn/v1/audio/transcriptions"
	siliconFlowModel    = "FunAudioLLM/SenseVoiceSmall"
)

// siliconFlowClient calls SiliconFlow's OpenAI-style transcription
// endpoint with a multipart upload.
type siliconFlowClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func newSiliconFlowClient(apiKey string, timeout time.Duration) *siliconFlowClient {
	return &siliconFlowClient{
		apiKey:   apiKey,
		endpoint: siliconFlowEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (sf *siliconFlowClient) Name() string { return ProviderSiliconFlow }

type siliconFlowResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (sf *siliconFlowClient) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	if sf.apiKey == "" {
		return nil, newError(ProviderSiliconFlow, ReasonAuth, "API key not configured")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("model", siliconFlowModel)
	// verbose_json includes detected-language info; transcribe only, never
	// translate.
	w.WriteField("response_format", "verbose_json")
	if language != "" {
		w.WriteField("language", language)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sf.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sf.apiKey)

	resp, err := sf.client.Do(req)
	if err != nil {
		return nil, newError(ProviderSiliconFlow, ReasonUnknown, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifySiliconFlow(resp.StatusCode, string(body))
	}

	var result siliconFlowResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, newError(ProviderSiliconFlow, ReasonUnknown, "unexpected response format")
	}
	if result.Text == "" {
		return nil, newError(ProviderSiliconFlow, ReasonUnknown, "no transcription result returned")
	}

	lang := result.Language
	if lang == "" {
		lang = "auto"
	}
	return &Result{Text: result.Text, Language: lang}, nil
}

// classifySiliconFlow maps SiliconFlow's failure surface onto the shared
// taxonomy.
func classifySiliconFlow(status int, body string) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return newError(ProviderSiliconFlow, ReasonAuth, "Invalid API key")
	case status == http.StatusPaymentRequired || strings.Contains(strings.ToLower(body), "insufficient"):
		return newError(ProviderSiliconFlow, ReasonQuota,
			"Insufficient credit. Please top up your account.")
	}
	return newError(ProviderSiliconFlow, ReasonUnknown,
		fmt.Sprintf("API error (%d): %s", status, body))
}
