package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kevinaaaquil/lexireader/models"
)

const (
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultElevenLabsModel   = "eleven_multilingual_v2"

	// AudioMIMEType is what Synthesize asks the API to return.
	AudioMIMEType = "audio/mpeg"
)

type ElevenLabsClient struct {
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// NewElevenLabsClient builds a speech client. The API key travels with each
// call since the user can change it at runtime.
func NewElevenLabsClient(baseURL, modelID string, httpClient *http.Client) *ElevenLabsClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultElevenLabsModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ElevenLabsClient{baseURL: baseURL, modelID: modelID, httpClient: httpClient}
}

func (c *ElevenLabsClient) ListVoices(ctx context.Context, apiKey string) ([]models.Voice, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("xi-api-key", apiKey)
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	var parsed struct {
		Voices []models.Voice `json:"voices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("list voices: decode: %w", err)
	}
	return parsed.Voices, nil
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, apiKey, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(voiceID) == "" {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(map[string]string{"text": text, "model_id": c.modelID})
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("xi-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", AudioMIMEType)

	audio, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesize: empty audio")
	}
	return audio, nil
}

func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: clip(string(raw))}
	}
	return raw, nil
}
