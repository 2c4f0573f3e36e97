package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kevinaaaquil/lexireader/models"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
	defaultGeminiTimeout = 30 * time.Second
)

var ErrNotConfigured = errors.New("service not configured")

type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// GeminiClient calls the generative-language API for study cards, expression
// glossaries and phonetic transcriptions. Requests are not retried.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

func NewGeminiClient(cfg GeminiConfig, httpClient *http.Client) *GeminiClient {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultGeminiModel
	}
	if httpClient == nil {
		timeout := defaultGeminiTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &GeminiClient{cfg: cfg, httpClient: httpClient}
}

// StudyCardData explains term as used in context.
func (c *GeminiClient) StudyCardData(ctx context.Context, term, context string) (models.StudyCard, error) {
	answer, err := c.generate(ctx, fmt.Sprintf(studyCardPrompt, term, context))
	if err != nil {
		return models.StudyCard{}, fmt.Errorf("study card: %w", err)
	}
	var card models.StudyCard
	if err := decodeModelObject(answer, &card); err != nil {
		return models.StudyCard{}, fmt.Errorf("study card: %w", err)
	}
	card.Explanation = strings.TrimSpace(card.Explanation)
	card.ExampleSentence = strings.TrimSpace(card.ExampleSentence)
	card.ExampleTranslation = strings.TrimSpace(card.ExampleTranslation)
	card.IPA = strings.TrimSpace(card.IPA)
	return card, nil
}

// GenerateExpressions extracts idiomatic expressions from text. The model may
// answer with a bare array or with {"expressions": [...]}.
func (c *GeminiClient) GenerateExpressions(ctx context.Context, text string) ([]models.ExpressionCandidate, error) {
	answer, err := c.generate(ctx, fmt.Sprintf(expressionsPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("expressions: %w", err)
	}
	out, err := decodeModelList[models.ExpressionCandidate](answer, "expressions")
	if err != nil {
		return nil, fmt.Errorf("expressions: %w", err)
	}
	return out, nil
}

// IPA returns the phonetic transcription of term.
func (c *GeminiClient) IPA(ctx context.Context, term string) (string, error) {
	var resp struct {
		IPA string `json:"ipa"`
	}
	answer, err := c.generate(ctx, fmt.Sprintf(ipaPrompt, term))
	if err != nil {
		return "", fmt.Errorf("ipa: %w", err)
	}
	if err := decodeModelObject(answer, &resp); err != nil {
		return "", fmt.Errorf("ipa: %w", err)
	}
	ipa := strings.TrimSpace(resp.IPA)
	if ipa == "" {
		return "", errors.New("ipa: empty transcription")
	}
	return ipa, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// generate sends prompt and returns the text of the first non-empty answer part.
func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json", Temperature: 0.2},
	})
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, Body: clip(string(raw))}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text, nil
			}
		}
	}
	return "", fmt.Errorf("empty response: %s", clip(string(raw)))
}

// HTTPStatusError reports a non-2xx answer from an upstream API.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

const studyCardPrompt = `You help a language learner study a term they highlighted while reading.
Term: %q
Sentence where it appears: %q
Answer with JSON only: {"explanation": string, "exampleSentence": string, "exampleTranslation": string, "ipa": string}.`

const expressionsPrompt = `Find idiomatic expressions and phrasal verbs in the lesson text below.
Copy each expression exactly as it appears in the text.
Answer with JSON only: {"expressions": [{"expression": string, "explanation": string, "context": string, "simpleExample": string, "simpleExampleTranslation": string}]}.

Text:
%s`

const ipaPrompt = `Give the IPA transcription of %q.
Answer with JSON only: {"ipa": string}.`
