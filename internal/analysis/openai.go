package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"benefits-backend/internal/shared/telemetry"
)

var defaultAPIURL = "https://api.openai.com/v1/chat/completions"

const systemPrompt = `You are a benefits-application document reviewer. You receive the extracted text of one applicant document and must verify it. Respond with a single JSON object and nothing else, with exactly these keys:
  "docType": string, the document type you were given
  "valid": boolean, whether the document looks authentic and complete for its type
  "summary": string, one sentence describing the document
  "flags": array of strings, anything suspicious or missing (empty when clean)
  "fields": object, the key facts extracted (names, dates, amounts, identifiers)`

// OpenAIAnalyzer implements Analyzer against an OpenAI-compatible Chat
// Completions endpoint.
type OpenAIAnalyzer struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// NewOpenAIAnalyzer constructs an OpenAIAnalyzer.
func NewOpenAIAnalyzer(apiKey, model string) (*OpenAIAnalyzer, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	return &OpenAIAnalyzer{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAIAnalyzer) Analyze(ctx context.Context, input Input) (json.RawMessage, error) {
	messages := buildPrompt(input)
	raw, err := c.completeOnce(ctx, messages)
	if err != nil {
		return nil, err
	}
	if json.Valid(raw) {
		return raw, nil
	}

	// One repair round: hand the malformed output back and ask for JSON only.
	fix := append(messages, chatMessage{
		Role:    "user",
		Content: "Your previous reply was not valid JSON. Reply again with only the corrected JSON object:\n" + string(raw),
	})
	raw, err = c.completeOnce(ctx, fix)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("analyzer returned invalid JSON")
	}
	return raw, nil
}

func buildPrompt(input Input) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Document type: %s\nExtraction confidence: %.2f\n\nDocument text:\n%s",
			input.DocType, input.OCRConfidence, input.Text)},
	}
}

func (c *OpenAIAnalyzer) completeOnce(ctx context.Context, messages []chatMessage) (json.RawMessage, error) {
	temp := float32(0)
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    &temp,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("analyzer request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("analyzer response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("analyzer error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("analyzer response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("analyzer response empty content")
	}
	if parsed.Usage != nil {
		telemetry.Info("analyzer response", map[string]any{
			"model":             c.model,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}
	return json.RawMessage(content), nil
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
