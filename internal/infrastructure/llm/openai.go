package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ProblemScout/internal/config"
	"ProblemScout/internal/ports"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel    = "gpt-4o-mini"
)

// OpenAIAnalyzer implements ports.Analyzer backed by OpenAI-compatible chat completions
// with a strict json_schema response format.
type OpenAIAnalyzer struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	maxTokens    int
	httpClient   *http.Client
}

var _ ports.Analyzer = (*OpenAIAnalyzer)(nil)

// NewOpenAIAnalyzer builds an analyzer from configuration.
func NewOpenAIAnalyzer(cfg config.AnalyzerConfig) *OpenAIAnalyzer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIAnalyzer{
		endpoint:     endpoint,
		model:        model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		httpClient:   &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze posts the prompt as a user message and returns the schema-conforming content.
func (c *OpenAIAnalyzer) Analyze(ctx context.Context, req ports.AnalysisRequest) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("openai analyzer is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("openai analyzer misconfigured")
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": req.Prompt},
		},
	}
	if c.maxTokens > 0 {
		payload["max_tokens"] = c.maxTokens
	}
	if req.Schema != nil {
		payload["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   toolName(req.Task),
				"strict": true,
				"schema": req.Schema.JSONSchema(),
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal openai payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Task, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("openai response has no choices")
	}
	msg := decoded.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("openai refused: %s", msg.Refusal)
	}

	return extractJSON(msg.Content)
}
