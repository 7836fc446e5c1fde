package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ProblemScout/internal/config"
	"ProblemScout/internal/ports"
)

// InferenceAnalyzer talks to a self-hosted inference service exposing POST /analyze.
// The service receives the prompt with its JSON schema and answers {"result": <value>}.
type InferenceAnalyzer struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Analyzer = (*InferenceAnalyzer)(nil)

// NewInferenceAnalyzer creates a reusable HTTP client.
func NewInferenceAnalyzer(cfg config.AnalyzerConfig) *InferenceAnalyzer {
	return &InferenceAnalyzer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)},
	}
}

// Analyze sends the task, prompt and schema and returns the result value.
func (c *InferenceAnalyzer) Analyze(ctx context.Context, req ports.AnalysisRequest) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("inference analyzer misconfigured")
	}

	payload := map[string]any{
		"task":   req.Task,
		"prompt": req.Prompt,
		"schema": req.Schema.JSONSchema(),
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.post(ctx, "/analyze", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, fmt.Errorf("inference response has no result")
	}

	return resp.Result, nil
}

func (c *InferenceAnalyzer) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
