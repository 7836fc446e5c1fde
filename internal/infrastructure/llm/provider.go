// Package llm adapts hosted and self-hosted language models to ports.Analyzer.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ProblemScout/internal/config"
	"ProblemScout/internal/ports"
)

// Provider names accepted in configuration.
const (
	ProviderNone      = ""
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderInference = "inference"
)

const defaultTimeout = 30 * time.Second

// New builds the configured analyzer. ProviderNone yields a nil analyzer,
// which every analysis component treats as "use local fallbacks".
func New(ctx context.Context, cfg config.AnalyzerConfig) (ports.Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderNone, "none":
		return nil, nil
	case ProviderOpenAI:
		return NewOpenAIAnalyzer(cfg), nil
	case ProviderInference:
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return nil, fmt.Errorf("inference analyzer needs an endpoint")
		}
		return NewInferenceAnalyzer(cfg), nil
	case ProviderAnthropic:
		analyzer, err := NewAnthropicAnalyzer(cfg)
		if err != nil {
			return nil, err
		}
		return analyzer, nil
	case ProviderGemini:
		analyzer, err := NewGeminiAnalyzer(ctx, cfg, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		return analyzer, nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Provider)
	}
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You analyze short problem statements and answer only with the requested structured fields."
	}
	return prompt
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// toolName turns a task label into a provider-safe identifier.
func toolName(task string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(task) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "analysis_result"
	}
	return b.String()
}

// extractJSON accepts bare JSON or JSON wrapped in a markdown code fence.
func extractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, fmt.Errorf("empty analyzer response")
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("analyzer response is not valid JSON")
	}
	return json.RawMessage(text), nil
}
