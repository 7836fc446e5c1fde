package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/genai"

	"ProblemScout/internal/config"
	"ProblemScout/internal/ports"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiAnalyzer uses Gemini's native response schema for structured output.
type GeminiAnalyzer struct {
	client       *genai.Client
	model        string
	systemPrompt string
	maxTokens    int32
}

var _ ports.Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer creates a Gemini API client. A non-empty baseURL overrides the API host.
func NewGeminiAnalyzer(ctx context.Context, cfg config.AnalyzerConfig, baseURL string) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiAnalyzer{
		client:       client,
		model:        model,
		systemPrompt: safePrompt(cfg.SystemPrompt),
		maxTokens:    outputTokens(cfg.MaxTokens),
	}, nil
}

// Analyze requests application/json output constrained by the converted schema.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, req ports.AnalysisRequest) (json.RawMessage, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    toGenAISchema(req.Schema),
	}
	if g.maxTokens > 0 {
		genCfg.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: gemini call failed: %w", req.Task, err)
	}

	return extractJSON(resp.Text())
}

func toGenAISchema(s *ports.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:             genAIType(s.Type),
		Description:      s.Description,
		Required:         s.Required,
		Enum:             s.Enum,
		MinItems:         s.MinItems,
		MaxItems:         s.MaxItems,
		Minimum:          s.Minimum,
		Maximum:          s.Maximum,
		PropertyOrdering: s.PropertyOrder,
		Items:            toGenAISchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	return out
}

func genAIType(t string) genai.Type {
	switch t {
	case ports.TypeObject:
		return genai.TypeObject
	case ports.TypeArray:
		return genai.TypeArray
	case ports.TypeNumber:
		return genai.TypeNumber
	case ports.TypeInteger:
		return genai.TypeInteger
	case ports.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// outputTokens narrows the configured limit to genai's int32, saturating at the maximum.
func outputTokens(n int) int32 {
	if n <= 0 {
		return 0
	}
	return int32(min(n, math.MaxInt32))
}
