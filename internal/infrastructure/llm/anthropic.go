package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ProblemScout/internal/config"
	"ProblemScout/internal/ports"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicAnalyzer forces a single tool call whose input schema is the requested
// output schema; the tool input is the structured result.
type AnthropicAnalyzer struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	maxTokens    int64
}

var _ ports.Analyzer = (*AnthropicAnalyzer)(nil)

// NewAnthropicAnalyzer builds an analyzer; extra options let tests point at a local server.
func NewAnthropicAnalyzer(cfg config.AnalyzerConfig, opts ...option.RequestOption) (*AnthropicAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeoutOrDefault(cfg.Timeout)),
	}
	if cfg.Endpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.Endpoint))
	}
	reqOpts = append(reqOpts, opts...)

	return &AnthropicAnalyzer{
		client:       anthropic.NewClient(reqOpts...),
		model:        model,
		systemPrompt: safePrompt(cfg.SystemPrompt),
		maxTokens:    maxTokens,
	}, nil
}

// Analyze issues one Messages call with tool_choice pinned to the result tool.
func (a *AnthropicAnalyzer) Analyze(ctx context.Context, req ports.AnalysisRequest) (json.RawMessage, error) {
	if req.Schema == nil || req.Schema.Type != ports.TypeObject {
		return nil, fmt.Errorf("%s: anthropic analyzer needs an object schema", req.Task)
	}

	name := toolName(req.Task)
	schema := req.Schema.JSONSchema()
	tool := anthropic.ToolParam{
		Name:        name,
		Description: anthropic.String("Record the structured result of " + name),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: schema["properties"],
			Required:   req.Schema.Required,
		},
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:      anthropic.Model(a.model),
		MaxTokens:  a.maxTokens,
		System:     []anthropic.TextBlockParam{{Text: a.systemPrompt}},
		Messages:   []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Tools:      []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceParamOfTool(name),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: anthropic call failed: %w", req.Task, err)
	}

	for _, block := range resp.Content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok && toolUse.Name == name {
			return json.RawMessage(toolUse.Input), nil
		}
	}

	return nil, fmt.Errorf("%s: anthropic response has no %s tool call", req.Task, name)
}
