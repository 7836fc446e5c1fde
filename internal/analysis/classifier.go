package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
)

// Classifier enriches a problem text with summary, keywords and category.
type Classifier struct {
	analyzer ports.Analyzer
	cfg      Config
	logger   *slog.Logger
}

// NewClassifier wires the analyzer; a nil analyzer always yields the local fallback.
func NewClassifier(analyzer ports.Analyzer, cfg Config, logger *slog.Logger) *Classifier {
	return &Classifier{
		analyzer: analyzer,
		cfg:      cfg.Normalize(),
		logger:   loggerOrDiscard(logger),
	}
}

type classificationResponse struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}

// Classify never fails: analyzer errors and schema violations produce Fallback.
func (c *Classifier) Classify(ctx context.Context, text string, origin domain.Origin) domain.Classification {
	text = strings.TrimSpace(text)
	if text == "" || c.analyzer == nil {
		return c.Fallback(text)
	}

	raw, err := c.analyzer.Analyze(ctx, ports.AnalysisRequest{
		Task:   "classify_problem",
		Prompt: c.prompt(text, origin),
		Schema: c.schema(),
	})
	if err != nil {
		c.logger.Warn("classifier fallback", "reason", "analyzer error", "error", err)
		return c.Fallback(text)
	}

	result, err := c.decode(raw)
	if err != nil {
		c.logger.Warn("classifier fallback", "reason", "invalid response", "error", err)
		return c.Fallback(text)
	}

	return result
}

// Fallback derives a classification locally and deterministically.
func (c *Classifier) Fallback(text string) domain.Classification {
	return domain.Classification{
		Summary:  truncateRunes(strings.TrimSpace(text), c.cfg.SummaryMaxRunes),
		Keywords: []string{},
		Category: domain.Category(c.cfg.CatchAllCategory),
		Fallback: true,
	}
}

func (c *Classifier) decode(raw json.RawMessage) (domain.Classification, error) {
	var resp classificationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.Classification{}, fmt.Errorf("decode classification: %w", err)
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		return domain.Classification{}, fmt.Errorf("empty summary")
	}
	if len(resp.Keywords) > c.cfg.MaxKeywords {
		return domain.Classification{}, fmt.Errorf("%d keywords exceed limit %d", len(resp.Keywords), c.cfg.MaxKeywords)
	}
	category := strings.TrimSpace(resp.Category)
	if !c.cfg.IsCategory(category) {
		return domain.Classification{}, fmt.Errorf("unknown category %q", resp.Category)
	}

	return domain.Classification{
		Summary:  summary,
		Keywords: cleanKeywords(resp.Keywords),
		Category: domain.Category(category),
	}, nil
}

func (c *Classifier) schema() *ports.Schema {
	return &ports.Schema{
		Type: ports.TypeObject,
		Properties: map[string]*ports.Schema{
			"summary": {
				Type:        ports.TypeString,
				Description: "One or two sentence summary of the underlying problem",
			},
			"keywords": {
				Type:        ports.TypeArray,
				Description: "Short topical keywords",
				Items:       &ports.Schema{Type: ports.TypeString},
				MaxItems:    ports.Int64(int64(c.cfg.MaxKeywords)),
			},
			"category": {
				Type: ports.TypeString,
				Enum: c.cfg.Categories,
			},
		},
		PropertyOrder: []string{"summary", "keywords", "category"},
		Required:      []string{"summary", "keywords", "category"},
	}
}

func (c *Classifier) prompt(text string, origin domain.Origin) string {
	return fmt.Sprintf(`You are cataloguing problem statements people have shared (source: %s).

PROBLEM STATEMENT:
%s

TASK:
1. Summarize the underlying problem in one or two plain sentences.
2. List up to %d short keywords naming the topics involved.
3. Pick exactly one category from: %s.
   Use %q when nothing else fits.

Respond only with the structured fields requested.`,
		origin, text, c.cfg.MaxKeywords, strings.Join(c.cfg.Categories, ", "), c.cfg.CatchAllCategory)
}
