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

// SimilarityDetector judges whether a candidate text repeats a recent problem.
type SimilarityDetector struct {
	analyzer ports.Analyzer
	cfg      Config
	logger   *slog.Logger
}

// NewSimilarityDetector wires the analyzer; a nil analyzer never reports duplicates.
func NewSimilarityDetector(analyzer ports.Analyzer, cfg Config, logger *slog.Logger) *SimilarityDetector {
	return &SimilarityDetector{
		analyzer: analyzer,
		cfg:      cfg.Normalize(),
		logger:   loggerOrDiscard(logger),
	}
}

type similarityResponse struct {
	IsDuplicate      bool    `json:"is_duplicate"`
	SimilarProblemID string  `json:"similar_problem_id"`
	SimilarityScore  float64 `json:"similarity_score"`
	Reasoning        string  `json:"reasoning"`
}

// CheckSimilarity compares candidate against prior, given most recent first.
// Any analyzer failure fails open with a not-duplicate verdict.
func (d *SimilarityDetector) CheckSimilarity(ctx context.Context, candidate string, prior []domain.Problem) domain.SimilarityVerdict {
	if len(prior) == 0 || d.analyzer == nil {
		return domain.SimilarityVerdict{}
	}
	if len(prior) > d.cfg.SimilarityWindow {
		prior = prior[:d.cfg.SimilarityWindow]
	}

	raw, err := d.analyzer.Analyze(ctx, ports.AnalysisRequest{
		Task:   "check_similarity",
		Prompt: d.prompt(candidate, prior),
		Schema: similaritySchema(),
	})
	if err != nil {
		d.logger.Warn("similarity fail-open", "reason", "analyzer error", "error", err)
		return domain.SimilarityVerdict{}
	}

	verdict, err := decodeVerdict(raw, prior)
	if err != nil {
		d.logger.Warn("similarity fail-open", "reason", "invalid response", "error", err)
		return domain.SimilarityVerdict{}
	}
	return verdict
}

func decodeVerdict(raw json.RawMessage, prior []domain.Problem) (domain.SimilarityVerdict, error) {
	var resp similarityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.SimilarityVerdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if resp.SimilarityScore < 0 || resp.SimilarityScore > 1 {
		return domain.SimilarityVerdict{}, fmt.Errorf("similarity score %.2f outside 0..1", resp.SimilarityScore)
	}

	nearest := strings.TrimSpace(resp.SimilarProblemID)
	if nearest != "" && !containsProblem(prior, nearest) {
		if resp.IsDuplicate {
			return domain.SimilarityVerdict{}, fmt.Errorf("duplicate of unknown problem %q", nearest)
		}
		nearest = ""
	}
	if resp.IsDuplicate && nearest == "" {
		return domain.SimilarityVerdict{}, fmt.Errorf("duplicate verdict without a problem id")
	}

	return domain.SimilarityVerdict{
		IsDuplicate: resp.IsDuplicate,
		NearestID:   nearest,
		Closeness:   resp.SimilarityScore,
		Rationale:   strings.TrimSpace(resp.Reasoning),
	}, nil
}

func containsProblem(problems []domain.Problem, id string) bool {
	for _, p := range problems {
		if p.ID == id {
			return true
		}
	}
	return false
}

func similaritySchema() *ports.Schema {
	return &ports.Schema{
		Type: ports.TypeObject,
		Properties: map[string]*ports.Schema{
			"is_duplicate": {Type: ports.TypeBoolean},
			"similar_problem_id": {
				Type:        ports.TypeString,
				Description: "ID of the most similar existing problem, empty if none is related",
			},
			"similarity_score": {
				Type:    ports.TypeNumber,
				Minimum: ports.Float64(0),
				Maximum: ports.Float64(1),
			},
			"reasoning": {Type: ports.TypeString},
		},
		PropertyOrder: []string{"is_duplicate", "similar_problem_id", "similarity_score", "reasoning"},
		Required:      []string{"is_duplicate", "similar_problem_id", "similarity_score", "reasoning"},
	}
}

func (d *SimilarityDetector) prompt(candidate string, prior []domain.Problem) string {
	var b strings.Builder
	for _, p := range prior {
		text := p.SummaryText()
		if text == "" {
			text = truncateRunes(p.Text, d.cfg.PromptTextMaxRunes)
		}
		fmt.Fprintf(&b, "- ID: %s | %s\n", p.ID, oneLine(text))
	}

	return fmt.Sprintf(`You are checking whether a newly submitted problem duplicates one already on file.

NEW PROBLEM:
%s

EXISTING PROBLEMS:
%s
TASK:
Decide whether the new problem describes the SAME underlying need as any existing problem.
Different wording is fine; a different audience or a different root cause is not a duplicate.
Name the single most similar existing problem by ID (or leave it empty if none is related),
rate similarity from 0.0 to 1.0 and explain your judgement in one sentence.`,
		strings.TrimSpace(candidate), b.String())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
