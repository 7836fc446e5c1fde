package analysis

import (
	"fmt"
	"sort"
	"strings"

	"ProblemScout/internal/domain"
)

// MatchScorer ranks experts against a problem. It is pure and local.
type MatchScorer struct {
	weights MatchWeights
}

// NewMatchScorer uses the weights from cfg.
func NewMatchScorer(cfg Config) *MatchScorer {
	return &MatchScorer{weights: cfg.Normalize().Weights}
}

// MatchExperts returns experts with a positive score, best first.
// Equal scores keep roster order.
func (m *MatchScorer) MatchExperts(problem domain.Problem, experts []domain.Expert) []domain.MatchResult {
	keywords := distinctKeywords(problem.Keywords)
	category := problem.CategoryName()

	results := make([]domain.MatchResult, 0, len(experts))
	for _, expert := range experts {
		score, reasons := m.score(category, keywords, expert)
		if score <= 0 {
			continue
		}
		results = append(results, domain.MatchResult{
			Expert:  expert,
			Score:   score,
			Reasons: reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func (m *MatchScorer) score(category string, keywords []string, expert domain.Expert) (int, []string) {
	var (
		score   int
		reasons []string
	)

	if category != "" && contains(expert.Expertise, category) {
		score += m.weights.Category
		reasons = append(reasons, fmt.Sprintf("Expertise in %s", category))
	}

	tags := lowerAll(expert.Expertise)
	var overlapping []string
	for _, kw := range keywords {
		if overlapsAny(strings.ToLower(kw), tags) {
			overlapping = append(overlapping, kw)
		}
	}
	if len(overlapping) > 0 {
		score += len(overlapping) * m.weights.Keyword
		reasons = append(reasons, fmt.Sprintf("Expertise overlaps keywords: %s", strings.Join(overlapping, ", ")))
	}

	description := strings.ToLower(expert.Description)
	if category != "" && strings.Contains(description, strings.ToLower(category)) {
		score += m.weights.DescriptionCategory
		reasons = append(reasons, fmt.Sprintf("Description mentions %s", category))
	}

	var mentioned []string
	for _, kw := range keywords {
		if strings.Contains(description, strings.ToLower(kw)) {
			mentioned = append(mentioned, kw)
		}
	}
	if len(mentioned) > 0 {
		score += len(mentioned) * m.weights.DescriptionKeyword
		reasons = append(reasons, fmt.Sprintf("Description mentions keywords: %s", strings.Join(mentioned, ", ")))
	}

	return score, reasons
}

// overlapsAny reports whether kw is a substring of a tag or a tag is a substring of kw.
func overlapsAny(kw string, tags []string) bool {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if strings.Contains(tag, kw) || strings.Contains(kw, tag) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

// distinctKeywords drops blanks and case-insensitive repeats, keeping first spelling.
func distinctKeywords(keywords []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(keywords))
	for _, kw := range cleanKeywords(keywords) {
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}
