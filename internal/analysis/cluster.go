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

const (
	uncategorizedLabel  = "Uncategorized"
	miscellaneousLabel  = "Miscellaneous"
	unnamedClusterLabel = "Unnamed cluster"
)

// Tags attached to every keyword-fallback cluster next to its keyword.
var fallbackThemes = []string{"Community reported", "Needs validation"}

// ClusterInput is the slice of a problem the cluster engine looks at.
type ClusterInput struct {
	ID       string
	Summary  string
	Keywords []string
}

// ClusterInputs projects problems onto cluster inputs.
func ClusterInputs(problems []domain.Problem) []ClusterInput {
	inputs := make([]ClusterInput, 0, len(problems))
	for _, p := range problems {
		inputs = append(inputs, ClusterInput{
			ID:       p.ID,
			Summary:  p.SummaryText(),
			Keywords: p.Keywords,
		})
	}
	return inputs
}

// ClusterEngine partitions problems into thematic clusters.
type ClusterEngine struct {
	analyzer ports.Analyzer
	cfg      Config
	logger   *slog.Logger
}

// NewClusterEngine wires the analyzer; a nil analyzer always uses keyword grouping.
func NewClusterEngine(analyzer ports.Analyzer, cfg Config, logger *slog.Logger) *ClusterEngine {
	return &ClusterEngine{
		analyzer: analyzer,
		cfg:      cfg.Normalize(),
		logger:   loggerOrDiscard(logger),
	}
}

type clusterResponse struct {
	Clusters []struct {
		Name          string   `json:"name"`
		ProblemIDs    []string `json:"problem_ids"`
		CommonThemes  []string `json:"common_themes"`
		InnovationGap float64  `json:"innovation_gap"`
	} `json:"clusters"`
}

// Cluster returns a partition of the input ids: each appears in exactly one cluster.
func (e *ClusterEngine) Cluster(ctx context.Context, problems []ClusterInput) []domain.Cluster {
	problems = uniqueInputs(problems)
	if len(problems) == 0 {
		return []domain.Cluster{}
	}
	if len(problems) < e.cfg.Cluster.MinBatch {
		return e.singletons(problems)
	}
	if e.analyzer == nil {
		return e.Fallback(problems)
	}

	raw, err := e.analyzer.Analyze(ctx, ports.AnalysisRequest{
		Task:   "cluster_problems",
		Prompt: e.prompt(problems),
		Schema: e.schema(),
	})
	if err != nil {
		e.logger.Warn("cluster fallback", "reason", "analyzer error", "error", err)
		return e.Fallback(problems)
	}

	var resp clusterResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		e.logger.Warn("cluster fallback", "reason", "invalid response", "error", err)
		return e.Fallback(problems)
	}
	if resp.Clusters == nil {
		e.logger.Warn("cluster fallback", "reason", "response has no clusters field")
		return e.Fallback(problems)
	}

	return e.repair(problems, resp)
}

// Fallback groups problems by their first keyword without calling the analyzer.
func (e *ClusterEngine) Fallback(problems []ClusterInput) []domain.Cluster {
	problems = uniqueInputs(problems)

	index := map[string]int{}
	clusters := make([]domain.Cluster, 0)
	for _, p := range problems {
		key := firstKeyword(p.Keywords)
		pos, ok := index[key]
		if !ok {
			themes := append([]string{key}, fallbackThemes...)
			clusters = append(clusters, domain.Cluster{
				Name:          key,
				Themes:        themes,
				InnovationGap: e.cfg.Cluster.FallbackGap,
			})
			pos = len(clusters) - 1
			index[key] = pos
		}
		clusters[pos].ProblemIDs = append(clusters[pos].ProblemIDs, p.ID)
	}
	return clusters
}

func (e *ClusterEngine) singletons(problems []ClusterInput) []domain.Cluster {
	clusters := make([]domain.Cluster, 0, len(problems))
	for _, p := range problems {
		keywords := cleanKeywords(p.Keywords)
		themes := keywords
		if len(themes) > 3 {
			themes = themes[:3]
		}
		clusters = append(clusters, domain.Cluster{
			Name:          firstKeyword(keywords),
			ProblemIDs:    []string{p.ID},
			Themes:        append([]string{}, themes...),
			InnovationGap: e.cfg.Cluster.SmallBatchGap,
		})
	}
	return clusters
}

// repair enforces the partition over whatever the analyzer returned.
func (e *ClusterEngine) repair(problems []ClusterInput, resp clusterResponse) []domain.Cluster {
	known := make(map[string]bool, len(problems))
	for _, p := range problems {
		known[p.ID] = true
	}

	assigned := map[string]bool{}
	clusters := make([]domain.Cluster, 0, len(resp.Clusters)+1)
	for _, rc := range resp.Clusters {
		ids := make([]string, 0, len(rc.ProblemIDs))
		for _, id := range rc.ProblemIDs {
			id = strings.TrimSpace(id)
			if !known[id] || assigned[id] {
				continue
			}
			assigned[id] = true
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}

		name := strings.TrimSpace(rc.Name)
		if name == "" {
			name = unnamedClusterLabel
		}
		themes := cleanKeywords(rc.CommonThemes)
		if len(themes) > e.cfg.Cluster.MaxThemes {
			themes = themes[:e.cfg.Cluster.MaxThemes]
		}

		clusters = append(clusters, domain.Cluster{
			Name:          name,
			ProblemIDs:    ids,
			Themes:        themes,
			InnovationGap: clampGap(rc.InnovationGap),
		})
	}

	var leftovers []string
	for _, p := range problems {
		if !assigned[p.ID] {
			leftovers = append(leftovers, p.ID)
		}
	}
	if len(leftovers) > 0 {
		e.logger.Debug("cluster repair", "unassigned", len(leftovers))
		clusters = append(clusters, domain.Cluster{
			Name:          miscellaneousLabel,
			ProblemIDs:    leftovers,
			Themes:        []string{},
			InnovationGap: e.cfg.Cluster.MiscellaneousGap,
		})
	}
	return clusters
}

func (e *ClusterEngine) schema() *ports.Schema {
	return &ports.Schema{
		Type: ports.TypeObject,
		Properties: map[string]*ports.Schema{
			"clusters": {
				Type:     ports.TypeArray,
				MinItems: ports.Int64(int64(e.cfg.Cluster.MinClusters)),
				MaxItems: ports.Int64(int64(e.cfg.Cluster.MaxClusters)),
				Items: &ports.Schema{
					Type: ports.TypeObject,
					Properties: map[string]*ports.Schema{
						"name": {Type: ports.TypeString, Description: "Short descriptive cluster name"},
						"problem_ids": {
							Type:  ports.TypeArray,
							Items: &ports.Schema{Type: ports.TypeString},
						},
						"common_themes": {
							Type:     ports.TypeArray,
							Items:    &ports.Schema{Type: ports.TypeString},
							MaxItems: ports.Int64(int64(e.cfg.Cluster.MaxThemes)),
						},
						"innovation_gap": {
							Type:        ports.TypeInteger,
							Description: "1 = well served, 10 = large unmet need",
							Minimum:     ports.Float64(1),
							Maximum:     ports.Float64(10),
						},
					},
					PropertyOrder: []string{"name", "problem_ids", "common_themes", "innovation_gap"},
					Required:      []string{"name", "problem_ids", "common_themes", "innovation_gap"},
				},
			},
		},
		Required: []string{"clusters"},
	}
}

func (e *ClusterEngine) prompt(problems []ClusterInput) string {
	var b strings.Builder
	for _, p := range problems {
		fmt.Fprintf(&b, "- [%s] %s", p.ID, oneLine(truncateRunes(p.Summary, e.cfg.Cluster.SummaryMaxRunes)))
		if kws := cleanKeywords(p.Keywords); len(kws) > 0 {
			fmt.Fprintf(&b, " (keywords: %s)", strings.Join(kws, ", "))
		}
		b.WriteString("\n")
	}

	return fmt.Sprintf(`You are grouping reported problems into themes.

PROBLEMS:
%s
TASK:
Group the problems into between %d and %d coherent clusters.
Every problem ID must appear in exactly one cluster.
For each cluster give a descriptive name, the member problem IDs, a few common themes,
and an innovation gap score from 1 to 10 where 10 means the need is largely unsolved.`,
		b.String(), e.cfg.Cluster.MinClusters, e.cfg.Cluster.MaxClusters)
}

func uniqueInputs(problems []ClusterInput) []ClusterInput {
	seen := make(map[string]bool, len(problems))
	out := make([]ClusterInput, 0, len(problems))
	for _, p := range problems {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func firstKeyword(keywords []string) string {
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			return kw
		}
	}
	return uncategorizedLabel
}

// clampGap bounds v to 1..10 before rounding so huge values cannot overflow int.
func clampGap(v float64) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return int(v + 0.5)
}
