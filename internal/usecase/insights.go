package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ProblemScout/internal/analysis"
	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
)

// Insights serves on-demand clustering, expert matching and cluster digests.
type Insights struct {
	problems ports.ProblemRepository
	experts  ports.ExpertRepository
	notifier ports.Notifier
	clusters *analysis.ClusterEngine
	matcher  *analysis.MatchScorer
	maxBatch int
	logger   *slog.Logger
	now      func() time.Time
}

// NewInsights constructs the analysis read side.
func NewInsights(deps Deps) *Insights {
	deps = deps.withDefaults()
	return &Insights{
		problems: deps.Problems,
		experts:  deps.Experts,
		notifier: deps.Notifier,
		clusters: deps.Clusters,
		matcher:  deps.Matcher,
		maxBatch: deps.Analysis.Cluster.MaxBatch,
		logger:   deps.Logger.With("component", "insights"),
		now:      deps.Now,
	}
}

// Clusters partitions the current cluster candidates into thematic groups.
func (i *Insights) Clusters(ctx context.Context) ([]domain.Cluster, error) {
	candidates, err := i.problems.ClusterCandidates(ctx, i.maxBatch)
	if err != nil {
		return nil, fmt.Errorf("load cluster candidates: %w", err)
	}
	return i.clusters.Cluster(ctx, analysis.ClusterInputs(candidates)), nil
}

// Matches ranks registered experts for one problem. An unknown problem yields an empty result.
func (i *Insights) Matches(ctx context.Context, problemID string) ([]domain.MatchResult, error) {
	problem, err := i.problems.GetProblem(ctx, problemID)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.MatchResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}

	experts, err := i.experts.ListExperts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load experts: %w", err)
	}
	return i.matcher.MatchExperts(problem, experts), nil
}

// PublishDigest sends the current clusters to the notifier, if one is configured.
func (i *Insights) PublishDigest(ctx context.Context) error {
	if i.notifier == nil {
		return nil
	}

	clusters, err := i.Clusters(ctx)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		i.logger.Debug("digest skipped, no clusters")
		return nil
	}

	if err := i.notifier.PublishDigest(ctx, BuildDigest(clusters, i.now())); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	return nil
}

// BuildDigest renders clusters as a plain-text message in engine order.
func BuildDigest(clusters []domain.Cluster, at time.Time) string {
	total := 0
	for _, c := range clusters {
		total += len(c.ProblemIDs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Problem clusters, %s (%d problems)\n\n", at.Format("2006-01-02 15:04"), total)
	for _, c := range clusters {
		fmt.Fprintf(&b, "- %s: %d problems, innovation gap %d/10\n", c.Name, len(c.ProblemIDs), c.InnovationGap)
		if len(c.Themes) > 0 {
			fmt.Fprintf(&b, "  Themes: %s\n", strings.Join(c.Themes, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
