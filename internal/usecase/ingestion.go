package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ProblemScout/internal/analysis"
	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
)

// Report summarizes one best-effort ingestion batch.
type Report struct {
	Fetched    int `json:"fetched"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Created    int `json:"created"`
	Failed     int `json:"failed"`
}

// Ingestion turns feed items into enriched problems.
type Ingestion struct {
	source      ports.FeedSource
	problems    ports.ProblemRepository
	classifier  *analysis.Classifier
	similarity  *analysis.SimilarityDetector
	window      int
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewIngestion constructs the ingestion workflow.
func NewIngestion(deps Deps) *Ingestion {
	deps = deps.withDefaults()
	return &Ingestion{
		source:      deps.Source,
		problems:    deps.Problems,
		classifier:  deps.Classifier,
		similarity:  deps.Similarity,
		window:      deps.Analysis.SimilarityWindow,
		concurrency: deps.Concurrency,
		logger:      deps.Logger.With("component", "ingestion"),
		now:         deps.Now,
	}
}

// Run fetches items, skips already-ingested ids, gates each item against a snapshot of
// recent problems, then classifies and persists it. A failing item is logged and counted;
// the batch continues.
func (in *Ingestion) Run(ctx context.Context) (Report, error) {
	var report Report
	if in.source == nil {
		return report, nil
	}

	items, err := in.source.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch feeds: %w", err)
	}
	report.Fetched = len(items)
	if len(items) == 0 {
		return report, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ExternalID != "" {
			ids = append(ids, item.ExternalID)
		}
	}
	known, err := in.problems.ExistingExternalIDs(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("load ingested ids: %w", err)
	}

	prior, err := in.problems.RecentProblems(ctx, in.window)
	if err != nil {
		return report, fmt.Errorf("load recent problems: %w", err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(in.concurrency)

	for _, item := range items {
		if known[item.ExternalID] {
			report.Skipped++
			continue
		}

		g.Go(func() error {
			outcome := in.process(ctx, item, prior)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeCreated:
				report.Created++
			case outcomeDuplicate:
				report.Duplicates++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	in.logger.Info("ingestion finished",
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"duplicates", report.Duplicates,
		"created", report.Created,
		"failed", report.Failed,
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeDuplicate
	outcomeCreated
)

func (in *Ingestion) process(ctx context.Context, item domain.FeedItem, prior []domain.Problem) outcome {
	if err := ctx.Err(); err != nil {
		return outcomeFailed
	}

	text := item.Text()
	verdict := in.similarity.CheckSimilarity(ctx, text, prior)
	if verdict.IsDuplicate {
		in.logger.Debug("feed item duplicates existing problem", "external_id", item.ExternalID, "nearest", verdict.NearestID)
		return outcomeDuplicate
	}

	problem := domain.NewFeedProblem(item, in.now())
	problem.Enrich(in.classifier.Classify(ctx, text, domain.OriginFeed))

	if err := in.problems.CreateProblem(ctx, problem); err != nil {
		in.logger.Warn("persist feed problem failed", "external_id", item.ExternalID, "err", err)
		return outcomeFailed
	}
	return outcomeCreated
}
