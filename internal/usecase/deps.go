package usecase

import (
	"log/slog"
	"time"

	"ProblemScout/internal/analysis"
	"ProblemScout/internal/ports"
)

const (
	defaultMinTextLength = 20
	defaultConcurrency   = 4
	defaultListLimit     = 50
)

// MaxListLimit caps the page size of problem and expert listings.
const MaxListLimit = 200

// Deps wires driven adapters and analysis components into the use cases.
type Deps struct {
	Problems ports.ProblemRepository
	Votes    ports.VoteRepository
	Experts  ports.ExpertRepository
	Source   ports.FeedSource
	Notifier ports.Notifier

	Classifier *analysis.Classifier
	Similarity *analysis.SimilarityDetector
	Clusters   *analysis.ClusterEngine
	Matcher    *analysis.MatchScorer
	Analysis   analysis.Config

	// MinTextLength is the minimum rune count of a direct submission.
	MinTextLength int
	// Concurrency bounds parallel item processing during ingestion.
	Concurrency int

	Logger *slog.Logger
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	d.Analysis = d.Analysis.Normalize()
	if d.Classifier == nil {
		d.Classifier = analysis.NewClassifier(nil, d.Analysis, d.Logger)
	}
	if d.Similarity == nil {
		d.Similarity = analysis.NewSimilarityDetector(nil, d.Analysis, d.Logger)
	}
	if d.Clusters == nil {
		d.Clusters = analysis.NewClusterEngine(nil, d.Analysis, d.Logger)
	}
	if d.Matcher == nil {
		d.Matcher = analysis.NewMatchScorer(d.Analysis)
	}
	if d.MinTextLength <= 0 {
		d.MinTextLength = defaultMinTextLength
	}
	if d.Concurrency <= 0 {
		d.Concurrency = defaultConcurrency
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
