package ports

import (
	"context"
	"encoding/json"
	"time"

	"ProblemScout/internal/domain"
)

// ProblemRepository persists problem statements and serves the analysis windows.
type ProblemRepository interface {
	CreateProblem(ctx context.Context, problem domain.Problem) error
	GetProblem(ctx context.Context, id string) (domain.Problem, error)
	ListProblems(ctx context.Context, filter domain.ProblemFilter) ([]domain.Problem, error)
	// RecentProblems returns up to n problems, most recent first.
	RecentProblems(ctx context.Context, n int) ([]domain.Problem, error)
	// ClusterCandidates returns enriched problems with a summary, up to limit.
	ClusterCandidates(ctx context.Context, limit int) ([]domain.Problem, error)
	ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error)
	RecomputePopularity(ctx context.Context, problemID string) (int, error)
}

// VoteRepository stores votes; popularity is derived from their count.
type VoteRepository interface {
	CreateVote(ctx context.Context, vote domain.Vote) error
	CountVotes(ctx context.Context, problemID string) (int, error)
}

// ExpertRepository stores experts with a tag index for search.
type ExpertRepository interface {
	CreateExpert(ctx context.Context, expert domain.Expert) error
	ListExperts(ctx context.Context) ([]domain.Expert, error)
	SearchExperts(ctx context.Context, query domain.ExpertQuery) ([]domain.Expert, error)
}

// Analyzer is the structured-text analyzer: a prompt plus an output schema in,
// one JSON value conforming to the schema out.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (json.RawMessage, error)
}

// AnalysisRequest is a single structured analyzer call.
type AnalysisRequest struct {
	// Task names the call for logs and provider-side tool names.
	Task   string
	Prompt string
	Schema *Schema
}

// FeedSource pulls raw items from every configured channel.
type FeedSource interface {
	Fetch(ctx context.Context) ([]domain.FeedItem, error)
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
