package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"ProblemScout/internal/analysis"
	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
)

// Submission is the outcome of an accepted direct submission.
type Submission struct {
	Problem domain.Problem           `json:"problem"`
	Similar domain.SimilarityVerdict `json:"similar"`
}

// Problems implements direct submission, similarity preview, listing and voting.
type Problems struct {
	problems      ports.ProblemRepository
	votes         ports.VoteRepository
	classifier    *analysis.Classifier
	similarity    *analysis.SimilarityDetector
	window        int
	minTextLength int
	logger        *slog.Logger
	now           func() time.Time
}

// NewProblems constructs the problem use cases.
func NewProblems(deps Deps) *Problems {
	deps = deps.withDefaults()
	return &Problems{
		problems:      deps.Problems,
		votes:         deps.Votes,
		classifier:    deps.Classifier,
		similarity:    deps.Similarity,
		window:        deps.Analysis.SimilarityWindow,
		minTextLength: deps.MinTextLength,
		logger:        deps.Logger.With("component", "problems"),
		now:           deps.Now,
	}
}

// Submit validates, gates against recent problems, enriches and persists a direct submission.
// A duplicate is rejected with *domain.DuplicateError carrying the verdict.
func (p *Problems) Submit(ctx context.Context, text string) (Submission, error) {
	text, err := p.validateText(text)
	if err != nil {
		return Submission{}, err
	}

	verdict, err := p.check(ctx, text)
	if err != nil {
		return Submission{}, err
	}
	if verdict.IsDuplicate {
		p.logger.Info("submission rejected as duplicate", "nearest", verdict.NearestID, "closeness", verdict.Closeness)
		return Submission{}, &domain.DuplicateError{Verdict: verdict}
	}

	problem := domain.NewProblem(text, domain.OriginDirect, p.now())
	problem.Enrich(p.classifier.Classify(ctx, text, domain.OriginDirect))

	if err := p.problems.CreateProblem(ctx, problem); err != nil {
		return Submission{}, fmt.Errorf("persist problem: %w", err)
	}

	p.logger.Debug("problem submitted", "id", problem.ID, "category", problem.CategoryName())
	return Submission{Problem: problem, Similar: verdict}, nil
}

// Preview runs only the similarity gate, without classification or persistence.
func (p *Problems) Preview(ctx context.Context, text string) (domain.SimilarityVerdict, error) {
	text, err := p.validateText(text)
	if err != nil {
		return domain.SimilarityVerdict{}, err
	}
	return p.check(ctx, text)
}

// Get returns one problem or domain.ErrNotFound.
func (p *Problems) Get(ctx context.Context, id string) (domain.Problem, error) {
	return p.problems.GetProblem(ctx, id)
}

// List returns problems matching the filter with a bounded page size.
func (p *Problems) List(ctx context.Context, filter domain.ProblemFilter) ([]domain.Problem, error) {
	if filter.Origin != "" && !filter.Origin.Valid() {
		return nil, &domain.ValidationError{Field: "origin", Reason: fmt.Sprintf("unknown origin %q", filter.Origin)}
	}
	switch filter.Sort {
	case "", domain.SortRecent, domain.SortPopular:
	default:
		return nil, &domain.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", filter.Sort)}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	return p.problems.ListProblems(ctx, filter)
}

// Vote records a vote and returns the recomputed popularity.
func (p *Problems) Vote(ctx context.Context, problemID, voter string) (int, error) {
	if p.votes == nil {
		return 0, fmt.Errorf("vote repository is not configured")
	}
	if strings.TrimSpace(problemID) == "" {
		return 0, &domain.ValidationError{Field: "problem_id", Reason: "must not be empty"}
	}

	if err := p.votes.CreateVote(ctx, domain.NewVote(problemID, voter, p.now())); err != nil {
		return 0, fmt.Errorf("record vote: %w", err)
	}
	popularity, err := p.problems.RecomputePopularity(ctx, problemID)
	if err != nil {
		return 0, fmt.Errorf("recompute popularity: %w", err)
	}
	return popularity, nil
}

func (p *Problems) validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < p.minTextLength {
		return "", &domain.ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("must be at least %d characters, got %d", p.minTextLength, n),
		}
	}
	return text, nil
}

func (p *Problems) check(ctx context.Context, text string) (domain.SimilarityVerdict, error) {
	prior, err := p.problems.RecentProblems(ctx, p.window)
	if err != nil {
		return domain.SimilarityVerdict{}, fmt.Errorf("load recent problems: %w", err)
	}
	return p.similarity.CheckSimilarity(ctx, text, prior), nil
}
