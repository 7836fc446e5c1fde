package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
)

// memStore is an in-memory ProblemRepository, VoteRepository and ExpertRepository.
type memStore struct {
	mu       sync.Mutex
	problems []domain.Problem
	votes    []domain.Vote
	experts  []domain.Expert
	// failText makes CreateProblem fail for texts containing it.
	failText string
}

func (m *memStore) CreateProblem(_ context.Context, p domain.Problem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := p.Validate(); err != nil {
		return err
	}
	if m.failText != "" && strings.Contains(p.Text, m.failText) {
		return errors.New("disk full")
	}
	m.problems = append(m.problems, p)
	return nil
}

func (m *memStore) GetProblem(_ context.Context, id string) (domain.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.problems {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Problem{}, domain.ErrNotFound
}

func (m *memStore) ListProblems(_ context.Context, filter domain.ProblemFilter) ([]domain.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Problem
	for _, p := range m.problems {
		if filter.Category != "" && p.CategoryName() != filter.Category {
			continue
		}
		if filter.Origin != "" && p.Origin != filter.Origin {
			continue
		}
		out = append(out, p)
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) RecentProblems(_ context.Context, n int) ([]domain.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Problem(nil), m.problems...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *memStore) ClusterCandidates(_ context.Context, limit int) ([]domain.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Problem
	for _, p := range m.problems {
		if p.Enriched && p.SummaryText() != "" {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ExistingExternalIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	known := map[string]bool{}
	for _, id := range ids {
		for _, p := range m.problems {
			if p.ExternalID != "" && p.ExternalID == id {
				known[id] = true
			}
		}
	}
	return known, nil
}

func (m *memStore) RecomputePopularity(_ context.Context, problemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.votes {
		if v.ProblemID == problemID {
			count++
		}
	}
	for i := range m.problems {
		if m.problems[i].ID == problemID {
			m.problems[i].Popularity = count
			return count, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (m *memStore) CreateVote(ctx context.Context, vote domain.Vote) error {
	if _, err := m.GetProblem(ctx, vote.ProblemID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, vote)
	return nil
}

func (m *memStore) CountVotes(_ context.Context, problemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.votes {
		if v.ProblemID == problemID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CreateExpert(_ context.Context, e domain.Expert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.experts = append(m.experts, e)
	return nil
}

func (m *memStore) ListExperts(context.Context) ([]domain.Expert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Expert(nil), m.experts...), nil
}

func (m *memStore) SearchExperts(_ context.Context, q domain.ExpertQuery) ([]domain.Expert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Expert
	for _, e := range m.experts {
		for _, tag := range e.Expertise {
			if strings.EqualFold(tag, q.Tag) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) seed(text, category string, at time.Time, keywords ...string) domain.Problem {
	p := domain.NewProblem(text, domain.OriginDirect, at)
	p.Enrich(domain.Classification{Summary: text, Keywords: keywords, Category: domain.Category(category)})
	m.problems = append(m.problems, p)
	return p
}

// funcAnalyzer answers analyzer calls through a function and records them.
type funcAnalyzer struct {
	mu    sync.Mutex
	tasks []string
	fn    func(req ports.AnalysisRequest) (string, error)
}

func (f *funcAnalyzer) Analyze(_ context.Context, req ports.AnalysisRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.tasks = append(f.tasks, req.Task)
	f.mu.Unlock()
	out, err := f.fn(req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

func (f *funcAnalyzer) count(task string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if t == task {
			n++
		}
	}
	return n
}

type stubSource struct {
	items []domain.FeedItem
	err   error
}

func (s stubSource) Fetch(context.Context) ([]domain.FeedItem, error) {
	return s.items, s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, digest)
	return n.err
}

type immediateDriver struct {
	started bool
	stopped bool
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	d.started = true
	job(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC)
}
