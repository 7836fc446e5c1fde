package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProblemScout/internal/domain"
)

func priorProblems(n int) []domain.Problem {
	out := make([]domain.Problem, 0, n)
	for i := 0; i < n; i++ {
		p := domain.NewProblem("Buses in the valley run late every single morning", domain.OriginDirect, time.Now())
		p.ID = fmt.Sprintf("prob-%02d", i)
		out = append(out, p)
	}
	return out
}

func TestSimilarityEmptyPriorSkipsAnalyzer(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{response: `{"is_duplicate":true,"similar_problem_id":"x","similarity_score":1,"reasoning":"same"}`}
	d := NewSimilarityDetector(fake, DefaultConfig(), nil)

	verdict := d.CheckSimilarity(context.Background(), "Any text at all here", nil)

	assert.False(t, verdict.IsDuplicate)
	assert.Empty(t, verdict.NearestID)
	assert.Zero(t, fake.calls())
}

func TestSimilarityReportsDuplicate(t *testing.T) {
	t.Parallel()

	prior := priorProblems(3)
	fake := &fakeAnalyzer{response: `{"is_duplicate":true,"similar_problem_id":"` + prior[1].ID + `","similarity_score":0.92,"reasoning":"Same late bus complaint."}`}
	d := NewSimilarityDetector(fake, DefaultConfig(), nil)

	verdict := d.CheckSimilarity(context.Background(), "The valley buses are always late", prior)

	assert.Equal(t, domain.SimilarityVerdict{
		IsDuplicate: true,
		NearestID:   prior[1].ID,
		Closeness:   0.92,
		Rationale:   "Same late bus complaint.",
	}, verdict)
	require.Equal(t, 1, fake.calls())
	for _, p := range prior {
		assert.Contains(t, fake.requests[0].Prompt, p.ID)
	}
}

func TestSimilarityNotDuplicateDropsUnknownNearest(t *testing.T) {
	t.Parallel()

	prior := priorProblems(2)
	fake := &fakeAnalyzer{response: `{"is_duplicate":false,"similar_problem_id":"ghost","similarity_score":0.2,"reasoning":"Unrelated."}`}
	d := NewSimilarityDetector(fake, DefaultConfig(), nil)

	verdict := d.CheckSimilarity(context.Background(), "Something different entirely", prior)

	assert.False(t, verdict.IsDuplicate)
	assert.Empty(t, verdict.NearestID)
	assert.Equal(t, "Unrelated.", verdict.Rationale)
}

func TestSimilarityFailsOpen(t *testing.T) {
	t.Parallel()

	prior := priorProblems(2)
	tests := []struct {
		name string
		fake *fakeAnalyzer
	}{
		{name: "analyzer error", fake: &fakeAnalyzer{err: errors.New("503")}},
		{name: "malformed", fake: &fakeAnalyzer{response: `{"is_duplicate":`}},
		{name: "score out of range", fake: &fakeAnalyzer{response: `{"is_duplicate":true,"similar_problem_id":"` + prior[0].ID + `","similarity_score":7,"reasoning":"x"}`}},
		{name: "duplicate of unknown id", fake: &fakeAnalyzer{response: `{"is_duplicate":true,"similar_problem_id":"ghost","similarity_score":0.9,"reasoning":"x"}`}},
		{name: "duplicate without id", fake: &fakeAnalyzer{response: `{"is_duplicate":true,"similar_problem_id":"","similarity_score":0.9,"reasoning":"x"}`}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewSimilarityDetector(tt.fake, DefaultConfig(), nil)
			verdict := d.CheckSimilarity(context.Background(), "The valley buses are always late", prior)
			assert.Equal(t, domain.SimilarityVerdict{}, verdict)
		})
	}
}

func TestSimilarityCapsPriorWindow(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SimilarityWindow = 2
	prior := priorProblems(4)
	fake := &fakeAnalyzer{response: `{"is_duplicate":false,"similar_problem_id":"","similarity_score":0,"reasoning":""}`}
	d := NewSimilarityDetector(fake, cfg, nil)

	d.CheckSimilarity(context.Background(), "The valley buses are always late", prior)

	require.Equal(t, 1, fake.calls())
	assert.Contains(t, fake.requests[0].Prompt, prior[1].ID)
	assert.NotContains(t, fake.requests[0].Prompt, prior[3].ID)
}
