package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProblemScout/internal/domain"
)

func TestClassifierUsesAnalyzerResult(t *testing.T) {
	t.Parallel()

	fake := &fakeAnalyzer{response: `{"summary":" Rural clinics lack referral tracking. ","keywords":["clinics"," referrals ",""],"category":"Healthcare"}`}
	c := NewClassifier(fake, DefaultConfig(), nil)

	got := c.Classify(context.Background(), "Our rural clinic keeps losing paper referrals", domain.OriginDirect)

	assert.False(t, got.Fallback)
	assert.Equal(t, "Rural clinics lack referral tracking.", got.Summary)
	assert.Equal(t, []string{"clinics", "referrals"}, got.Keywords)
	assert.Equal(t, domain.Category("Healthcare"), got.Category)

	require.Equal(t, 1, fake.calls())
	req := fake.requests[0]
	assert.Equal(t, "classify_problem", req.Task)
	require.NotNil(t, req.Schema)
	assert.Equal(t, int64(5), *req.Schema.Properties["keywords"].MaxItems)
	assert.Contains(t, req.Schema.Properties["category"].Enum, "Other")
	assert.Contains(t, req.Prompt, "Direct")
}

func TestClassifierFallbackOnFailures(t *testing.T) {
	t.Parallel()

	long := "A very long problem description exceeding two hundred characters " + strings.Repeat("about broken public transit schedules ", 6)
	require.Greater(t, len([]rune(long)), 200)

	tests := []struct {
		name string
		fake *fakeAnalyzer
	}{
		{name: "analyzer error", fake: &fakeAnalyzer{err: errors.New("connection refused")}},
		{name: "not json", fake: &fakeAnalyzer{response: `Sure! Here is the summary you asked for`}},
		{name: "unknown category", fake: &fakeAnalyzer{response: `{"summary":"x","keywords":[],"category":"Space"}`}},
		{name: "too many keywords", fake: &fakeAnalyzer{response: `{"summary":"x","keywords":["a","b","c","d","e","f"],"category":"Other"}`}},
		{name: "empty summary", fake: &fakeAnalyzer{response: `{"summary":"  ","keywords":[],"category":"Other"}`}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewClassifier(tt.fake, DefaultConfig(), nil)
			got := c.Classify(context.Background(), long, domain.OriginDirect)

			assert.True(t, got.Fallback)
			assert.Equal(t, string([]rune(long)[:200])+"...", got.Summary)
			assert.Empty(t, got.Keywords)
			assert.NotNil(t, got.Keywords)
			assert.Equal(t, domain.Category("Other"), got.Category)
			assert.Equal(t, 1, tt.fake.calls())
		})
	}
}

func TestClassifierFallbackKeepsShortText(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil, DefaultConfig(), nil)
	got := c.Classify(context.Background(), "Short but valid problem text", domain.OriginFeed)

	assert.Equal(t, "Short but valid problem text", got.Summary)
	assert.True(t, got.Fallback)
}

func TestClassifierFallbackIsDeterministic(t *testing.T) {
	t.Parallel()

	c := NewClassifier(&fakeAnalyzer{err: errors.New("down")}, DefaultConfig(), nil)
	text := strings.Repeat("Ünïcode heavy statement ", 20)

	first := c.Classify(context.Background(), text, domain.OriginDirect)
	second := c.Classify(context.Background(), text, domain.OriginDirect)

	assert.Equal(t, first, second)
	assert.Equal(t, []byte(first.Summary), []byte(second.Summary))
}
