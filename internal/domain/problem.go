package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Origin tags where a problem statement came from.
type Origin string

const (
	OriginFeed   Origin = "External-Feed"
	OriginDirect Origin = "Direct"
)

// Valid reports whether the origin is one of the known tags.
func (o Origin) Valid() bool {
	return o == OriginFeed || o == OriginDirect
}

// Category is one value of the configured fixed category set.
type Category string

// Problem is a short statement of an unmet need.
type Problem struct {
	ID     string
	Origin Origin

	// Feed provenance, empty for direct submissions.
	Channel          string
	Author           string
	AuthorReputation int
	ExternalID       string

	Text string

	// Enrichment fields are all nil or all set.
	Summary  *string
	Keywords []string
	Category *Category

	Popularity int
	Enriched   bool
	CreatedAt  time.Time
}

// Classification is the enrichment result produced for one problem text.
type Classification struct {
	Summary  string
	Keywords []string
	Category Category
	// Fallback is set when the result was derived locally instead of by the analyzer.
	Fallback bool
}

// NewProblem builds an unenriched problem with a fresh identity.
func NewProblem(text string, origin Origin, now time.Time) Problem {
	return Problem{
		ID:        uuid.NewString(),
		Origin:    origin,
		Text:      text,
		CreatedAt: now.UTC(),
	}
}

// Enrich sets summary, keywords and category in one step.
func (p *Problem) Enrich(c Classification) {
	summary := c.Summary
	category := c.Category
	keywords := make([]string, len(c.Keywords))
	copy(keywords, c.Keywords)

	p.Summary = &summary
	p.Keywords = keywords
	p.Category = &category
	p.Enriched = true
}

// Validate checks the structural invariants of a problem.
func (p Problem) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if !p.Origin.Valid() {
		return &ValidationError{Field: "origin", Reason: fmt.Sprintf("unknown origin %q", p.Origin)}
	}

	set := 0
	if p.Summary != nil {
		set++
	}
	if p.Keywords != nil {
		set++
	}
	if p.Category != nil {
		set++
	}
	if set != 0 && set != 3 {
		return &ValidationError{Field: "enrichment", Reason: "summary, keywords and category must be set together"}
	}
	if p.Enriched != (set == 3) {
		return &ValidationError{Field: "enrichment", Reason: "enriched flag does not match enrichment fields"}
	}
	return nil
}

// SummaryText returns the summary or an empty string.
func (p Problem) SummaryText() string {
	if p.Summary == nil {
		return ""
	}
	return *p.Summary
}

// CategoryName returns the category or an empty string.
func (p Problem) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return string(*p.Category)
}

// ProblemSort selects listing order.
type ProblemSort string

const (
	SortRecent  ProblemSort = "recent"
	SortPopular ProblemSort = "popular"
)

// ProblemFilter narrows problem listings.
type ProblemFilter struct {
	Category string
	Origin   Origin
	Sort     ProblemSort
	Limit    int
}
