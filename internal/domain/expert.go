package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnonymousVoter is recorded when a vote carries no voter identifier.
const AnonymousVoter = "anonymous"

// Vote is an immutable endorsement of a problem.
type Vote struct {
	ID        string
	ProblemID string
	Voter     string
	CreatedAt time.Time
}

// NewVote builds a vote, substituting the anonymous sentinel for a blank voter.
func NewVote(problemID, voter string, now time.Time) Vote {
	voter = strings.TrimSpace(voter)
	if voter == "" {
		voter = AnonymousVoter
	}
	return Vote{
		ID:        uuid.NewString(),
		ProblemID: problemID,
		Voter:     voter,
		CreatedAt: now.UTC(),
	}
}

// Expert is a domain specialist who can be matched against problems.
type Expert struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Affiliation string    `json:"affiliation,omitempty"`
	Expertise   []string  `json:"expertise"`
	Description string    `json:"description,omitempty"`
	Contact     string    `json:"contact"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewExpert normalizes the input and assigns a fresh identity.
func NewExpert(name, affiliation string, expertise []string, description, contact string, now time.Time) Expert {
	tags := make([]string, 0, len(expertise))
	seen := map[string]struct{}{}
	for _, tag := range expertise {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	return Expert{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Affiliation: strings.TrimSpace(affiliation),
		Expertise:   tags,
		Description: strings.TrimSpace(description),
		Contact:     strings.TrimSpace(contact),
		CreatedAt:   now.UTC(),
	}
}

// Validate rejects experts missing required fields.
func (e Expert) Validate() error {
	switch {
	case e.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case len(e.Expertise) == 0:
		return &ValidationError{Field: "expertise", Reason: "at least one tag is required"}
	case e.Contact == "":
		return &ValidationError{Field: "contact", Reason: "is required"}
	}
	return nil
}

// ExpertQuery describes an expert search; empty fields do not filter.
type ExpertQuery struct {
	Tag   string
	Text  string
	Limit int
}
