package usecase

import (
	"context"
	"fmt"
	"time"

	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
)

// ExpertInput is the registration payload for an expert.
type ExpertInput struct {
	Name        string   `json:"name"`
	Affiliation string   `json:"affiliation"`
	Expertise   []string `json:"expertise"`
	Description string   `json:"description"`
	Contact     string   `json:"contact"`
}

// Experts registers and searches domain experts.
type Experts struct {
	experts ports.ExpertRepository
	now     func() time.Time
}

// NewExperts constructs the expert use cases.
func NewExperts(deps Deps) *Experts {
	deps = deps.withDefaults()
	return &Experts{experts: deps.Experts, now: deps.Now}
}

// Register validates and stores an expert.
func (e *Experts) Register(ctx context.Context, in ExpertInput) (domain.Expert, error) {
	expert := domain.NewExpert(in.Name, in.Affiliation, in.Expertise, in.Description, in.Contact, e.now())
	if err := expert.Validate(); err != nil {
		return domain.Expert{}, err
	}
	if err := e.experts.CreateExpert(ctx, expert); err != nil {
		return domain.Expert{}, fmt.Errorf("persist expert: %w", err)
	}
	return expert, nil
}

// Search lists experts, narrowed by tag and free text when given.
func (e *Experts) Search(ctx context.Context, query domain.ExpertQuery) ([]domain.Expert, error) {
	if query.Limit <= 0 || query.Limit > MaxListLimit {
		query.Limit = MaxListLimit
	}
	if query.Tag == "" && query.Text == "" {
		experts, err := e.experts.ListExperts(ctx)
		if err != nil {
			return nil, err
		}
		if len(experts) > query.Limit {
			experts = experts[:query.Limit]
		}
		return experts, nil
	}
	return e.experts.SearchExperts(ctx, query)
}
