package composite

import (
	"context"

	"obavg/internal/application/port"
	"obavg/internal/domain"
)

type Repo struct {
	repos []port.ResultRepository
}

func New(repos ...port.ResultRepository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.ResultRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// Len is the number of backends behind this repo.
func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) SaveResult(ctx context.Context, queryID string, res domain.AggregationResult) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveResult(ctx, queryID, res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close does not close the backends; their owners do.
func (r *Repo) Close() error { return nil }

var _ port.ResultRepository = (*Repo)(nil)
