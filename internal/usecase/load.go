package usecase

import (
	"context"
	"errors"
	"fmt"

	"ReviewsAnalyzer/internal/domain"
)

// ErrNoRepository is returned by Load when no relational sink was configured.
var ErrNoRepository = errors.New("review repository not configured")

// Load copies the scored table into the relational sink.
func (p *Pipeline) Load(ctx context.Context, inPath string) (domain.LoadReport, error) {
	if p.repository == nil {
		return domain.LoadReport{}, ErrNoRepository
	}

	rows, err := p.store.ReadEnriched(inPath)
	if err != nil {
		return domain.LoadReport{}, fmt.Errorf("read scored reviews: %w", err)
	}
	if len(rows) == 0 {
		return domain.LoadReport{}, fmt.Errorf("read scored reviews %s: %w", inPath, domain.ErrEmptyTable)
	}

	if err := p.repository.EnsureSchema(ctx); err != nil {
		return domain.LoadReport{}, fmt.Errorf("ensure schema: %w", err)
	}

	report, err := p.repository.Load(ctx, p.banks, rows)
	if err != nil {
		return report, fmt.Errorf("load reviews: %w", err)
	}
	return report, nil
}
