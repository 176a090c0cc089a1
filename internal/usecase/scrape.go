package usecase

import (
	"context"
	"errors"
	"fmt"

	"ReviewsAnalyzer/internal/domain"
)

// ErrNoSource is returned by Scrape when the pipeline was built without a review source.
var ErrNoSource = errors.New("review source not configured")

// Scrape fetches reviews and app metadata for every configured bank and writes
// the raw table and the app-info table. Nothing is written when no review was
// collected.
func (p *Pipeline) Scrape(ctx context.Context, rawPath, appInfoPath string) (domain.ScrapeResult, error) {
	if p.source == nil {
		return domain.ScrapeResult{}, ErrNoSource
	}

	result, err := p.source.FetchAll(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch reviews: %w", err)
	}
	if len(result.Reviews) == 0 {
		return result, fmt.Errorf("fetch reviews: %w", domain.ErrEmptyTable)
	}

	if err := p.store.WriteRaw(rawPath, result.Reviews); err != nil {
		return result, fmt.Errorf("write raw reviews: %w", err)
	}
	if len(result.Apps) > 0 {
		if err := p.store.WriteAppInfo(appInfoPath, result.Apps); err != nil {
			return result, fmt.Errorf("write app info: %w", err)
		}
	}

	perBank := map[string]int{}
	for _, r := range result.Reviews {
		perBank[r.BankCode]++
	}
	for _, code := range p.bankCodes() {
		p.logger.Info("bank scraped", "bank", code, "reviews", perBank[code])
	}
	p.logger.Info("raw reviews written",
		"path", rawPath,
		"rows", len(result.Reviews),
		"apps", len(result.Apps),
		"warnings", len(result.Warnings))
	return result, nil
}
