package usecase

import (
	"context"
	"errors"
	"fmt"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/sentiment"
)

// ErrNoScorer is returned by Sentiment when no scorer was configured.
var ErrNoScorer = errors.New("sentiment scorer not configured")

// SentimentResult is the scored table, its aggregate and the number of rows
// whose scoring failed and fell back to neutral.
type SentimentResult struct {
	Rows      []domain.EnrichedReview
	Aggregate []domain.SentimentAggregate
	Failed    int
}

// Sentiment scores every enriched row and writes the scored table plus the
// mean score per (bank, rating).
func (p *Pipeline) Sentiment(ctx context.Context, inPath, outPath, summaryPath string) (SentimentResult, error) {
	if p.scorer == nil {
		return SentimentResult{}, ErrNoScorer
	}

	rows, err := p.store.ReadEnriched(inPath)
	if err != nil {
		return SentimentResult{}, fmt.Errorf("read enriched reviews: %w", err)
	}
	if len(rows) == 0 {
		return SentimentResult{}, fmt.Errorf("read enriched reviews %s: %w", inPath, domain.ErrEmptyTable)
	}

	result := SentimentResult{Rows: rows}
	for i := range result.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		row := &result.Rows[i]
		s, err := p.scorer.Score(ctx, row.Text)
		if err != nil {
			result.Failed++
			p.logger.Debug("sentiment scoring failed", "row_id", row.RowID, "error", err)
			s = domain.Sentiment{Label: domain.SentimentNeutral}
		}
		row.Sentiment = &s
	}
	if result.Failed > 0 {
		p.logger.Warn("sentiment scoring fell back to neutral", "rows", result.Failed)
	}

	result.Aggregate = sentiment.Aggregate(result.Rows)

	if err := p.store.WriteEnriched(outPath, result.Rows); err != nil {
		return result, fmt.Errorf("write scored reviews: %w", err)
	}
	if err := p.store.WriteSentimentSummary(summaryPath, result.Aggregate); err != nil {
		return result, fmt.Errorf("write sentiment summary: %w", err)
	}

	p.logger.Info("scored reviews written", "path", outPath, "rows", len(result.Rows), "failed", result.Failed)
	return result, nil
}
