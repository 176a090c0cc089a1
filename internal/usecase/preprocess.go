package usecase

import (
	"fmt"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/preprocess"
)

// Preprocess cleans the raw table and writes the processed table.
func (p *Pipeline) Preprocess(inPath, outPath string) (preprocess.Report, error) {
	raw, err := p.store.ReadRaw(inPath)
	if err != nil {
		return preprocess.Report{}, fmt.Errorf("read raw reviews: %w", err)
	}
	if len(raw) == 0 {
		return preprocess.Report{}, fmt.Errorf("read raw reviews %s: %w", inPath, domain.ErrEmptyTable)
	}

	rows, report := p.preprocessor.Process(raw)
	if err := p.store.WriteProcessed(outPath, rows); err != nil {
		return report, fmt.Errorf("write processed reviews: %w", err)
	}

	p.logger.Info("processed reviews written", "path", outPath, "rows", len(rows), "removed", report.Removed())
	return report, nil
}
