package usecase

import (
	"fmt"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/textproc"
	"ReviewsAnalyzer/internal/themes"
)

// ThematicResult is the enriched table plus its bank-level summary.
type ThematicResult struct {
	Rows    []domain.EnrichedReview
	Summary domain.AnalysisSummary
}

// Thematic enriches the processed table with topics and themes and writes the
// enriched table plus the analysis summary. A failing enrichment stage degrades
// to sentinel values and a warning; only unreadable or empty input aborts.
func (p *Pipeline) Thematic(inPath, outPath, summaryPath string) (ThematicResult, error) {
	rows, err := p.store.ReadProcessed(inPath)
	if err != nil {
		return ThematicResult{}, fmt.Errorf("read processed reviews: %w", err)
	}
	if len(rows) == 0 {
		return ThematicResult{}, fmt.Errorf("read processed reviews %s: %w", inPath, domain.ErrEmptyTable)
	}

	result := p.Enrich(rows)

	if err := p.store.WriteEnriched(outPath, result.Rows); err != nil {
		return result, fmt.Errorf("write enriched reviews: %w", err)
	}
	if err := p.store.WriteSummary(summaryPath, result.Summary); err != nil {
		return result, fmt.Errorf("write analysis summary: %w", err)
	}

	p.logger.Info("enriched reviews written",
		"path", outPath,
		"rows", len(result.Rows),
		"topics", len(result.Summary.Topics),
		"warnings", len(result.Summary.Warnings))
	return result, nil
}

// Enrich runs keyword extraction, topic modeling and theme classification over
// rows and joins the per-row outputs back by row id.
func (p *Pipeline) Enrich(rows []domain.Review) ThematicResult {
	var warnings []string
	warn := func(stage string, err error) {
		msg := fmt.Sprintf("%s stage degraded: %v", stage, err)
		warnings = append(warnings, msg)
		p.logger.Warn("enrichment stage degraded", "stage", stage, "error", err)
	}

	keywordsByBank, err := p.extractKeywords(rows)
	if err != nil {
		warn("keywords", err)
		keywordsByBank = emptyKeywords(p.bankCodes(), rows)
	}

	lemmas := make(map[int]string, len(rows))
	for _, r := range rows {
		lemmas[r.RowID] = textproc.Lemmatize(r.CleanText)
	}

	model, err := p.fitTopics(lemmas)
	if err != nil {
		warn("topics", err)
		model = domain.TopicModel{Topics: map[int][]string{}, Assignments: map[int]domain.TopicAssignment{}}
	}

	themeByRow, err := p.classifyThemes(rows, model.Assignments)
	if err != nil {
		warn("themes", err)
		themeByRow = map[int]string{}
	}

	fallback := themes.DefaultFallback
	if p.themes != nil {
		fallback = p.themes.Fallback()
	}

	enriched := make([]domain.EnrichedReview, 0, len(rows))
	themeCounts := map[string]int{}
	topicCounts := map[int]int{}
	for _, r := range rows {
		row := domain.EnrichedReview{
			Review:        r,
			LemmaText:     lemmas[r.RowID],
			DominantTopic: domain.NoTopic,
		}
		if a, ok := model.Assignments[r.RowID]; ok {
			row.DominantTopic = a.TopicID
			row.TopicKeywords = a.Keywords
		}
		row.Theme = themeByRow[r.RowID]
		if row.Theme == "" {
			row.Theme = fallback
		}

		themeCounts[row.Theme]++
		topicCounts[row.DominantTopic]++
		enriched = append(enriched, row)
	}

	if warnings == nil {
		warnings = []string{}
	}
	return ThematicResult{
		Rows: enriched,
		Summary: domain.AnalysisSummary{
			Keywords:    keywordsByBank,
			Topics:      model.Topics,
			ThemeCounts: themeCounts,
			TopicCounts: topicCounts,
			Rows:        len(enriched),
			Warnings:    warnings,
		},
	}
}

// extractKeywords runs the extractor once per bank corpus. Every configured
// bank gets an entry, even when none of its reviews survived preprocessing.
func (p *Pipeline) extractKeywords(rows []domain.Review) (out map[string][]domain.Keyword, err error) {
	err = safeStage(func() error {
		docs := map[string][]string{}
		for _, r := range rows {
			docs[r.BankCode] = append(docs[r.BankCode], r.CleanText)
		}

		out = emptyKeywords(p.bankCodes(), rows)
		for bank := range out {
			out[bank] = p.keywords.Extract(docs[bank])
		}
		return nil
	})
	return out, err
}

func (p *Pipeline) fitTopics(lemmas map[int]string) (model domain.TopicModel, err error) {
	err = safeStage(func() error {
		var fitErr error
		model, fitErr = p.topics.Fit(lemmas)
		return fitErr
	})
	return model, err
}

func (p *Pipeline) classifyThemes(rows []domain.Review, assignments map[int]domain.TopicAssignment) (out map[int]string, err error) {
	err = safeStage(func() error {
		out = make(map[int]string, len(rows))
		for _, r := range rows {
			out[r.RowID] = p.themes.Classify(r.CleanText, assignments[r.RowID].Keywords)
		}
		return nil
	})
	return out, err
}

// safeStage runs fn and converts a panic into an error.
func safeStage(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func emptyKeywords(banks []string, rows []domain.Review) map[string][]domain.Keyword {
	out := make(map[string][]domain.Keyword, len(banks))
	for _, b := range banks {
		out[b] = []domain.Keyword{}
	}
	for _, r := range rows {
		if _, ok := out[r.BankCode]; !ok {
			out[r.BankCode] = []domain.Keyword{}
		}
	}
	return out
}
