package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ReviewsAnalyzer/internal/config"
	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
	"ReviewsAnalyzer/internal/preprocess"
)

// PipelineDeps wires all driven adapters into the stage orchestration.
type PipelineDeps struct {
	Source       ports.ReviewSource
	Store        ports.DatasetStore
	Repository   ports.ReviewRepository
	Preprocessor *preprocess.Preprocessor
	Keywords     ports.KeywordExtractor
	Topics       ports.TopicModeler
	Themes       ports.ThemeClassifier
	Scorer       ports.SentimentScorer
	Banks        []domain.Bank
	Logger       *slog.Logger
}

// Pipeline runs the batch stages: scrape, preprocess, thematic, sentiment and load.
// Each stage reads the previous stage's artifact and writes its own, so any of
// them can be rerun from the last successfully written file.
type Pipeline struct {
	source       ports.ReviewSource
	store        ports.DatasetStore
	repository   ports.ReviewRepository
	preprocessor *preprocess.Preprocessor
	keywords     ports.KeywordExtractor
	topics       ports.TopicModeler
	themes       ports.ThemeClassifier
	scorer       ports.SentimentScorer
	banks        []domain.Bank
	logger       *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:       deps.Source,
		store:        deps.Store,
		repository:   deps.Repository,
		preprocessor: deps.Preprocessor,
		keywords:     deps.Keywords,
		topics:       deps.Topics,
		themes:       deps.Themes,
		scorer:       deps.Scorer,
		banks:        deps.Banks,
		logger:       logger,
	}
}

// Run executes scrape, preprocess, thematic and sentiment in order using the
// configured artifact paths, stopping at the first unrecoverable error.
func (p *Pipeline) Run(ctx context.Context, paths config.PathsConfig) error {
	if _, err := p.Scrape(ctx, paths.RawReviews, paths.AppInfo); err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.Preprocess(paths.RawReviews, paths.ProcessedReviews); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}

	if _, err := p.Thematic(paths.ProcessedReviews, paths.EnrichedReviews, paths.AnalysisSummary); err != nil {
		return fmt.Errorf("thematic: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.Sentiment(ctx, paths.EnrichedReviews, paths.SentimentReviews, paths.SentimentSummary); err != nil {
		return fmt.Errorf("sentiment: %w", err)
	}

	p.logger.Info("pipeline finished",
		"raw", paths.RawReviews,
		"enriched", paths.EnrichedReviews,
		"scored", paths.SentimentReviews)
	return nil
}

func (p *Pipeline) bankCodes() []string {
	codes := make([]string, 0, len(p.banks))
	for _, b := range p.banks {
		codes = append(codes, b.Code)
	}
	return codes
}
