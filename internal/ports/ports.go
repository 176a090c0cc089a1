package ports

import (
	"context"

	"ReviewsAnalyzer/internal/domain"
)

// ReviewSource pulls app metadata and raw reviews from upstream stores.
type ReviewSource interface {
	FetchAll(ctx context.Context) (domain.ScrapeResult, error)
}

// DatasetStore reads and writes the file artifacts exchanged between stages.
type DatasetStore interface {
	ReadRaw(path string) ([]domain.RawReview, error)
	WriteRaw(path string, rows []domain.RawReview) error
	WriteAppInfo(path string, apps []domain.AppInfo) error
	ReadProcessed(path string) ([]domain.Review, error)
	WriteProcessed(path string, rows []domain.Review) error
	ReadEnriched(path string) ([]domain.EnrichedReview, error)
	WriteEnriched(path string, rows []domain.EnrichedReview) error
	WriteSummary(path string, summary domain.AnalysisSummary) error
	WriteSentimentSummary(path string, rows []domain.SentimentAggregate) error
}

// ReviewRepository persists scored reviews into a relational store.
type ReviewRepository interface {
	EnsureSchema(ctx context.Context) error
	Load(ctx context.Context, banks []domain.Bank, rows []domain.EnrichedReview) (domain.LoadReport, error)
}

// SentimentScorer labels the polarity of a single text.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (domain.Sentiment, error)
}

// KeywordExtractor ranks n-grams over one bank's documents.
type KeywordExtractor interface {
	Extract(docs []string) []domain.Keyword
}

// TopicModeler fits a topic model over documents keyed by row id.
type TopicModeler interface {
	Fit(docs map[int]string) (domain.TopicModel, error)
}

// ThemeClassifier maps a row's text (and optional topic words) to one theme.
type ThemeClassifier interface {
	Classify(text string, topicKeywords []string) string
	Fallback() string
}
