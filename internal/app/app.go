package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ReviewsAnalyzer/internal/config"
	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/infrastructure/csvstore"
	"ReviewsAnalyzer/internal/infrastructure/ml"
	"ReviewsAnalyzer/internal/infrastructure/playstore"
	"ReviewsAnalyzer/internal/infrastructure/storage"
	"ReviewsAnalyzer/internal/keywords"
	"ReviewsAnalyzer/internal/logging"
	"ReviewsAnalyzer/internal/ports"
	"ReviewsAnalyzer/internal/preprocess"
	"ReviewsAnalyzer/internal/scanner"
	"ReviewsAnalyzer/internal/sentiment"
	"ReviewsAnalyzer/internal/textproc"
	"ReviewsAnalyzer/internal/themes"
	"ReviewsAnalyzer/internal/topics"
	"ReviewsAnalyzer/internal/usecase"
)

const httpTimeout = 30 * time.Second

// Stage commands accepted by Execute.
const (
	CommandScrape     = "scrape"
	CommandPreprocess = "preprocess"
	CommandThematic   = "thematic"
	CommandSentiment  = "sentiment"
	CommandLoad       = "load"
	CommandRun        = "run"
)

// ErrUnknownCommand is returned for a command outside the stage list.
var ErrUnknownCommand = errors.New("unknown command")

// Commands lists the stage commands in pipeline order.
func Commands() []string {
	return []string{CommandScrape, CommandPreprocess, CommandThematic, CommandSentiment, CommandLoad, CommandRun}
}

// Application wires configs to use cases.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	deps   usecase.PipelineDeps
}

// New builds the application from a validated config.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(playstore.NewGooglePlayScanner(&http.Client{Timeout: httpTimeout}, cfg.Scraping.BaseURL))

	source := playstore.NewStrategySource(registry, cfg.Banks, cfg.Scraping, baseLogger.With("component", "source"))

	deps := usecase.PipelineDeps{
		Source:       source,
		Store:        csvstore.New(),
		Preprocessor: newPreprocessor(cfg, baseLogger.With("component", "preprocess")),
		Keywords:     keywords.New(cfg.Analysis.KeywordTopN, cfg.Analysis.KeywordMinDocs, cfg.Analysis.KeywordMaxFeatures),
		Topics:       topics.New(cfg.Analysis.NumTopics, cfg.Analysis.TopicWords, cfg.Analysis.TopicIterations, cfg.Analysis.Seed),
		Themes:       themes.New(themeDefinitions(cfg.Themes), cfg.Themes.Fallback, cfg.Themes.TopicFallback()),
		Scorer:       newScorer(cfg.Sentiment),
		Banks:        banks(cfg.Banks),
		Logger:       baseLogger.With("component", "pipeline"),
	}
	return &Application{cfg: cfg, logger: baseLogger, deps: deps}
}

// Execute runs one stage command against the configured paths.
func (a *Application) Execute(ctx context.Context, command string) error {
	paths := a.cfg.Paths
	pipeline := usecase.NewPipeline(a.deps)

	switch command {
	case CommandScrape:
		_, err := pipeline.Scrape(ctx, paths.RawReviews, paths.AppInfo)
		return err
	case CommandPreprocess:
		_, err := pipeline.Preprocess(paths.RawReviews, paths.ProcessedReviews)
		return err
	case CommandThematic:
		_, err := pipeline.Thematic(paths.ProcessedReviews, paths.EnrichedReviews, paths.AnalysisSummary)
		return err
	case CommandSentiment:
		_, err := pipeline.Sentiment(ctx, paths.EnrichedReviews, paths.SentimentReviews, paths.SentimentSummary)
		return err
	case CommandLoad:
		return a.load(ctx)
	case CommandRun:
		return pipeline.Run(ctx, paths)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func (a *Application) load(ctx context.Context) error {
	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := a.deps
	deps.Repository = storage.NewPostgresRepository(db, a.logger.With("component", "storage"))

	report, err := usecase.NewPipeline(deps).Load(ctx, a.cfg.Paths.SentimentReviews)
	if err != nil {
		return err
	}
	a.logger.Info("reviews loaded",
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"unknown_bank", report.UnknownBank)
	return nil
}

func newPreprocessor(cfg config.Config, logger *slog.Logger) *preprocess.Preprocessor {
	var opts []preprocess.Option
	if cfg.Cleaning.EnglishOnly {
		opts = append(opts, preprocess.WithLanguageFilter(textproc.IsEnglish))
	}
	return preprocess.New(cfg.BankNames(), logger, opts...)
}

func newScorer(cfg config.SentimentConfig) ports.SentimentScorer {
	if cfg.Method == config.SentimentRemote {
		return ml.NewClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout)
	}
	return sentiment.NewLexicon()
}

func themeDefinitions(cfg config.ThemesConfig) []themes.Definition {
	defs := make([]themes.Definition, 0, len(cfg.Definitions))
	for _, d := range cfg.Definitions {
		defs = append(defs, themes.Definition{Name: d.Name, Keywords: d.Keywords})
	}
	return defs
}

func banks(cfg []config.BankConfig) []domain.Bank {
	out := make([]domain.Bank, 0, len(cfg))
	for _, b := range cfg {
		out = append(out, domain.Bank{Code: b.Code, Name: b.Name, AppID: b.AppID})
	}
	return out
}
