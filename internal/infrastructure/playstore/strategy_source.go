package playstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ReviewsAnalyzer/internal/config"
	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
	"ReviewsAnalyzer/internal/scanner"
	"ReviewsAnalyzer/pkg/retry"
)

// ErrNoReviews is returned when every configured bank came back empty.
var ErrNoReviews = errors.New("no reviews collected")

// StrategySource implements ReviewSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	banks    []config.BankConfig
	scraping config.ScrapingConfig
	logger   *slog.Logger
}

var _ ports.ReviewSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined banks.
func NewStrategySource(reg *scanner.Registry, banks []config.BankConfig, scraping config.ScrapingConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		banks:    banks,
		scraping: scraping,
		logger:   log,
	}
}

// FetchAll iterates over configured banks, pausing between them. A bank whose
// reviews still fail after retries contributes zero rows and a warning.
func (s *StrategySource) FetchAll(ctx context.Context) (domain.ScrapeResult, error) {
	if s.registry == nil {
		return domain.ScrapeResult{}, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch all", "banks", len(s.banks), "per_bank", s.scraping.ReviewsPerBank)

	policy := retry.NewPolicy(s.scraping.MaxRetries, s.scraping.RetryDelay)
	var result domain.ScrapeResult

	for i, bank := range s.banks {
		if i > 0 && s.scraping.BankPause > 0 {
			if err := sleep(ctx, s.scraping.BankPause); err != nil {
				return domain.ScrapeResult{}, err
			}
		}

		name := bank.Scanner
		if name == "" {
			name = "googleplay"
		}
		strategy, err := s.registry.Resolve(name)
		if err != nil {
			return domain.ScrapeResult{}, fmt.Errorf("bank %s: %w", bank.Code, err)
		}

		req := scanner.Request{
			Bank:    domain.Bank{Code: bank.Code, Name: bank.Name, AppID: bank.AppID},
			Count:   s.scraping.ReviewsPerBank,
			Lang:    s.scraping.Lang,
			Country: s.scraping.Country,
		}

		appName := bank.AppID
		var info domain.AppInfo
		err = retry.DoNotify(ctx, policy, func(ctx context.Context) error {
			var callErr error
			info, callErr = strategy.AppInfo(ctx, req)
			return callErr
		}, s.notify(bank.Code, "app_info"))
		if err != nil {
			s.warn("app info unavailable", "bank", bank.Code, "error", err)
		} else {
			result.Apps = append(result.Apps, info)
			if info.Title != "" {
				appName = info.Title
			}
		}

		var reviews []domain.RawReview
		err = retry.DoNotify(ctx, policy, func(ctx context.Context) error {
			var callErr error
			reviews, callErr = strategy.Reviews(ctx, req)
			return callErr
		}, s.notify(bank.Code, "reviews"))
		if err != nil {
			if ctx.Err() != nil {
				return domain.ScrapeResult{}, fmt.Errorf("bank %s: %w", bank.Code, err)
			}
			msg := fmt.Sprintf("bank %s: reviews unavailable: %v", bank.Code, err)
			result.Warnings = append(result.Warnings, msg)
			s.warn("reviews unavailable", "bank", bank.Code, "error", err)
			continue
		}

		for j := range reviews {
			reviews[j].BankCode = bank.Code
			reviews[j].BankName = bank.Name
			reviews[j].AppName = appName
			if reviews[j].Source == "" {
				reviews[j].Source = domain.SourceGooglePlay
			}
		}
		s.info("bank produced reviews", "bank", bank.Code, "count", len(reviews))
		result.Reviews = append(result.Reviews, reviews...)
	}

	if len(result.Reviews) == 0 {
		return result, ErrNoReviews
	}

	s.debug("strategy source done", "total_reviews", len(result.Reviews), "apps", len(result.Apps))
	return result, nil
}

func (s *StrategySource) notify(bank, op string) retry.Notify {
	return func(attempt int, err error, next time.Duration) {
		s.warn("scrape attempt failed", "bank", bank, "op", op, "attempt", attempt, "retry_in", next, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
