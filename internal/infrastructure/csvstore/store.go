// Package csvstore persists the pipeline's tabular artifacts as CSV files and
// the analysis summary as JSON. Every write goes to a temp file first and is
// renamed into place, so a crashed stage never leaves a half-written artifact.
package csvstore

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
	"ReviewsAnalyzer/internal/preprocess"
)

// topicKeywordSep joins topic words inside one CSV cell.
const topicKeywordSep = " "

var (
	rawHeader = []string{
		colReviewID, colText, colRating, colDate, colUsername, colThumbsUp,
		colReplyContent, colAppVersion, colBank, colBankName, colAppName, colSource,
	}
	processedHeader = []string{
		colRowID, colReviewID, colBank, colBankName, colAppName, colText, colCleanText, colTextLength,
		colRating, colDate, colUsername, colThumbsUp, colReplyContent, colAppVersion, colSource,
	}
	enrichedHeader  = append(append([]string{}, processedHeader...), colLemmaText, colTopic, colTopicKeywords, colTheme)
	sentimentHeader = append(append([]string{}, enrichedHeader...), colSentLabel, colSentScore)
	appInfoHeader   = []string{"bank", "bank_name", "app_id", "title", "score", "ratings", "reviews", "installs"}
	summaryHeader   = []string{colBank, colRating, "mean_sentiment_score", "count"}

	rawRequired       = []string{colBank, colText, colRating, colDate, colUsername}
	processedRequired = []string{colRowID, colBank, colText, colCleanText, colRating, colDate}
	enrichedRequired  = append(append([]string{}, processedRequired...), colTheme)
)

// Store reads and writes pipeline artifacts on the local filesystem.
type Store struct{}

var _ ports.DatasetStore = Store{}

// New returns a filesystem store.
func New() Store {
	return Store{}
}

// ReadRaw loads the raw table. Every cell is kept as text.
func (Store) ReadRaw(path string) ([]domain.RawReview, error) {
	t, err := readTable(path, rawRequired...)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.RawReview, 0, len(t.records))
	for _, rec := range t.records {
		rows = append(rows, domain.RawReview{
			RowID:        t.get(rec, colRowID),
			ReviewID:     t.get(rec, colReviewID),
			BankCode:     t.get(rec, colBank),
			BankName:     t.get(rec, colBankName),
			AppName:      t.get(rec, colAppName),
			Text:         t.get(rec, colText),
			Rating:       t.get(rec, colRating),
			Date:         t.get(rec, colDate),
			Username:     t.get(rec, colUsername),
			ThumbsUp:     t.get(rec, colThumbsUp),
			ReplyContent: t.get(rec, colReplyContent),
			AppVersion:   t.get(rec, colAppVersion),
			Source:       t.get(rec, colSource),
		})
	}
	return rows, nil
}

// WriteRaw stores scraped rows in scrape order.
func (Store) WriteRaw(path string, rows []domain.RawReview) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.ReviewID, r.Text, r.Rating, r.Date, r.Username, r.ThumbsUp,
			r.ReplyContent, r.AppVersion, r.BankCode, r.BankName, r.AppName, r.Source,
		})
	}
	return writeCSVAtomic(path, rawHeader, records)
}

// WriteAppInfo stores per-bank app metadata.
func (Store) WriteAppInfo(path string, apps []domain.AppInfo) error {
	records := make([][]string, 0, len(apps))
	for _, a := range apps {
		records = append(records, []string{
			a.BankCode, a.BankName, a.AppID, a.Title,
			formatFloat(a.Score),
			strconv.FormatInt(a.Ratings, 10),
			strconv.FormatInt(a.Reviews, 10),
			a.Installs,
		})
	}
	return writeCSVAtomic(path, appInfoHeader, records)
}

// ReadProcessed loads the processed table. Bad rating, date or thumbs_up cells
// are coerced to missing the same way preprocessing does; only a missing or
// malformed row_id fails the read.
func (Store) ReadProcessed(path string) ([]domain.Review, error) {
	t, err := readTable(path, processedRequired...)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Review, 0, len(t.records))
	for i, rec := range t.records {
		r, err := t.review(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// WriteProcessed stores the processed table in the given order.
func (Store) WriteProcessed(path string, rows []domain.Review) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, reviewRecord(r))
	}
	return writeCSVAtomic(path, processedHeader, records)
}

// ReadEnriched loads the enriched table, with sentiment columns when present.
// An unreadable topic id becomes domain.NoTopic and an unreadable sentiment is
// dropped; only a bad row_id fails the read.
func (Store) ReadEnriched(path string) ([]domain.EnrichedReview, error) {
	t, err := readTable(path, enrichedRequired...)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.EnrichedReview, 0, len(t.records))
	for i, rec := range t.records {
		base, err := t.review(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		e := domain.EnrichedReview{
			Review:        base,
			LemmaText:     t.get(rec, colLemmaText),
			DominantTopic: domain.NoTopic,
			Theme:         t.get(rec, colTheme),
		}
		if topic, err := strconv.Atoi(strings.TrimSpace(t.get(rec, colTopic))); err == nil && topic >= domain.NoTopic {
			e.DominantTopic = topic
		}
		e.TopicKeywords = strings.Fields(t.get(rec, colTopicKeywords))

		if label := strings.TrimSpace(t.get(rec, colSentLabel)); label != "" {
			score, err := strconv.ParseFloat(strings.TrimSpace(t.get(rec, colSentScore)), 64)
			if err == nil {
				e.Sentiment = &domain.Sentiment{Label: domain.SentimentLabel(label), Score: score}
			}
		}
		rows = append(rows, e)
	}
	return rows, nil
}

// WriteEnriched stores enriched rows; sentiment columns are added only when
// at least one row carries a sentiment.
func (Store) WriteEnriched(path string, rows []domain.EnrichedReview) error {
	withSentiment := false
	for _, r := range rows {
		if r.Sentiment != nil {
			withSentiment = true
			break
		}
	}

	header := enrichedHeader
	if withSentiment {
		header = sentimentHeader
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		rec := append(reviewRecord(r.Review),
			r.LemmaText,
			strconv.Itoa(r.DominantTopic),
			strings.Join(r.TopicKeywords, topicKeywordSep),
			r.Theme,
		)
		if withSentiment {
			label, score := "", ""
			if r.Sentiment != nil {
				label = string(r.Sentiment.Label)
				score = formatFloat(r.Sentiment.Score)
			}
			rec = append(rec, label, score)
		}
		records = append(records, rec)
	}
	return writeCSVAtomic(path, header, records)
}

// WriteSummary stores the analysis summary as indented JSON.
func (Store) WriteSummary(path string, summary domain.AnalysisSummary) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	})
}

// WriteSentimentSummary stores mean sentiment per (bank, rating).
func (Store) WriteSentimentSummary(path string, rows []domain.SentimentAggregate) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.BankCode, formatRating(r.Rating), formatFloat(r.MeanScore), strconv.Itoa(r.Count),
		})
	}
	return writeCSVAtomic(path, summaryHeader, records)
}

func (t *table) review(rec []string) (domain.Review, error) {
	r := domain.Review{
		ReviewID:     t.get(rec, colReviewID),
		BankCode:     t.get(rec, colBank),
		BankName:     t.get(rec, colBankName),
		AppName:      t.get(rec, colAppName),
		Text:         t.get(rec, colText),
		CleanText:    t.get(rec, colCleanText),
		Username:     t.get(rec, colUsername),
		ReplyContent: t.get(rec, colReplyContent),
		AppVersion:   t.get(rec, colAppVersion),
		Source:       t.get(rec, colSource),
	}

	id, err := strconv.Atoi(strings.TrimSpace(t.get(rec, colRowID)))
	if err != nil {
		return r, fmt.Errorf("invalid %s: %w", colRowID, err)
	}
	r.RowID = id

	r.Rating = preprocess.ParseRating(t.get(rec, colRating))
	r.Date = preprocess.ParseDate(t.get(rec, colDate))
	r.ThumbsUp = preprocess.ParseCount(t.get(rec, colThumbsUp))
	return r, nil
}

func reviewRecord(r domain.Review) []string {
	return []string{
		strconv.Itoa(r.RowID),
		r.ReviewID,
		r.BankCode,
		r.BankName,
		r.AppName,
		r.Text,
		r.CleanText,
		strconv.Itoa(utf8.RuneCountInString(r.Text)),
		formatRating(r.Rating),
		r.DateString(),
		r.Username,
		strconv.Itoa(r.ThumbsUp),
		r.ReplyContent,
		r.AppVersion,
		r.Source,
	}
}

func formatRating(r *int) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(*r)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
