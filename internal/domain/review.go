package domain

import (
	"errors"
	"time"
)

// SourceGooglePlay tags every review scraped from the Play Store.
const SourceGooglePlay = "Google Play"

// DateLayout is the canonical calendar-date representation in processed tables.
const DateLayout = "2006-01-02"

var (
	// ErrEmptyTable is returned when a stage receives no rows to work on.
	ErrEmptyTable = errors.New("table has no rows")
	// ErrMissingColumn is returned when an input table lacks a required column.
	ErrMissingColumn = errors.New("required column missing")
	// ErrArtifactNotFound is returned when an input file does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Bank is one configured banking application.
type Bank struct {
	Code  string
	Name  string
	AppID string
}

// AppInfo is Play Store metadata fetched for a bank's app.
type AppInfo struct {
	BankCode string
	BankName string
	AppID    string
	Title    string
	Score    float64
	Ratings  int64
	Reviews  int64
	Installs string
}

// RawReview is a review row exactly as it appears in the raw table.
// Every field is kept as text so that bad values survive until preprocessing.
type RawReview struct {
	RowID        string
	ReviewID     string
	BankCode     string
	BankName     string
	AppName      string
	Text         string
	Rating       string
	Date         string
	Username     string
	ThumbsUp     string
	ReplyContent string
	AppVersion   string
	Source       string
}

// Review is a validated, normalized record of the processed table.
// Rating and Date are nil when the source value was missing or invalid.
type Review struct {
	RowID        int
	ReviewID     string
	BankCode     string
	BankName     string
	AppName      string
	Text         string
	CleanText    string
	Rating       *int
	Date         *time.Time
	Username     string
	ThumbsUp     int
	ReplyContent string
	AppVersion   string
	Source       string
}

// DateString renders Date in DateLayout, or "" when missing.
func (r Review) DateString() string {
	if r.Date == nil {
		return ""
	}
	return r.Date.Format(DateLayout)
}

// EnrichedReview is a processed review plus the thematic columns.
type EnrichedReview struct {
	Review
	LemmaText     string
	DominantTopic int
	TopicKeywords []string
	Theme         string
	Sentiment     *Sentiment
}

// ScrapeResult bundles everything collected for the configured banks.
type ScrapeResult struct {
	Reviews  []RawReview
	Apps     []AppInfo
	Warnings []string
}
