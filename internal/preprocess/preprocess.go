// Package preprocess turns the raw scraped table into the validated, deduplicated
// processed table.
package preprocess

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/textproc"
)

const anonymousUser = "Anonymous"

// reviewNamespace seeds name-based review ids for rows that arrive without one.
var reviewNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://play.google.com/store/apps/reviews"))

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	domain.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Preprocessor validates and normalizes raw review rows.
type Preprocessor struct {
	bankNames map[string]string
	keepText  func(string) bool
	logger    *slog.Logger
}

// Option customizes a Preprocessor.
type Option func(*Preprocessor)

// WithLanguageFilter drops rows whose normalized text keep rejects,
// e.g. textproc.IsEnglish.
func WithLanguageFilter(keep func(text string) bool) Option {
	return func(p *Preprocessor) {
		p.keepText = keep
	}
}

// New builds a Preprocessor; bankNames fills missing bank names by code.
func New(bankNames map[string]string, logger *slog.Logger, opts ...Option) *Preprocessor {
	if bankNames == nil {
		bankNames = map[string]string{}
	}
	p := &Preprocessor{bankNames: bankNames, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type dedupKey struct {
	bank string
	text string
	date string
}

// Process applies, in order: text normalization, empty-text removal, bank check,
// the optional language filter, deduplication on (bank, text, date) keeping the first row, rating and date
// coercion, default filling and the final sort.
func (p *Preprocessor) Process(raw []domain.RawReview) ([]domain.Review, Report) {
	report := newReport(len(raw))
	ids := rowIDs(raw)
	seen := make(map[dedupKey]struct{}, len(raw))
	out := make([]domain.Review, 0, len(raw))

	for i, r := range raw {
		text := textproc.Normalize(r.Text)
		if text == "" {
			report.EmptyText++
			continue
		}

		bank := strings.TrimSpace(r.BankCode)
		if bank == "" {
			report.MissingBank++
			continue
		}

		if p.keepText != nil && !p.keepText(text) {
			report.FilteredLanguage++
			continue
		}

		date, dateState := parseDate(r.Date)
		rev := domain.Review{RowID: ids[i], BankCode: bank, Text: text, Date: date}

		key := dedupKey{bank: bank, text: text, date: rev.DateString()}
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		switch dateState {
		case valueMissing:
			report.MissingDates++
		case valueInvalid:
			report.InvalidDates++
		}

		rating, ratingState := parseRating(r.Rating)
		switch ratingState {
		case valueMissing:
			report.MissingRatings++
		case valueInvalid:
			report.InvalidRatings++
		}
		rev.Rating = rating

		rev.CleanText = textproc.Clean(text)
		rev.BankName = p.bankName(bank, r.BankName)
		rev.AppName = strings.TrimSpace(r.AppName)
		rev.Username = fillDefault(textproc.Normalize(r.Username), anonymousUser)
		rev.ThumbsUp = parseCount(r.ThumbsUp)
		rev.ReplyContent = textproc.Normalize(r.ReplyContent)
		rev.AppVersion = strings.TrimSpace(r.AppVersion)
		rev.Source = fillDefault(strings.TrimSpace(r.Source), domain.SourceGooglePlay)
		rev.ReviewID = strings.TrimSpace(r.ReviewID)
		if rev.ReviewID == "" {
			rev.ReviewID = ReviewID(bank, text, rev.DateString())
		}

		out = append(out, rev)
	}

	Sort(out)
	report.finish(out)

	if p.logger != nil {
		p.logger.Info("preprocessing finished", report.LogAttrs()...)
	}
	return out, report
}

// ToRaw renders a processed review back into raw form so it can be reprocessed.
func ToRaw(r domain.Review) domain.RawReview {
	rating := ""
	if r.Rating != nil {
		rating = strconv.Itoa(*r.Rating)
	}
	return domain.RawReview{
		RowID:        strconv.Itoa(r.RowID),
		ReviewID:     r.ReviewID,
		BankCode:     r.BankCode,
		BankName:     r.BankName,
		AppName:      r.AppName,
		Text:         r.Text,
		Rating:       rating,
		Date:         r.DateString(),
		Username:     r.Username,
		ThumbsUp:     strconv.Itoa(r.ThumbsUp),
		ReplyContent: r.ReplyContent,
		AppVersion:   r.AppVersion,
		Source:       r.Source,
	}
}

// ReviewID derives a stable identifier from the dedup key.
func ReviewID(bank, text, date string) string {
	return uuid.NewSHA1(reviewNamespace, []byte(bank+"\x1f"+text+"\x1f"+date)).String()
}

// Sort orders rows by bank ascending, date descending (missing last), row id ascending.
func Sort(rows []domain.Review) {
	slices.SortStableFunc(rows, func(a, b domain.Review) int {
		if c := cmp.Compare(a.BankCode, b.BankCode); c != 0 {
			return c
		}
		switch {
		case a.Date == nil && b.Date != nil:
			return 1
		case a.Date != nil && b.Date == nil:
			return -1
		case a.Date != nil && b.Date != nil:
			if c := b.Date.Compare(*a.Date); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.RowID, b.RowID)
	})
}

func (p *Preprocessor) bankName(code, given string) string {
	if name := textproc.Normalize(given); name != "" {
		return name
	}
	if name, ok := p.bankNames[code]; ok {
		return name
	}
	return code
}

// rowIDs keeps an existing row_id column only when every row carries a unique,
// non-negative id; otherwise raw positions are used.
func rowIDs(raw []domain.RawReview) []int {
	ids := make([]int, len(raw))
	used := make(map[int]struct{}, len(raw))
	for i, r := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(r.RowID))
		if err != nil || id < 0 {
			return positions(len(raw))
		}
		if _, dup := used[id]; dup {
			return positions(len(raw))
		}
		used[id] = struct{}{}
		ids[i] = id
	}
	return ids
}

func positions(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

type valueState int

const (
	valueOK valueState = iota
	valueMissing
	valueInvalid
)

// parseRating accepts integral values in [1,5], including float spellings like "4.0".
func parseRating(s string) (*int, valueState) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return nil, valueMissing
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f > 5 {
		return nil, valueInvalid
	}
	v := int(f)
	return &v, valueOK
}

func parseDate(s string) (*time.Time, valueState) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nat") || strings.EqualFold(s, "null") {
		return nil, valueMissing
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &day, valueOK
	}
	return nil, valueInvalid
}

func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f == math.Trunc(f) && f < math.MaxInt32 {
		return int(f)
	}
	return 0
}

// ParseRating coerces a rating cell; missing or invalid values give nil.
func ParseRating(s string) *int {
	v, _ := parseRating(s)
	return v
}

// ParseDate coerces a date cell to a UTC calendar date; missing or invalid values give nil.
func ParseDate(s string) *time.Time {
	v, _ := parseDate(s)
	return v
}

// ParseCount coerces a non-negative count cell; anything else is 0.
func ParseCount(s string) int {
	return parseCount(s)
}

func fillDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
