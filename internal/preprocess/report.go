package preprocess

import (
	"sort"
	"strconv"

	"ReviewsAnalyzer/internal/domain"
)

// Report summarizes what preprocessing removed, coerced and kept.
type Report struct {
	Original         int
	EmptyText        int
	MissingBank      int
	FilteredLanguage int
	Duplicates       int
	MissingRatings   int
	InvalidRatings   int
	MissingDates     int
	InvalidDates     int
	Final            int
	PerBank          map[string]int
	Ratings          map[int]int
	FirstDate        string
	LastDate         string
}

func newReport(original int) Report {
	return Report{
		Original: original,
		PerBank:  map[string]int{},
		Ratings:  map[int]int{},
	}
}

// Removed is the number of raw rows that did not survive.
func (r Report) Removed() int {
	return r.Original - r.Final
}

func (r *Report) finish(rows []domain.Review) {
	r.Final = len(rows)
	for _, row := range rows {
		r.PerBank[row.BankCode]++
		if row.Rating != nil {
			r.Ratings[*row.Rating]++
		}
		if d := row.DateString(); d != "" {
			if r.FirstDate == "" || d < r.FirstDate {
				r.FirstDate = d
			}
			if d > r.LastDate {
				r.LastDate = d
			}
		}
	}
}

// LogAttrs flattens the report into slog key/value pairs.
func (r Report) LogAttrs() []any {
	attrs := []any{
		"original", r.Original,
		"final", r.Final,
		"removed", r.Removed(),
		"empty_text", r.EmptyText,
		"missing_bank", r.MissingBank,
		"filtered_language", r.FilteredLanguage,
		"duplicates", r.Duplicates,
		"missing_ratings", r.MissingRatings,
		"invalid_ratings", r.InvalidRatings,
		"missing_dates", r.MissingDates,
		"invalid_dates", r.InvalidDates,
	}
	if r.FirstDate != "" {
		attrs = append(attrs, "first_date", r.FirstDate, "last_date", r.LastDate)
	}

	banks := make([]string, 0, len(r.PerBank))
	for b := range r.PerBank {
		banks = append(banks, b)
	}
	sort.Strings(banks)
	for _, b := range banks {
		attrs = append(attrs, "bank_"+b, r.PerBank[b])
	}
	for star := 1; star <= 5; star++ {
		if n, ok := r.Ratings[star]; ok {
			attrs = append(attrs, "rating_"+strconv.Itoa(star), n)
		}
	}
	return attrs
}
