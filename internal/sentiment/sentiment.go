// Package sentiment scores review polarity with a local valence lexicon and
// aggregates scores per bank and rating.
//
// Scoring sums word valences, flipping a word when a negator appears within
// the three preceding tokens and boosting it after an intensifier. The sum is
// squashed into a compound score in [-1, 1]; scores within ±0.05 are neutral.
package sentiment

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/kljensen/snowball/english"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
	"ReviewsAnalyzer/internal/textproc"
)

const (
	negationWindow  = 3
	negationScalar  = -0.74
	intensifierStep = 0.293
	normalizeAlpha  = 15.0
	neutralBand     = 0.05
)

var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "nothing": {}, "nobody": {}, "none": {}, "cannot": {},
	"cant": {}, "dont": {}, "doesnt": {}, "didnt": {}, "isnt": {}, "wasnt": {}, "wont": {},
	"arent": {}, "havent": {}, "hasnt": {}, "without": {},
}

var intensifiers = map[string]struct{}{
	"very": {}, "really": {}, "so": {}, "extremely": {}, "super": {}, "too": {}, "totally": {},
	"absolutely": {}, "highly": {}, "most": {},
}

// Lexicon is the local scorer.
type Lexicon struct{}

var _ ports.SentimentScorer = Lexicon{}

// NewLexicon returns the embedded-lexicon scorer.
func NewLexicon() Lexicon {
	return Lexicon{}
}

// Score never fails; the context is accepted to satisfy ports.SentimentScorer.
func (Lexicon) Score(_ context.Context, text string) (domain.Sentiment, error) {
	compound := Compound(text)
	return domain.Sentiment{Label: Label(compound), Score: compound}, nil
}

// Compound returns the squashed valence sum of text in [-1, 1].
func Compound(text string) float64 {
	tokens := textproc.Tokens(textproc.Clean(text))
	var sum float64
	for i, tok := range tokens {
		v, ok := lexicon[english.Stem(tok, true)]
		if !ok {
			continue
		}
		if i > 0 {
			if _, boost := intensifiers[tokens[i-1]]; boost {
				v += math.Copysign(intensifierStep, v)
			}
		}
		if negated(tokens, i) {
			v *= negationScalar
		}
		sum += v
	}
	if sum == 0 {
		return 0
	}
	return round4(sum / math.Sqrt(sum*sum+normalizeAlpha))
}

// Label maps a compound score to a polarity.
func Label(compound float64) domain.SentimentLabel {
	switch {
	case compound >= neutralBand:
		return domain.SentimentPositive
	case compound <= -neutralBand:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func negated(tokens []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if _, ok := negators[tokens[j]]; ok {
			return true
		}
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

type cell struct {
	bank   string
	rating int
}

// Aggregate averages sentiment scores per (bank, rating). Rows without a score
// are skipped; rows without a rating form their own cell, listed last per bank.
func Aggregate(rows []domain.EnrichedReview) []domain.SentimentAggregate {
	sums := map[cell]float64{}
	counts := map[cell]int{}
	for _, r := range rows {
		if r.Sentiment == nil {
			continue
		}
		k := cell{bank: r.BankCode}
		if r.Rating != nil {
			k.rating = *r.Rating
		}
		sums[k] += r.Sentiment.Score
		counts[k]++
	}

	out := make([]domain.SentimentAggregate, 0, len(counts))
	for k, n := range counts {
		agg := domain.SentimentAggregate{
			BankCode:  k.bank,
			MeanScore: round4(sums[k] / float64(n)),
			Count:     n,
		}
		if k.rating != 0 {
			rating := k.rating
			agg.Rating = &rating
		}
		out = append(out, agg)
	}

	slices.SortFunc(out, func(a, b domain.SentimentAggregate) int {
		if c := cmp.Compare(a.BankCode, b.BankCode); c != 0 {
			return c
		}
		return cmp.Compare(ratingKey(a.Rating), ratingKey(b.Rating))
	})
	return out
}

func ratingKey(r *int) int {
	if r == nil {
		return math.MaxInt
	}
	return *r
}
