// Package keywords ranks unigrams and bigrams per bank with TF-IDF.
//
// Each bank's reviews form an independent corpus, so a term frequent across
// every bank is not suppressed in a bank where it is salient. Scores follow
// the smoothed formulation idf = ln((1+n)/(1+df)) + 1 with raw term counts,
// L2-normalized per document and averaged over the corpus.
package keywords

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
	"ReviewsAnalyzer/internal/textproc"
)

const (
	defaultTopN        = 15
	defaultMinDocs     = 3
	defaultMaxFeatures = 200
	minTokenRunes      = 2
)

// Extractor scores n-grams over a corpus of clean texts.
type Extractor struct {
	topN        int
	minDocs     int
	maxFeatures int
}

var _ ports.KeywordExtractor = (*Extractor)(nil)

// New builds an Extractor; non-positive arguments fall back to defaults.
func New(topN, minDocs, maxFeatures int) *Extractor {
	if topN <= 0 {
		topN = defaultTopN
	}
	if minDocs <= 0 {
		minDocs = defaultMinDocs
	}
	if maxFeatures <= 0 {
		maxFeatures = defaultMaxFeatures
	}
	return &Extractor{topN: topN, minDocs: minDocs, maxFeatures: maxFeatures}
}

// Extract returns the top keywords for one corpus, sorted by score descending
// then term ascending. A corpus smaller than the minimum document count, or one
// without any candidate term, yields an empty list.
func (e *Extractor) Extract(docs []string) []domain.Keyword {
	if len(docs) < e.minDocs {
		return []domain.Keyword{}
	}

	grams := make([][]string, len(docs))
	freq := map[string]int{}
	for i, doc := range docs {
		grams[i] = ngrams(doc)
		for _, g := range grams[i] {
			freq[g]++
		}
	}

	vocab := e.vocabulary(freq)
	if len(vocab) == 0 {
		return []domain.Keyword{}
	}

	df := map[string]int{}
	counts := make([]map[string]int, len(docs))
	for i, gs := range grams {
		counts[i] = map[string]int{}
		for _, g := range gs {
			if _, ok := vocab[g]; ok {
				counts[i][g]++
			}
		}
		for g := range counts[i] {
			df[g]++
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for g, d := range df {
		idf[g] = math.Log((1+n)/(1+float64(d))) + 1
	}

	sums := map[string]float64{}
	for _, c := range counts {
		if len(c) == 0 {
			continue
		}
		terms := sortedKeys(c)
		var norm float64
		weights := make([]float64, len(terms))
		for j, term := range terms {
			weights[j] = float64(c[term]) * idf[term]
			norm += weights[j] * weights[j]
		}
		norm = math.Sqrt(norm)
		for j, term := range terms {
			sums[term] += weights[j] / norm
		}
	}

	result := make([]domain.Keyword, 0, len(sums))
	for term, s := range sums {
		result = append(result, domain.Keyword{Term: term, Score: s / n})
	}
	slices.SortFunc(result, cmpKeyword)

	if len(result) > e.topN {
		result = result[:e.topN]
	}
	return result
}

// vocabulary keeps the maxFeatures most frequent grams, ties broken by term.
func (e *Extractor) vocabulary(freq map[string]int) map[string]struct{} {
	terms := sortedKeys(freq)
	slices.SortStableFunc(terms, func(a, b string) int {
		return cmp.Compare(freq[b], freq[a])
	})
	if len(terms) > e.maxFeatures {
		terms = terms[:e.maxFeatures]
	}
	vocab := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		vocab[t] = struct{}{}
	}
	return vocab
}

// ngrams returns unigrams followed by bigrams built from content tokens.
func ngrams(clean string) []string {
	var tokens []string
	for _, tok := range textproc.ContentTokens(clean) {
		if utf8.RuneCountInString(tok) >= minTokenRunes {
			tokens = append(tokens, tok)
		}
	}
	grams := make([]string, 0, 2*len(tokens))
	grams = append(grams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		grams = append(grams, tokens[i]+" "+tokens[i+1])
	}
	return grams
}

func cmpKeyword(a, b domain.Keyword) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Term, b.Term)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
