// Package themes assigns every review exactly one theme from an ordered rule set.
package themes

import (
	"strings"

	"ReviewsAnalyzer/internal/ports"
	"ReviewsAnalyzer/internal/textproc"
)

// DefaultFallback is used when no fallback theme is configured.
const DefaultFallback = "Other"

// Definition is one theme and its trigger keywords or phrases.
type Definition struct {
	Name     string
	Keywords []string
}

type rule struct {
	name    string
	phrases []string
	stems   [][]string
}

// Classifier walks the definitions in priority order; the first match wins.
type Classifier struct {
	rules     []rule
	fallback  string
	useTopics bool
}

var _ ports.ThemeClassifier = (*Classifier)(nil)

// New compiles definitions into a Classifier. Keywords are cleaned the same way
// review text is, so punctuation and case in the definitions do not matter.
func New(defs []Definition, fallback string, useTopics bool) *Classifier {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallback
	}
	c := &Classifier{fallback: fallback, useTopics: useTopics}
	for _, d := range defs {
		r := rule{name: d.Name}
		for _, kw := range d.Keywords {
			phrase := textproc.Clean(kw)
			if phrase == "" {
				continue
			}
			r.phrases = append(r.phrases, phrase)
			if stems := strings.Fields(textproc.Lemmatize(phrase)); len(stems) > 0 {
				r.stems = append(r.stems, stems)
			}
		}
		c.rules = append(c.rules, r)
	}
	return c
}

// Classify returns the theme for text. Keywords match case-insensitively at a
// word start, so "crash" matches "crashing". When the text matches nothing and
// topic words are given, they are compared against the stemmed keywords before
// the fallback theme is used.
func (c *Classifier) Classify(text string, topicKeywords []string) string {
	padded := " " + textproc.Clean(text)
	for _, r := range c.rules {
		for _, p := range r.phrases {
			if strings.Contains(padded, " "+p) {
				return r.name
			}
		}
	}

	if c.useTopics && len(topicKeywords) > 0 {
		words := make(map[string]struct{}, len(topicKeywords))
		for _, w := range topicKeywords {
			words[strings.ToLower(w)] = struct{}{}
		}
		for _, r := range c.rules {
			for _, stems := range r.stems {
				if containsAll(words, stems) {
					return r.name
				}
			}
		}
	}

	return c.fallback
}

// Names lists every label Classify can return, fallback last.
func (c *Classifier) Names() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.name)
	}
	return append(names, c.fallback)
}

// Fallback is the theme assigned when nothing matches.
func (c *Classifier) Fallback() string {
	return c.fallback
}

func containsAll(set map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
