package sentiment

import (
	_ "embed"
	"strconv"
	"strings"

	"github.com/kljensen/snowball/english"
)

//go:embed lexicon.tsv
var lexiconRaw string

// lexicon maps stems to valences, built once at init.
var lexicon map[string]float64

func init() {
	lexicon = parseLexicon(lexiconRaw)
}

// parseLexicon reads tab-separated "word\tvalence" lines. Words are stemmed so
// inflected forms share one entry; the first entry for a stem wins.
func parseLexicon(raw string) map[string]float64 {
	m := make(map[string]float64, 128)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		stem := english.Stem(strings.ToLower(strings.TrimSpace(parts[0])), true)
		if _, exists := m[stem]; !exists {
			m[stem] = score
		}
	}
	return m
}
