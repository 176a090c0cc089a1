// Package topics fits an LDA topic model over lemmatized review text.
package topics

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/james-bowman/nlp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
)

// ErrInsufficientCorpus is returned when there are fewer usable documents than
// topics or no vocabulary at all.
var ErrInsufficientCorpus = errors.New("insufficient corpus for topic model")

const (
	defaultIterations = 50
	defaultWords      = 10
)

// Modeler fits a fixed number of topics with a seeded sampler so repeated fits
// on the same corpus assign the same topics.
type Modeler struct {
	numTopics  int
	words      int
	iterations int
	seed       uint64
}

var _ ports.TopicModeler = (*Modeler)(nil)

// New builds a Modeler.
func New(numTopics, words, iterations int, seed uint64) *Modeler {
	if words <= 0 {
		words = defaultWords
	}
	if iterations <= 0 {
		iterations = defaultIterations
	}
	return &Modeler{numTopics: numTopics, words: words, iterations: iterations, seed: seed}
}

// Fit models docs keyed by row id. Rows whose text is blank get domain.NoTopic
// and are left out of the fit.
func (m *Modeler) Fit(docs map[int]string) (domain.TopicModel, error) {
	if m.numTopics <= 0 {
		return domain.TopicModel{}, fmt.Errorf("%w: topic count must be positive", ErrInsufficientCorpus)
	}

	ids := make([]int, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	assignments := make(map[int]domain.TopicAssignment, len(docs))
	var fitIDs []int
	var corpus []string
	for _, id := range ids {
		text := strings.TrimSpace(docs[id])
		if text == "" {
			assignments[id] = domain.TopicAssignment{TopicID: domain.NoTopic}
			continue
		}
		fitIDs = append(fitIDs, id)
		corpus = append(corpus, text)
	}

	if len(corpus) < m.numTopics {
		return domain.TopicModel{}, fmt.Errorf("%w: %d documents for %d topics", ErrInsufficientCorpus, len(corpus), m.numTopics)
	}

	vectoriser := nlp.NewCountVectoriser()
	counts, err := vectoriser.FitTransform(corpus...)
	if err != nil {
		return domain.TopicModel{}, fmt.Errorf("vectorise corpus: %w", err)
	}
	if len(vectoriser.Vocabulary) == 0 {
		return domain.TopicModel{}, fmt.Errorf("%w: empty vocabulary", ErrInsufficientCorpus)
	}

	lda := nlp.NewLatentDirichletAllocation(m.numTopics)
	lda.Iterations = m.iterations
	lda.TransformationPasses = m.iterations
	lda.Processes = 1
	lda.Rnd = rand.New(rand.NewSource(m.seed))

	docsOverTopics, err := lda.FitTransform(counts)
	if err != nil {
		return domain.TopicModel{}, fmt.Errorf("fit lda: %w", err)
	}

	topicWords := sortedTopicWords(lda.Components(), vocabulary(vectoriser), m.words)

	for col, id := range fitIDs {
		topic, weight := dominant(docsOverTopics, col)
		assignments[id] = domain.TopicAssignment{
			TopicID:  topic,
			Weight:   weight,
			Keywords: topicWords[topic],
		}
	}

	return domain.TopicModel{Topics: topicWords, Assignments: assignments}, nil
}

// vocabulary inverts the vectoriser's term -> column index map.
func vocabulary(v *nlp.CountVectoriser) []string {
	vocab := make([]string, len(v.Vocabulary))
	for term, idx := range v.Vocabulary {
		vocab[idx] = term
	}
	return vocab
}

type wordWeight struct {
	word   string
	weight float64
}

// sortedTopicWords returns the top n words per topic, heaviest first, ties by word.
func sortedTopicWords(topicsOverWords mat.Matrix, vocab []string, n int) map[int][]string {
	rows, cols := topicsOverWords.Dims()
	out := make(map[int][]string, rows)
	for topic := 0; topic < rows; topic++ {
		ws := make([]wordWeight, cols)
		for word := 0; word < cols; word++ {
			ws[word] = wordWeight{word: vocab[word], weight: topicsOverWords.At(topic, word)}
		}
		slices.SortFunc(ws, func(a, b wordWeight) int {
			switch {
			case a.weight > b.weight:
				return -1
			case a.weight < b.weight:
				return 1
			}
			return strings.Compare(a.word, b.word)
		})
		top := min(n, len(ws))
		words := make([]string, top)
		for i := 0; i < top; i++ {
			words[i] = ws[i].word
		}
		out[topic] = words
	}
	return out
}

// dominant picks the heaviest topic for a document column; the lowest id wins ties.
func dominant(docsOverTopics mat.Matrix, col int) (int, float64) {
	rows, _ := docsOverTopics.Dims()
	best, bestWeight := 0, docsOverTopics.At(0, col)
	for topic := 1; topic < rows; topic++ {
		if w := docsOverTopics.At(topic, col); w > bestWeight {
			best, bestWeight = topic, w
		}
	}
	return best, bestWeight
}
