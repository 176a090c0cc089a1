package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewsAnalyzer/internal/config"
	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/keywords"
	"ReviewsAnalyzer/internal/logging"
	"ReviewsAnalyzer/internal/preprocess"
	"ReviewsAnalyzer/internal/sentiment"
	"ReviewsAnalyzer/internal/themes"
)

type memStore struct {
	raw       map[string][]domain.RawReview
	apps      map[string][]domain.AppInfo
	processed map[string][]domain.Review
	enriched  map[string][]domain.EnrichedReview
	summaries map[string]domain.AnalysisSummary
	scores    map[string][]domain.SentimentAggregate
}

func newMemStore() *memStore {
	return &memStore{
		raw:       map[string][]domain.RawReview{},
		apps:      map[string][]domain.AppInfo{},
		processed: map[string][]domain.Review{},
		enriched:  map[string][]domain.EnrichedReview{},
		summaries: map[string]domain.AnalysisSummary{},
		scores:    map[string][]domain.SentimentAggregate{},
	}
}

func (m *memStore) ReadRaw(path string) ([]domain.RawReview, error) {
	rows, ok := m.raw[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrArtifactNotFound)
	}
	return rows, nil
}

func (m *memStore) WriteRaw(path string, rows []domain.RawReview) error {
	m.raw[path] = rows
	return nil
}

func (m *memStore) WriteAppInfo(path string, apps []domain.AppInfo) error {
	m.apps[path] = apps
	return nil
}

func (m *memStore) ReadProcessed(path string) ([]domain.Review, error) {
	rows, ok := m.processed[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrArtifactNotFound)
	}
	return rows, nil
}

func (m *memStore) WriteProcessed(path string, rows []domain.Review) error {
	m.processed[path] = rows
	return nil
}

func (m *memStore) ReadEnriched(path string) ([]domain.EnrichedReview, error) {
	rows, ok := m.enriched[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrArtifactNotFound)
	}
	out := make([]domain.EnrichedReview, len(rows))
	copy(out, rows)
	return out, nil
}

func (m *memStore) WriteEnriched(path string, rows []domain.EnrichedReview) error {
	m.enriched[path] = rows
	return nil
}

func (m *memStore) WriteSummary(path string, summary domain.AnalysisSummary) error {
	m.summaries[path] = summary
	return nil
}

func (m *memStore) WriteSentimentSummary(path string, rows []domain.SentimentAggregate) error {
	m.scores[path] = rows
	return nil
}

type stubSource struct {
	result domain.ScrapeResult
	err    error
}

func (s stubSource) FetchAll(context.Context) (domain.ScrapeResult, error) {
	return s.result, s.err
}

// firstTopicModeler assigns every non-empty document to topic 0.
type firstTopicModeler struct{}

func (firstTopicModeler) Fit(docs map[int]string) (domain.TopicModel, error) {
	model := domain.TopicModel{
		Topics:      map[int][]string{0: {"crash", "app"}},
		Assignments: map[int]domain.TopicAssignment{},
	}
	for id, doc := range docs {
		if doc == "" {
			model.Assignments[id] = domain.TopicAssignment{TopicID: domain.NoTopic}
			continue
		}
		model.Assignments[id] = domain.TopicAssignment{TopicID: 0, Weight: 1, Keywords: []string{"crash", "app"}}
	}
	return model, nil
}

type failingTopicModeler struct{ panics bool }

func (f failingTopicModeler) Fit(map[int]string) (domain.TopicModel, error) {
	if f.panics {
		panic("matrix dimensions mismatch")
	}
	return domain.TopicModel{}, errors.New("not enough documents")
}

type panickingExtractor struct{}

func (panickingExtractor) Extract([]string) []domain.Keyword {
	panic("boom")
}

type flakyScorer struct{ failOn string }

func (f flakyScorer) Score(ctx context.Context, text string) (domain.Sentiment, error) {
	if text == f.failOn {
		return domain.Sentiment{}, errors.New("inference timeout")
	}
	return sentiment.NewLexicon().Score(ctx, text)
}

type fakeRepository struct {
	schema bool
	banks  []domain.Bank
	rows   []domain.EnrichedReview
}

func (f *fakeRepository) EnsureSchema(context.Context) error {
	f.schema = true
	return nil
}

func (f *fakeRepository) Load(_ context.Context, banks []domain.Bank, rows []domain.EnrichedReview) (domain.LoadReport, error) {
	f.banks = banks
	f.rows = rows
	return domain.LoadReport{Banks: len(banks), Inserted: len(rows)}, nil
}

var testBanks = []domain.Bank{
	{Code: "BankA", Name: "Bank A", AppID: "com.example.a"},
	{Code: "BankB", Name: "Bank B", AppID: "com.example.b"},
}

func testThemes(useTopics bool) *themes.Classifier {
	return themes.New([]themes.Definition{
		{Name: "Bugs & Crashes", Keywords: []string{"crash", "bug", "error"}},
		{Name: "Account Access Issues", Keywords: []string{"login", "password", "otp"}},
		{Name: "Transaction Performance", Keywords: []string{"transfer", "payment", "slow"}},
		{Name: "Customer Support", Keywords: []string{"support", "customer care"}},
		{Name: "UI/UX", Keywords: []string{"easy", "design", "nice"}},
	}, "Other", useTopics)
}

func newTestPipeline(store *memStore, deps PipelineDeps) *Pipeline {
	deps.Store = store
	deps.Banks = testBanks
	deps.Logger = logging.Discard()
	if deps.Preprocessor == nil {
		deps.Preprocessor = preprocess.New(map[string]string{"BankA": "Bank A", "BankB": "Bank B"}, logging.Discard())
	}
	if deps.Keywords == nil {
		deps.Keywords = keywords.New(5, 1, 50)
	}
	if deps.Topics == nil {
		deps.Topics = firstTopicModeler{}
	}
	if deps.Themes == nil {
		deps.Themes = testThemes(false)
	}
	return NewPipeline(deps)
}

func processedRows() []domain.Review {
	texts := []string{
		"app keeps crashing on login",
		"cannot transfer money very slow",
		"nice and easy design",
		"customer care never answers",
		"ok",
	}
	rows := make([]domain.Review, len(texts))
	for i, text := range texts {
		rows[i] = domain.Review{RowID: i * 10, BankCode: "BankA", BankName: "Bank A", Text: text, CleanText: text}
	}
	return rows
}

func TestScenarioRowGetsBugsTheme(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.raw["raw.csv"] = []domain.RawReview{{
		BankCode: "BankA",
		Text:     "  App keeps CRASHING on login!! ",
		Rating:   "6",
		Date:     "2023-13-40",
		Username: "u1",
	}}
	p := newTestPipeline(store, PipelineDeps{})

	report, err := p.Preprocess("raw.csv", "processed.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Final)

	result, err := p.Thematic("processed.csv", "enriched.csv", "summary.json")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Nil(t, row.Rating)
	assert.Nil(t, row.Date)
	assert.Equal(t, "app keeps crashing on login", row.CleanText)
	assert.Equal(t, "Bugs & Crashes", row.Theme)
	assert.Equal(t, result.Rows, store.enriched["enriched.csv"])
	assert.Equal(t, 1, store.summaries["summary.json"].ThemeCounts["Bugs & Crashes"])
}

func TestEnrichJoinsByRowID(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newMemStore(), PipelineDeps{})
	rows := processedRows()

	result := p.Enrich(rows)

	require.Len(t, result.Rows, len(rows))
	want := []string{"Bugs & Crashes", "Transaction Performance", "UI/UX", "Customer Support", "Other"}
	for i, row := range result.Rows {
		assert.Equal(t, rows[i].RowID, row.RowID)
		assert.Equal(t, want[i], row.Theme, row.Text)
	}
	assert.Equal(t, 0, result.Rows[0].DominantTopic)
	assert.Equal(t, []string{"crash", "app"}, result.Rows[0].TopicKeywords)
	assert.Empty(t, result.Summary.Warnings)
	assert.NotNil(t, result.Summary.Warnings)
	assert.Equal(t, len(rows), result.Summary.Rows)
}

func TestEnrichUnmatchedTextGetsFallbackTheme(t *testing.T) {
	t.Parallel()

	rows := []domain.Review{
		{RowID: 1, BankCode: "BankA", Text: "hello world wonderful", CleanText: "hello world wonderful"},
		{RowID: 2, BankCode: "BankA", Text: "Good app", CleanText: "good app"},
	}

	result := newTestPipeline(newMemStore(), PipelineDeps{}).Enrich(rows)
	for _, row := range result.Rows {
		assert.Equal(t, 0, row.DominantTopic)
		assert.Equal(t, "Other", row.Theme, row.Text)
	}
	assert.Equal(t, 2, result.Summary.ThemeCounts["Other"])

	optIn := newTestPipeline(newMemStore(), PipelineDeps{Themes: testThemes(true)}).Enrich(rows)
	for _, row := range optIn.Rows {
		assert.Equal(t, "Bugs & Crashes", row.Theme, row.Text)
	}
}

func TestEnrichTopicFailureFillsSentinels(t *testing.T) {
	t.Parallel()

	for _, panics := range []bool{false, true} {
		panics := panics
		t.Run(fmt.Sprintf("panics=%v", panics), func(t *testing.T) {
			t.Parallel()

			p := newTestPipeline(newMemStore(), PipelineDeps{Topics: failingTopicModeler{panics: panics}})
			result := p.Enrich(processedRows())

			require.Len(t, result.Summary.Warnings, 1)
			assert.Contains(t, result.Summary.Warnings[0], "topics")
			assert.Empty(t, result.Summary.Topics)
			assert.Equal(t, len(result.Rows), result.Summary.TopicCounts[domain.NoTopic])
			for _, row := range result.Rows {
				assert.Equal(t, domain.NoTopic, row.DominantTopic)
				assert.Empty(t, row.TopicKeywords)
				assert.NotEmpty(t, row.Theme)
			}
			assert.Equal(t, "Bugs & Crashes", result.Rows[0].Theme)
			assert.Equal(t, "Other", result.Rows[4].Theme)
		})
	}
}

func TestEnrichKeywordPanicIsContained(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newMemStore(), PipelineDeps{Keywords: panickingExtractor{}})
	result := p.Enrich(processedRows())

	require.Len(t, result.Summary.Warnings, 1)
	assert.Contains(t, result.Summary.Warnings[0], "keywords")
	assert.Equal(t, []domain.Keyword{}, result.Summary.Keywords["BankA"])
	assert.Equal(t, []domain.Keyword{}, result.Summary.Keywords["BankB"])
	assert.Equal(t, "Bugs & Crashes", result.Rows[0].Theme)
}

func TestEnrichWithoutClassifierUsesDefaultFallback(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newMemStore(), PipelineDeps{})
	p.themes = nil

	result := p.Enrich(processedRows())

	require.Len(t, result.Summary.Warnings, 1)
	assert.Contains(t, result.Summary.Warnings[0], "themes")
	for _, row := range result.Rows {
		assert.Equal(t, themes.DefaultFallback, row.Theme)
	}
	assert.Equal(t, len(result.Rows), result.Summary.ThemeCounts[themes.DefaultFallback])
}

func TestEnrichBankWithoutReviewsGetsEmptyKeywords(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newMemStore(), PipelineDeps{})
	result := p.Enrich(processedRows())

	require.Contains(t, result.Summary.Keywords, "BankB")
	assert.Empty(t, result.Summary.Keywords["BankB"])
	assert.NotEmpty(t, result.Summary.Keywords["BankA"])
}

func TestEnrichThemeIsTotal(t *testing.T) {
	t.Parallel()

	classifier := testThemes(false)
	allowed := map[string]bool{classifier.Fallback(): true}
	for _, name := range classifier.Names() {
		allowed[name] = true
	}

	rows := processedRows()
	rows = append(rows,
		domain.Review{RowID: 100, BankCode: "BankB", Text: "", CleanText: ""},
		domain.Review{RowID: 101, BankCode: "BankB", Text: "???", CleanText: ""},
	)

	p := newTestPipeline(newMemStore(), PipelineDeps{})
	result := p.Enrich(rows)

	require.Len(t, result.Rows, len(rows))
	for _, row := range result.Rows {
		assert.True(t, allowed[row.Theme], "unexpected theme %q", row.Theme)
	}
	assert.Equal(t, domain.NoTopic, result.Rows[len(rows)-1].DominantTopic)
}

func TestThematicRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.processed["empty.csv"] = nil
	p := newTestPipeline(store, PipelineDeps{})

	_, err := p.Thematic("empty.csv", "out.csv", "summary.json")
	assert.ErrorIs(t, err, domain.ErrEmptyTable)

	_, err = p.Thematic("missing.csv", "out.csv", "summary.json")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.NotContains(t, store.enriched, "out.csv")
}

func TestScrapeWritesArtifacts(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	src := stubSource{result: domain.ScrapeResult{
		Reviews: []domain.RawReview{{BankCode: "BankA", Text: "great"}},
		Apps:    []domain.AppInfo{{BankCode: "BankA", Title: "A Mobile"}},
	}}
	p := newTestPipeline(store, PipelineDeps{Source: src})

	result, err := p.Scrape(context.Background(), "raw.csv", "apps.csv")
	require.NoError(t, err)
	assert.Len(t, result.Reviews, 1)
	assert.Len(t, store.raw["raw.csv"], 1)
	assert.Len(t, store.apps["apps.csv"], 1)
}

func TestScrapeWithoutReviewsWritesNothing(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	p := newTestPipeline(store, PipelineDeps{Source: stubSource{}})

	_, err := p.Scrape(context.Background(), "raw.csv", "apps.csv")
	assert.ErrorIs(t, err, domain.ErrEmptyTable)
	assert.NotContains(t, store.raw, "raw.csv")

	_, err = newTestPipeline(store, PipelineDeps{}).Scrape(context.Background(), "raw.csv", "apps.csv")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestSentimentFallsBackToNeutral(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	rating := 1
	store.enriched["enriched.csv"] = []domain.EnrichedReview{
		{Review: domain.Review{RowID: 0, BankCode: "BankA", Text: "terrible app, hate it", Rating: &rating}},
		{Review: domain.Review{RowID: 1, BankCode: "BankA", Text: "unreachable", Rating: &rating}},
	}
	p := newTestPipeline(store, PipelineDeps{Scorer: flakyScorer{failOn: "unreachable"}})

	result, err := p.Sentiment(context.Background(), "enriched.csv", "scored.csv", "scores.csv")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	require.Len(t, store.enriched["scored.csv"], 2)
	assert.Equal(t, domain.SentimentNegative, result.Rows[0].Sentiment.Label)
	assert.Equal(t, domain.Sentiment{Label: domain.SentimentNeutral}, *result.Rows[1].Sentiment)
	require.Len(t, store.scores["scores.csv"], 1)
	assert.Equal(t, 2, store.scores["scores.csv"][0].Count)
	assert.Nil(t, store.enriched["enriched.csv"][0].Sentiment)
}

func TestLoadUsesConfiguredBanks(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.enriched["scored.csv"] = []domain.EnrichedReview{{Review: domain.Review{BankCode: "BankA", Text: "fine"}}}
	repo := &fakeRepository{}
	p := newTestPipeline(store, PipelineDeps{Repository: repo})

	report, err := p.Load(context.Background(), "scored.csv")
	require.NoError(t, err)

	assert.True(t, repo.schema)
	assert.Equal(t, testBanks, repo.banks)
	assert.Equal(t, domain.LoadReport{Banks: 2, Inserted: 1}, report)

	_, err = newTestPipeline(store, PipelineDeps{}).Load(context.Background(), "scored.csv")
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestRunChainsStages(t *testing.T) {
	t.Parallel()

	raw := []domain.RawReview{
		{BankCode: "BankA", Text: "App crashes every time", Rating: "1", Date: "2024-05-01", Username: "a"},
		{BankCode: "BankA", Text: "Transfer is slow", Rating: "2", Date: "2024-05-02", Username: "b"},
		{BankCode: "BankB", Text: "Nice design, easy to use", Rating: "5", Date: "2024-05-03", Username: "c"},
		{BankCode: "BankB", Text: "Nice design, easy to use", Rating: "5", Date: "2024-05-03", Username: "c"},
	}
	store := newMemStore()
	p := newTestPipeline(store, PipelineDeps{
		Source: stubSource{result: domain.ScrapeResult{Reviews: raw}},
		Scorer: sentiment.NewLexicon(),
	})

	paths := config.PathsConfig{
		RawReviews:       "raw.csv",
		AppInfo:          "apps.csv",
		ProcessedReviews: "processed.csv",
		EnrichedReviews:  "enriched.csv",
		AnalysisSummary:  "summary.json",
		SentimentReviews: "scored.csv",
		SentimentSummary: "scores.csv",
	}
	require.NoError(t, p.Run(context.Background(), paths))

	assert.Len(t, store.processed["processed.csv"], 3)
	assert.Len(t, store.enriched["enriched.csv"], 3)
	scored := store.enriched["scored.csv"]
	require.Len(t, scored, 3)
	for _, row := range scored {
		require.NotNil(t, row.Sentiment)
		assert.NotEmpty(t, row.Theme)
	}
	assert.NotEmpty(t, store.scores["scores.csv"])
}

func TestRunStopsOnScrapeFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	p := newTestPipeline(store, PipelineDeps{Source: stubSource{err: errors.New("network down")}})

	err := p.Run(context.Background(), config.PathsConfig{RawReviews: "raw.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape")
	assert.Empty(t, store.processed)
}
