package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewsAnalyzer/internal/domain"
)

func TestLexiconScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want domain.SentimentLabel
	}{
		{"Great app, very easy to use!", domain.SentimentPositive},
		{"App keeps CRASHING on login!!", domain.SentimentNegative},
		{"not good at all", domain.SentimentNegative},
		{"it doesn't crash anymore", domain.SentimentPositive},
		{"I opened the app", domain.SentimentNeutral},
		{"", domain.SentimentNeutral},
	}

	s := NewLexicon()
	for _, tc := range cases {
		got, err := s.Score(context.Background(), tc.text)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Label, tc.text)
		assert.GreaterOrEqual(t, got.Score, -1.0)
		assert.LessOrEqual(t, got.Score, 1.0)
	}
}

func TestCompound(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.6249, Compound("great"), 1e-4)
	assert.Less(t, Compound("very bad"), Compound("bad"))
	assert.Equal(t, 0.0, Compound("plain words only"))
	// negation reaches three tokens back but no further
	assert.Less(t, Compound("not a very good"), 0.0)
	assert.Greater(t, Compound("not one two three good"), 0.0)
}

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.SentimentPositive, Label(0.05))
	assert.Equal(t, domain.SentimentNeutral, Label(0.049))
	assert.Equal(t, domain.SentimentNeutral, Label(-0.049))
	assert.Equal(t, domain.SentimentNegative, Label(-0.05))
}

func TestParseLexicon(t *testing.T) {
	t.Parallel()

	m := parseLexicon("# header\nloving\t2\nlove\t3\nbroken line\nbad\tx\n")
	assert.Equal(t, map[string]float64{"love": 2}, m)
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	four, five := 4, 5
	row := func(bank string, rating *int, score float64) domain.EnrichedReview {
		r := domain.EnrichedReview{Review: domain.Review{BankCode: bank, Rating: rating}}
		r.Sentiment = &domain.Sentiment{Score: score}
		return r
	}

	rows := []domain.EnrichedReview{
		row("B", &five, 0.5),
		row("A", &five, 0.2),
		row("A", &five, 0.4),
		row("A", nil, -0.3),
		row("A", &four, -0.1),
		{Review: domain.Review{BankCode: "A", Rating: &four}},
	}

	got := Aggregate(rows)
	require.Len(t, got, 4)

	assert.Equal(t, "A", got[0].BankCode)
	assert.Equal(t, 4, *got[0].Rating)
	assert.Equal(t, 1, got[0].Count)

	assert.Equal(t, 5, *got[1].Rating)
	assert.InDelta(t, 0.3, got[1].MeanScore, 1e-9)
	assert.Equal(t, 2, got[1].Count)

	assert.Nil(t, got[2].Rating)
	assert.Equal(t, "B", got[3].BankCode)
}
