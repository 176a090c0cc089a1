package domain

// NoTopic marks rows that did not receive a topic assignment.
const NoTopic = -1

// Keyword is a ranked n-gram for a bank corpus.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// TopicAssignment is the dominant topic chosen for a single row.
type TopicAssignment struct {
	TopicID  int
	Weight   float64
	Keywords []string
}

// SentimentLabel enumerates polarity labels.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Sentiment is the output of a sentiment collaborator for one text.
type Sentiment struct {
	Label SentimentLabel
	Score float64
}

// AnalysisSummary is the bank-level metadata written beside the enriched table.
type AnalysisSummary struct {
	Keywords    map[string][]Keyword `json:"keywords"`
	Topics      map[int][]string     `json:"topics"`
	ThemeCounts map[string]int       `json:"theme_counts"`
	TopicCounts map[int]int          `json:"topic_counts"`
	Rows        int                  `json:"rows"`
	Warnings    []string             `json:"warnings"`
}

// TopicModel is a fitted topic model over a corpus keyed by row id.
type TopicModel struct {
	// Topics maps topic id to its top words, highest weight first.
	Topics      map[int][]string
	Assignments map[int]TopicAssignment
}

// SentimentAggregate is the mean sentiment score for one (bank, rating) cell.
type SentimentAggregate struct {
	BankCode  string
	Rating    *int
	MeanScore float64
	Count     int
}

// LoadReport counts what the relational sink did with a batch.
type LoadReport struct {
	Banks       int
	Inserted    int
	Duplicates  int
	UnknownBank int
}
