package app

import "ReviewsAnalyzer/internal/config"

// PathOverrides are the -in, -out and -meta flags of a stage command.
// Empty values keep the configured path.
type PathOverrides struct {
	In   string
	Out  string
	Meta string
}

// Apply maps the overrides onto the artifacts the command reads and writes.
// "meta" is the side artifact: app info for scrape, the analysis summary for
// thematic and the aggregate table for sentiment.
func (o PathOverrides) Apply(command string, paths config.PathsConfig) config.PathsConfig {
	switch command {
	case CommandScrape:
		set(&paths.RawReviews, o.Out)
		set(&paths.AppInfo, o.Meta)
	case CommandPreprocess:
		set(&paths.RawReviews, o.In)
		set(&paths.ProcessedReviews, o.Out)
	case CommandThematic:
		set(&paths.ProcessedReviews, o.In)
		set(&paths.EnrichedReviews, o.Out)
		set(&paths.AnalysisSummary, o.Meta)
	case CommandSentiment:
		set(&paths.EnrichedReviews, o.In)
		set(&paths.SentimentReviews, o.Out)
		set(&paths.SentimentSummary, o.Meta)
	case CommandLoad:
		set(&paths.SentimentReviews, o.In)
	}
	return paths
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
