package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(reviewsPerBankEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Banks, 3)
	assert.Equal(t, "CBE", cfg.Banks[0].Code)
	assert.Equal(t, 410, cfg.Scraping.ReviewsPerBank)
	assert.Equal(t, 5*time.Second, cfg.Scraping.RetryDelay)
	assert.Equal(t, "Other", cfg.Themes.Fallback)
	assert.Equal(t, "Bugs & Crashes", cfg.Themes.Definitions[0].Name)
	assert.False(t, cfg.Themes.TopicFallback())
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
banks:
  - code: CBE
    name: Commercial Bank of Ethiopia
    appId: com.example.cbe
scraping:
  reviewsPerBank: 50
  bankPause: 1s
analysis:
  numTopics: 3
paths:
  rawReviews: /tmp/raw.csv
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv("CBE_APP_ID", "com.override.cbe")
	t.Setenv(maxRetriesEnv, "7")
	t.Setenv(reviewsPerBankEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Banks, 1)
	assert.Equal(t, "com.override.cbe", cfg.Banks[0].AppID)
	assert.Equal(t, 50, cfg.Scraping.ReviewsPerBank)
	assert.Equal(t, 7, cfg.Scraping.MaxRetries)
	assert.Equal(t, time.Second, cfg.Scraping.BankPause)
	assert.Equal(t, 3, cfg.Analysis.NumTopics)
	assert.Equal(t, 15, cfg.Analysis.KeywordTopN)
	assert.Equal(t, "/tmp/raw.csv", cfg.Paths.RawReviews)
	assert.Equal(t, "data/processed/reviews_processed.csv", cfg.Paths.ProcessedReviews)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsUnusableFile(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("banks: [:::"), 0o600))

	for _, path := range []string{broken, filepath.Join(dir, "missing.yaml")} {
		t.Setenv(configPathEnv, path)

		_, err := Load()
		require.Error(t, err, path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), path)
	}
}

func TestLoadTopicFallbackToggle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(reviewsPerBankEnv, "")

	for _, tc := range []struct {
		yaml string
		want bool
	}{
		{"themes:\n  useTopicKeywords: true\n", true},
		{"themes:\n  useTopicKeywords: false\n", false},
		{"themes:\n  fallback: Misc\n", false},
	} {
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))
		t.Setenv(configPathEnv, path)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, tc.want, cfg.Themes.TopicFallback(), tc.yaml)
	}
}

func TestMergeConfigCanDisableTopicFallback(t *testing.T) {
	t.Parallel()

	on, off := true, false
	base := defaultConfig()
	base.Themes.UseTopicKeywords = &on

	merged := mergeConfig(base, Config{Themes: ThemesConfig{UseTopicKeywords: &off}})
	assert.False(t, merged.Themes.TopicFallback())
	assert.True(t, base.Themes.TopicFallback())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no banks", func(c *Config) { c.Banks = nil }},
		{"missing app id", func(c *Config) { c.Banks[0].AppID = "" }},
		{"duplicate code", func(c *Config) { c.Banks[1].Code = c.Banks[0].Code }},
		{"empty path", func(c *Config) { c.Paths.EnrichedReviews = "" }},
		{"zero topics", func(c *Config) { c.Analysis.NumTopics = 0 }},
		{"theme without keywords", func(c *Config) { c.Themes.Definitions[0].Keywords = nil }},
		{"remote without endpoint", func(c *Config) { c.Sentiment.Method = "remote" }},
		{"unknown sentiment method", func(c *Config) { c.Sentiment.Method = "oracle" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestBankNames(t *testing.T) {
	t.Parallel()

	names := defaultConfig().BankNames()
	assert.Equal(t, "Dashen Bank", names["Dashen"])
	assert.Equal(t, "Bank of Abyssinia", names["BOA"])
}

func TestLoadEnglishOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cleaning:\n  englishOnly: true\n"), 0o600))

	t.Setenv(configPathEnv, "")
	t.Setenv(englishOnlyEnv, "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Cleaning.EnglishOnly)

	t.Setenv(configPathEnv, path)
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Cleaning.EnglishOnly)

	t.Setenv(englishOnlyEnv, "false")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.Cleaning.EnglishOnly)

	t.Setenv(englishOnlyEnv, "maybe")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Cleaning.EnglishOnly)
}
