package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
)

const sentimentPath = "/sentiment"

// Client talks to an external inference service for sentiment classification.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.SentimentScorer = (*Client)(nil)

// NewClient creates a reusable HTTP client; timeout defaults to 15s.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type sentimentResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score sends one review text for classification. The service answers with a
// label such as "POSITIVE" and its confidence.
func (c *Client) Score(ctx context.Context, text string) (domain.Sentiment, error) {
	payload := map[string]any{
		"text": text,
	}

	var resp sentimentResponse
	if err := c.post(ctx, sentimentPath, payload, &resp); err != nil {
		return domain.Sentiment{}, err
	}

	label, err := parseLabel(resp.Label)
	if err != nil {
		return domain.Sentiment{}, err
	}
	return domain.Sentiment{Label: label, Score: resp.Score}, nil
}

func parseLabel(raw string) (domain.SentimentLabel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "pos", "label_1":
		return domain.SentimentPositive, nil
	case "negative", "neg", "label_0":
		return domain.SentimentNegative, nil
	case "neutral", "neu":
		return domain.SentimentNeutral, nil
	default:
		return "", fmt.Errorf("unknown sentiment label %q", raw)
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
