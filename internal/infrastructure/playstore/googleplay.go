package playstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/scanner"
	"ReviewsAnalyzer/pkg/retry"
)

const (
	defaultBaseURL = "https://play.google.com"
	detailsPath    = "/store/apps/details"
	batchPath      = "/_/PlayStoreUi/data/batchexecute"
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) ReviewsAnalyzer/1.0"
)

var (
	leadingNumber = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	ratedLabel    = regexp.MustCompile(`Rated (\d+(?:\.\d+)?) stars`)
	countExpr     = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*([KMB]?)`)
)

// GooglePlayScanner reads app metadata from the details page and reviews from
// the store's batchexecute endpoint.
type GooglePlayScanner struct {
	client   *http.Client
	baseURL  string
	pageSize int
}

var _ scanner.Scanner = (*GooglePlayScanner)(nil)

// NewGooglePlayScanner wires an HTTP client; pageSize defaults to 200.
func NewGooglePlayScanner(client *http.Client, baseURL string) *GooglePlayScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GooglePlayScanner{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), pageSize: maxPageSize}
}

// Name identifies the strategy inside the registry.
func (g *GooglePlayScanner) Name() string {
	return "googleplay"
}

// AppInfo scrapes title, score, rating count and installs from the details page.
func (g *GooglePlayScanner) AppInfo(ctx context.Context, req scanner.Request) (domain.AppInfo, error) {
	detailsURL, err := g.detailsURL(req)
	if err != nil {
		return domain.AppInfo{}, err
	}

	doc, err := g.fetchDocument(ctx, detailsURL)
	if err != nil {
		return domain.AppInfo{}, fmt.Errorf("app %s: %w", req.Bank.AppID, err)
	}

	info := parseDetails(doc)
	info.BankCode = req.Bank.Code
	info.BankName = req.Bank.Name
	info.AppID = req.Bank.AppID
	return info, nil
}

// Reviews pages through the newest reviews until req.Count rows are collected
// or the store stops making progress: no continuation token, a repeated
// token, or a page without unseen reviews.
func (g *GooglePlayScanner) Reviews(ctx context.Context, req scanner.Request) ([]domain.RawReview, error) {
	if req.Bank.AppID == "" {
		return nil, fmt.Errorf("bank %s has no app id", req.Bank.Code)
	}

	results := make([]domain.RawReview, 0, req.Count)
	seen := map[string]struct{}{}
	usedTokens := map[string]struct{}{}
	token := ""

	for len(results) < req.Count {
		size := min(g.pageSize, req.Count-len(results))
		page, err := g.fetchReviews(ctx, req, size, token)
		if err != nil {
			return nil, fmt.Errorf("app %s: %w", req.Bank.AppID, err)
		}

		added := 0
		for _, r := range page.reviews {
			if _, ok := seen[r.ReviewID]; ok {
				continue
			}
			seen[r.ReviewID] = struct{}{}
			results = append(results, r)
			added++
		}

		if page.token == "" || added == 0 {
			break
		}
		if _, ok := usedTokens[page.token]; ok {
			break
		}
		usedTokens[page.token] = struct{}{}
		token = page.token
	}

	if len(results) > req.Count {
		results = results[:req.Count]
	}
	return results, nil
}

func (g *GooglePlayScanner) fetchReviews(ctx context.Context, req scanner.Request, count int, token string) (reviewsPage, error) {
	payload, err := reviewsPayload(req.Bank.AppID, count, token)
	if err != nil {
		return reviewsPage{}, err
	}

	endpoint, err := url.Parse(g.baseURL + batchPath)
	if err != nil {
		return reviewsPage{}, fmt.Errorf("invalid base url %s: %w", g.baseURL, err)
	}
	query := endpoint.Query()
	query.Set("hl", req.Lang)
	query.Set("gl", req.Country)
	endpoint.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(payload))
	if err != nil {
		return reviewsPage{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return reviewsPage{}, fmt.Errorf("request reviews: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return reviewsPage{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return reviewsPage{}, fmt.Errorf("read reviews: %w", err)
	}
	return parseReviewsResponse(body)
}

func (g *GooglePlayScanner) detailsURL(req scanner.Request) (string, error) {
	parsed, err := url.Parse(g.baseURL + detailsPath)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", g.baseURL, err)
	}
	query := parsed.Query()
	query.Set("id", req.Bank.AppID)
	query.Set("hl", req.Lang)
	query.Set("gl", req.Country)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (g *GooglePlayScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// statusError turns non-200 answers into errors; client errors other than
// throttling are not worth retrying.
func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	err := fmt.Errorf("google play returned %s", resp.Status)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

func parseDetails(doc *goquery.Document) domain.AppInfo {
	var info domain.AppInfo

	info.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	if info.Title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			info.Title = strings.TrimSpace(strings.TrimSuffix(og, " - Apps on Google Play"))
		}
	}

	doc.Find("div.wVqUob").Each(func(_ int, stat *goquery.Selection) {
		value := strings.TrimSpace(stat.Find("div.ClM7O").First().Text())
		label := strings.ToLower(strings.TrimSpace(stat.Find("div.g1rdde").First().Text()))
		switch {
		case strings.Contains(label, "review"):
			if m := leadingNumber.FindString(value); m != "" && info.Score == 0 {
				info.Score, _ = strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
			}
			info.Ratings = parseCount(label)
		case strings.Contains(label, "download"):
			info.Installs = value
		}
	})

	if info.Score == 0 {
		if aria, ok := doc.Find(`[aria-label^="Rated "]`).First().Attr("aria-label"); ok {
			if m := ratedLabel.FindStringSubmatch(aria); len(m) == 2 {
				info.Score, _ = strconv.ParseFloat(m[1], 64)
			}
		}
	}
	return info
}

// parseCount reads short counts such as "12.3K reviews" or "1M+".
func parseCount(text string) int64 {
	m := countExpr.FindStringSubmatch(text)
	if len(m) != 3 {
		return 0
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		n *= 1e3
	case "M":
		n *= 1e6
	case "B":
		n *= 1e9
	}
	return int64(n)
}
