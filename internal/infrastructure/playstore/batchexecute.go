package playstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ReviewsAnalyzer/internal/domain"
)

const (
	reviewsRPC    = "UsvDTd"
	sortNewest    = 2
	xssiPrefix    = ")]}'"
	maxPageSize   = 200
	rpcEnvelopeID = "generic"
)

// reviewsPayload builds the form body of a batchexecute reviews call.
// token is empty for the first page.
func reviewsPayload(appID string, count int, token string) (string, error) {
	tok := "null"
	if token != "" {
		b, err := json.Marshal(token)
		if err != nil {
			return "", fmt.Errorf("encode token: %w", err)
		}
		tok = string(b)
	}

	app, err := json.Marshal(appID)
	if err != nil {
		return "", fmt.Errorf("encode app id: %w", err)
	}

	inner := fmt.Sprintf(`[null,null,[2,%d,[%d,null,%s],null,[]],[%s,7]]`, sortNewest, count, tok, app)
	outer, err := json.Marshal([][][]any{{{reviewsRPC, inner, nil, rpcEnvelopeID}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	return url.Values{"f.req": {string(outer)}}.Encode(), nil
}

// reviewsPage is one decoded batchexecute response.
type reviewsPage struct {
	reviews []domain.RawReview
	token   string
}

// parseReviewsResponse strips the anti-XSSI prefix, unwraps the RPC envelope and
// decodes the embedded review list and continuation token.
func parseReviewsResponse(body []byte) (reviewsPage, error) {
	body = bytes.TrimSpace(body)
	body = bytes.TrimPrefix(body, []byte(xssiPrefix))

	var envelope []any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return reviewsPage{}, fmt.Errorf("decode envelope: %w", err)
	}

	payload, ok := dig(envelope, 0, 2).(string)
	if !ok {
		// an envelope without payload means the app has no (more) reviews
		return reviewsPage{}, nil
	}

	var data []any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return reviewsPage{}, fmt.Errorf("decode payload: %w", err)
	}

	var page reviewsPage
	if items, ok := dig(data, 0).([]any); ok {
		for _, item := range items {
			if r, ok := parseReview(item); ok {
				page.reviews = append(page.reviews, r)
			}
		}
	}
	if tok, ok := dig(data, -2, -1).(string); ok {
		page.token = tok
	} else if tok, ok := dig(data, -1, -1).(string); ok {
		page.token = tok
	}
	return page, nil
}

func parseReview(item any) (domain.RawReview, bool) {
	id, _ := dig(item, 0).(string)
	if id == "" {
		return domain.RawReview{}, false
	}

	r := domain.RawReview{
		ReviewID:     id,
		Username:     str(dig(item, 1, 0)),
		Text:         str(dig(item, 4)),
		Rating:       num(dig(item, 2)),
		ThumbsUp:     num(dig(item, 6)),
		ReplyContent: str(dig(item, 7, 1)),
		AppVersion:   str(dig(item, 10)),
		Source:       domain.SourceGooglePlay,
	}
	if secs, ok := dig(item, 5, 0).(float64); ok {
		r.Date = time.Unix(int64(secs), 0).UTC().Format(time.RFC3339)
	}
	return r, true
}

// dig walks nested JSON arrays; negative indexes count from the end.
// It returns nil as soon as the path leaves the document.
func dig(v any, path ...int) any {
	for _, idx := range path {
		arr, ok := v.([]any)
		if !ok {
			return nil
		}
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return nil
		}
		v = arr[idx]
	}
	return v
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func num(v any) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", int64(f))
}
