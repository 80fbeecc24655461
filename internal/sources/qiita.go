package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"ehonhub/internal/planner"
	"ehonhub/pkg/models"
)

// Qiita API base (public)
const qiitaBase = "https://qiita.com"

const maxQiitaPerPage = 100

// QiitaClient searches Qiita items. It implements planner.Searcher.
type QiitaClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewQiitaClient creates a client. rps <= 0 disables rate limiting.
func NewQiitaClient(baseURL, token string, rps float64) *QiitaClient {
	if baseURL == "" {
		baseURL = qiitaBase
	}
	return &QiitaClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 12 * time.Second},
		Limiter: newLimiter(rps),
	}
}

type qiitaItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Body        string `json:"body"`
	LikesCount  int    `json:"likes_count"`
	StocksCount int    `json:"stocks_count"`
}

// Search runs one query. Any non-200 status is an error; the planner decides
// what that means for the build.
func (c *QiitaClient) Search(ctx context.Context, query string, opts planner.SearchOptions) ([]models.RawArticle, error) {
	if err := wait(ctx, c.Limiter); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.BaseURL + "/api/v2/items")
	if err != nil {
		return nil, fmt.Errorf("qiita: base url: %w", err)
	}
	limit := opts.Limit
	if limit <= 0 || limit > maxQiitaPerPage {
		limit = maxQiitaPerPage
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("qiita: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qiita: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("qiita: status %d: %s", resp.StatusCode, string(body))
	}

	var raw []qiitaItem
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("qiita: decode: %w", err)
	}

	out := make([]models.RawArticle, 0, len(raw))
	for _, it := range raw {
		if it.ID == "" {
			continue
		}
		a := models.RawArticle{
			ID:         it.ID,
			Title:      it.Title,
			URL:        it.URL,
			Body:       it.Body,
			LikeCount:  it.LikesCount,
			StockCount: it.StocksCount,
		}
		if !matchesLanguage(a, opts.Language) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// matchesLanguage applies the language restriction client side; the search
// API has no language filter. Only "ja" is understood, anything else passes.
func matchesLanguage(a models.RawArticle, lang string) bool {
	if lang != "ja" {
		return true
	}
	return hasJapanese(a.Title) || hasJapanese(a.Body)
}

func hasJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
