// Package sources holds the HTTP clients for the two upstream APIs: the
// article search and the bibliographic catalog.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ehonhub/pkg/models"
)

// Google Books API base (public)
const googleBooksBase = "https://www.googleapis.com"

// GoogleBooksClient looks volumes up by ISBN or title. It implements
// validate.Catalog.
type GoogleBooksClient struct {
	BaseURL string
	APIKey  string
	// TitleResults caps how many volumes a title lookup returns.
	TitleResults int
	Client       *http.Client
	Limiter      *rate.Limiter
}

// NewGoogleBooksClient creates a client. rps <= 0 disables rate limiting.
func NewGoogleBooksClient(baseURL, apiKey string, rps float64) *GoogleBooksClient {
	if baseURL == "" {
		baseURL = googleBooksBase
	}
	return &GoogleBooksClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		TitleResults: 3,
		Client:       &http.Client{Timeout: 10 * time.Second},
		Limiter:      newLimiter(rps),
	}
}

type gbResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Categories          []string `json:"categories"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				SmallThumbnail string `json:"smallThumbnail"`
				Thumbnail      string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// LookupByISBN returns the first volume for isbn, or nil when there is none.
func (c *GoogleBooksClient) LookupByISBN(ctx context.Context, isbn string) (*models.VolumeMeta, error) {
	metas, err := c.volumes(ctx, "isbn:"+isbn, "", 1)
	if err != nil || len(metas) == 0 {
		return nil, err
	}
	if metas[0].ISBN13 == "" {
		metas[0].ISBN13 = isbn
	}
	return &metas[0], nil
}

// LookupByTitle returns up to TitleResults volumes whose title matches.
func (c *GoogleBooksClient) LookupByTitle(ctx context.Context, title, lang string) ([]models.VolumeMeta, error) {
	n := c.TitleResults
	if n <= 0 {
		n = 3
	}
	return c.volumes(ctx, "intitle:"+title, lang, n)
}

// Thumbnail returns an https thumbnail for the best title match, or "".
func (c *GoogleBooksClient) Thumbnail(ctx context.Context, title string) (string, error) {
	metas, err := c.volumes(ctx, "intitle:"+title, "", 1)
	if err != nil || len(metas) == 0 {
		return "", err
	}
	return metas[0].Thumbnail, nil
}

func (c *GoogleBooksClient) volumes(ctx context.Context, query, lang string, limit int) ([]models.VolumeMeta, error) {
	if err := wait(ctx, c.Limiter); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.BaseURL + "/books/v1/volumes")
	if err != nil {
		return nil, fmt.Errorf("googlebooks: base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("maxResults", strconv.Itoa(limit))
	if lang != "" {
		q.Set("langRestrict", lang)
	}
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("googlebooks: build request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("googlebooks: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("googlebooks: status %d: %s", resp.StatusCode, string(body))
	}

	var gb gbResponse
	if err := json.NewDecoder(resp.Body).Decode(&gb); err != nil {
		return nil, fmt.Errorf("googlebooks: decode: %w", err)
	}

	out := make([]models.VolumeMeta, 0, len(gb.Items))
	for _, it := range gb.Items {
		vi := it.VolumeInfo
		m := models.VolumeMeta{
			Title:      strings.TrimSpace(vi.Title),
			Categories: vi.Categories,
			Thumbnail:  httpsURL(firstNonEmpty(vi.ImageLinks.Thumbnail, vi.ImageLinks.SmallThumbnail)),
		}
		for _, id := range vi.IndustryIdentifiers {
			if id.Type == "ISBN_13" {
				m.ISBN13 = id.Identifier
				break
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func httpsURL(s string) string {
	if strings.HasPrefix(s, "http://") {
		return "https://" + strings.TrimPrefix(s, "http://")
	}
	return s
}
