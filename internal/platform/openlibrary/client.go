// Package openlibrary looks up book metadata by ISBN on openlibrary.org.
package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when Open Library has no edition for an ISBN.
var ErrNotFound = errors.New("isbn not found on open library")

const DefaultBaseURL = "https://openlibrary.org"

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

type Option func(*Client)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBackoff sets the first retry delay; later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func NewClient(userAgent string, rps int, maxRetries int, opts ...Option) *Client {
	if rps <= 0 {
		rps = 1
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent:  userAgent,
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Details is the subset of an edition used to prefill a catalog record.
type Details struct {
	ISBN      string
	Title     string
	Author    string
	Genre     string
	CoverPath string
}

// bookData matches api/books?jscmd=data
type bookData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Cover    struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
	Authors []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"subjects"`
}

// NormalizeISBN strips hyphens and spaces.
func NormalizeISBN(isbn string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
}

// LookupISBN fetches the edition for isbn. The first listed author becomes
// Author, the first subject Genre, and the largest cover URL CoverPath.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (Details, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return Details{}, fmt.Errorf("lookup isbn: empty isbn")
	}
	key := "ISBN:" + isbn
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json", c.baseURL, url.QueryEscape(key))

	var res map[string]bookData
	if err := c.get(ctx, u, &res); err != nil {
		return Details{}, fmt.Errorf("lookup isbn %s: %w", isbn, err)
	}
	data, ok := res[key]
	if !ok || data.Title == "" {
		return Details{}, ErrNotFound
	}

	d := Details{ISBN: isbn, Title: data.Title}
	if data.Subtitle != "" {
		d.Title = data.Title + ": " + data.Subtitle
	}
	if len(data.Authors) > 0 {
		d.Author = data.Authors[0].Name
	}
	if len(data.Subjects) > 0 {
		d.Genre = data.Subjects[0].Name
	}
	switch {
	case data.Cover.Large != "":
		d.CoverPath = data.Cover.Large
	case data.Cover.Medium != "":
		d.CoverPath = data.Cover.Medium
	default:
		d.CoverPath = data.Cover.Small
	}
	return d, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// 1x, 2x, 4x...
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.do(ctx, url, target)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, url string, target any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
	}
	if err := jsoniter.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}
