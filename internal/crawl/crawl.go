// Package crawl is the client for the headless-browser service that turns a
// URL into markdown plus page metadata.
package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pkms/content-pipeline/internal/apperrors"
)

const (
	connectTimeout = 10 * time.Second
	readTimeout    = 60 * time.Second
)

// Result is the crawl-service response: raw markdown plus page metadata.
type Result struct {
	Markdown     string `json:"markdown"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	CanonicalURL string `json:"canonical_url"`
}

// Client calls the crawl service behind a circuit breaker, so a dead browser
// fleet fails fast instead of burning the whole processing deadline on every
// retry.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a crawl-service client for the given base URL.
func NewClient(baseURL string) *Client {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: readTimeout,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "crawl-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: readTimeout},
		breaker: breaker,
	}
}

// Crawl fetches the page as markdown with metadata. An empty markdown body
// counts as a failed crawl.
func (c *Client) Crawl(ctx context.Context, url string) (*Result, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doCrawl(ctx, url)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.NewDependency("crawl service circuit open", err)
		}
		return nil, err
	}
	return out.(*Result), nil
}

func (c *Client) doCrawl(ctx context.Context, url string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return nil, fmt.Errorf("failed to encode crawl request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crawl", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build crawl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewDependency("crawl request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewDependency("crawl response read failed", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.NewDependency(fmt.Sprintf("crawl service returned %d for %s", resp.StatusCode, url), nil)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.NewDependency("crawl service returned malformed response", err)
	}
	if result.Markdown == "" {
		return nil, apperrors.NewDependency("crawl service returned empty markdown", nil)
	}
	return &result, nil
}
