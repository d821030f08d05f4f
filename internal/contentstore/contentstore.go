// Package contentstore is the RPC client for the relational metadata sink.
// Writes are insert-on-new, skip-on-existing; the URL is the identity key.
package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/model"
)

const requestTimeout = 30 * time.Second

// Client talks JSON over HTTP to the content store.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a content-store client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// InsertContent is the write payload for POST /contents.
type InsertContent struct {
	URL         string            `json:"url"`
	ContentType model.ContentType `json:"content_type"`
	Title       string            `json:"title,omitempty"`
	RawContent  string            `json:"raw_content,omitempty"`
	Description string            `json:"description,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Metadata    *InsertMetadata   `json:"metadata,omitempty"`
	ContentID   string            `json:"content_id,omitempty"`
}

// InsertMetadata carries the secondary attributes of a record.
type InsertMetadata struct {
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// CheckURL reports whether a record with this URL already exists.
func (c *Client) CheckURL(ctx context.Context, url string) (bool, error) {
	body, err := c.post(ctx, "/contents/check_url", map[string]string{"url": url})
	if err != nil {
		return false, err
	}

	var result struct {
		Exists bool `json:"exists"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return false, apperrors.NewDependency("content store returned malformed check_url response", err)
	}
	return result.Exists, nil
}

// Insert writes a full content record. An HTTP 409 maps to ALREADY_EXISTS so
// redeliveries stay idempotent.
func (c *Client) Insert(ctx context.Context, content *model.Content) error {
	payload := InsertContent{
		URL:         content.URL,
		ContentType: content.ContentType,
		Title:       content.Title,
		RawContent:  content.RawContent,
		Description: content.Description,
		ImageURL:    content.ImageURL,
		Summary:     content.Summary,
		ContentID:   content.ContentID,
	}
	if content.CanonicalURL != "" || len(content.Keywords) > 0 {
		payload.Metadata = &InsertMetadata{
			CanonicalURL: content.CanonicalURL,
			Keywords:     content.Keywords,
		}
	}

	_, err := c.post(ctx, "/contents", payload)
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewDependency("content store request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewDependency("content store response read failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, apperrors.NewAlreadyExists("content already exists")
	case resp.StatusCode >= 400:
		return nil, apperrors.NewDependency(
			fmt.Sprintf("content store returned %d for %s: %s", resp.StatusCode, path, truncate(string(body), 200)), nil)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
