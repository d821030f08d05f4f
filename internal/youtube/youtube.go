// Package youtube retrieves video transcripts and snippet metadata. The
// transcript is the concatenation of caption segments in document order.
package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkms/content-pipeline/internal/apperrors"
)

const (
	defaultTranscriptURL = "https://www.youtube.com/api/timedtext"
	defaultDataAPIURL    = "https://www.googleapis.com/youtube/v3"

	requestTimeout = 30 * time.Second
)

// videoIDPatterns cover watch, short-link, embed and shorts URL shapes.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`),
}

// ExtractVideoID pulls the 11-character video identifier out of a YouTube
// URL.
func ExtractVideoID(rawURL string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", apperrors.NewInvalidInput(fmt.Sprintf("no video id in url %q", rawURL))
}

// WatchURL returns the canonical watch?v=<id> form.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Metadata is the snippet subset the pipeline keeps.
type Metadata struct {
	Title       string
	Description string
	ImageURL    string
}

// Client fetches transcripts and metadata over HTTP.
type Client struct {
	apiKey        string
	transcriptURL string
	dataAPIURL    string
	http          *http.Client
}

// NewClient creates a YouTube client using the Data API key for metadata.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:        apiKey,
		transcriptURL: defaultTranscriptURL,
		dataAPIURL:    defaultDataAPIURL,
		http:          &http.Client{Timeout: requestTimeout},
	}
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// Transcript fetches the caption track and concatenates its segments in
// document order, newline separated.
func (c *Client) Transcript(ctx context.Context, videoID string) (string, error) {
	endpoint := fmt.Sprintf("%s?lang=en&v=%s", c.transcriptURL, url.QueryEscape(videoID))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var parsed timedText
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.NewDependency("transcript response is not valid xml", err)
	}
	if len(parsed.Texts) == 0 {
		return "", apperrors.NewDependency(fmt.Sprintf("no transcript available for video %s", videoID), nil)
	}

	segments := make([]string, 0, len(parsed.Texts))
	for _, t := range parsed.Texts {
		if s := strings.TrimSpace(html.UnescapeString(t.Value)); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "\n"), nil
}

// VideoMetadata fetches the snippet for a video via the Data API.
func (c *Client) VideoMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	endpoint := fmt.Sprintf("%s/videos?part=snippet&id=%s&key=%s",
		c.dataAPIURL, url.QueryEscape(videoID), url.QueryEscape(c.apiKey))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Items []struct {
			Snippet struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Thumbnails  map[string]struct {
					URL string `json:"url"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewDependency("video metadata response is malformed", err)
	}
	if len(parsed.Items) == 0 {
		return nil, apperrors.NewDependency(fmt.Sprintf("no metadata for video %s", videoID), nil)
	}

	snippet := parsed.Items[0].Snippet
	meta := &Metadata{Title: snippet.Title, Description: snippet.Description}
	for _, quality := range []string{"standard", "high", "medium", "default"} {
		if thumb, ok := snippet.Thumbnails[quality]; ok && thumb.URL != "" {
			meta.ImageURL = thumb.URL
			break
		}
	}
	return meta, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewDependency("youtube request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewDependency("youtube response read failed", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.NewDependency(fmt.Sprintf("youtube returned %d", resp.StatusCode), nil)
	}
	return body, nil
}
