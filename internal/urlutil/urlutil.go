package urlutil

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkms/content-pipeline/internal/logger"
)

// trackingParams are query parameters that never affect content identity.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"ref":          {},
}

// resolveTimeout caps redirect resolution.
const resolveTimeout = 10 * time.Second

var httpClient = &http.Client{Timeout: resolveTimeout}

// Canonicalize normalises a URL without touching the network: lowercase host,
// trailing slash stripped from the path, fragment dropped, tracking
// parameters removed, query re-encoded. On any parse failure the input is
// returned unchanged. Canonicalize is idempotent.
func Canonicalize(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return raw
	}

	query := parsed.Query()
	for param := range query {
		if _, tracking := trackingParams[param]; tracking {
			query.Del(param)
		}
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""
	parsed.RawFragment = ""

	return parsed.String()
}

// CleanURL resolves redirects (capped at 10s) and canonicalises the result.
// On any failure the original URL is returned so callers always have a usable
// dedup key.
func CleanURL(ctx context.Context, raw string) string {
	resolved := resolveRedirects(ctx, raw)
	return Canonicalize(resolved)
}

func resolveRedirects(ctx context.Context, raw string) string {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return raw
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Logger.Debug().Err(err).Str("url", raw).Msg("redirect resolution failed")
		return raw
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return raw
}
