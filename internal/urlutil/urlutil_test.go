package urlutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases host",
			in:   "https://Example.COM/a",
			want: "https://example.com/a",
		},
		{
			name: "strips trailing slash",
			in:   "https://example.com/a/",
			want: "https://example.com/a",
		},
		{
			// All trailing slashes go at once; stripping only one would
			// make canonicalization non-idempotent.
			name: "strips repeated trailing slashes",
			in:   "https://example.com/a//",
			want: "https://example.com/a",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/a#section-2",
			want: "https://example.com/a",
		},
		{
			name: "removes tracking params and keeps the rest",
			in:   "https://example.com/a?utm_source=x&utm_medium=y&utm_campaign=z&utm_term=t&utm_content=c&ref=r&id=42",
			want: "https://example.com/a?id=42",
		},
		{
			name: "preserves youtube video id",
			in:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "returns garbage input unchanged",
			in:   "not a url",
			want: "not a url",
		},
		{
			name: "empty input unchanged",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	urls := []string{
		"https://Example.COM/Path/?utm_source=tw&id=1#frag",
		"https://example.com/",
		"https://example.com/a?b=2&a=1",
		"http://EXAMPLE.com/x/y/z/",
		"https://example.com/a//",
	}
	for _, u := range urls {
		once := Canonicalize(u)
		assert.Equal(t, once, Canonicalize(once), "canonicalize must be idempotent for %q", u)
	}
}

func TestCleanURLFollowsRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/short" {
			http.Redirect(w, r, srv.URL+"/Long/?utm_source=feed", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	got := CleanURL(context.Background(), srv.URL+"/short")
	assert.Equal(t, fmt.Sprintf("%s/Long", srv.URL), got)
}

func TestCleanURLReturnsOriginalOnFailure(t *testing.T) {
	original := "https://127.0.0.1:1/unreachable"
	got := CleanURL(context.Background(), original)
	assert.Equal(t, original, got)
}
