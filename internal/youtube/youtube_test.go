package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "watch url", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "watch url with params", url: "https://www.youtube.com/watch?t=10&v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "short link", url: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "embed", url: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "shorts", url: "https://www.youtube.com/shorts/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "not a video url", url: "https://example.com/a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))
}

func TestTranscriptConcatenatesSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.0">Never gonna give you up</text>
  <text start="2.0" dur="2.0">Never gonna let you down</text>
  <text start="4.0" dur="2.0">Never gonna run around &amp;amp; desert you</text>
</transcript>`))
	}))
	defer srv.Close()

	client := NewClient("key")
	client.transcriptURL = srv.URL

	transcript, err := client.Transcript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never gonna give you up\nNever gonna let you down\nNever gonna run around & desert you", transcript)
}

func TestTranscriptEmptyTrackIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<transcript></transcript>`))
	}))
	defer srv.Close()

	client := NewClient("key")
	client.transcriptURL = srv.URL

	_, err := client.Transcript(context.Background(), "dQw4w9WgXcQ")
	assert.Error(t, err)
}

func TestVideoMetadataPrefersStandardThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "snippet", r.URL.Query().Get("part"))
		_, _ = w.Write([]byte(`{
  "items": [{
    "snippet": {
      "title": "A Video",
      "description": "About things",
      "thumbnails": {
        "default": {"url": "https://i.ytimg.com/default.jpg"},
        "standard": {"url": "https://i.ytimg.com/standard.jpg"}
      }
    }
  }]
}`))
	}))
	defer srv.Close()

	client := NewClient("key")
	client.dataAPIURL = srv.URL

	meta, err := client.VideoMetadata(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "A Video", meta.Title)
	assert.Equal(t, "About things", meta.Description)
	assert.Equal(t, "https://i.ytimg.com/standard.jpg", meta.ImageURL)
}

func TestVideoMetadataNoItemsIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	client := NewClient("key")
	client.dataAPIURL = srv.URL

	_, err := client.VideoMetadata(context.Background(), "missing")
	assert.Error(t, err)
}
