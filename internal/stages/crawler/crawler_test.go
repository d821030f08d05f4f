package crawler

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/crawl"
	"github.com/pkms/content-pipeline/internal/model"
)

type stubFetcher struct {
	result  *crawl.Result
	err     error
	lastURL string
}

func (f *stubFetcher) Crawl(ctx context.Context, url string) (*crawl.Result, error) {
	f.lastURL = url
	return f.result, f.err
}

type stubModel struct {
	out string
	err error
}

func (m *stubModel) Generate(ctx context.Context, system, user string) (string, error) {
	return m.out, m.err
}

func classifiedBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(model.Content{
		ContentID:   "id-1",
		URL:         "https://example.com/a",
		ContentType: model.TypeWebArticle,
		Status:      model.StatusClassified,
	})
	require.NoError(t, err)
	return body
}

func TestCrawlAndClean(t *testing.T) {
	fetcher := &stubFetcher{result: &crawl.Result{
		Markdown:     "# Title\nnav nav nav\nbody",
		Title:        "Title",
		Description:  "desc",
		ImageURL:     "https://example.com/img.png",
		CanonicalURL: "https://example.com/a",
	}}
	cleaner := &stubModel{out: "```markdown\n# Title\nbody\n```"}
	stage := New(fetcher, cleaner, nil, "summary_queue", zerolog.New(io.Discard))

	routingKey, next, err := stage.Process(context.Background(), classifiedBody(t))
	require.NoError(t, err)
	assert.Equal(t, "summary_queue", routingKey)
	assert.Equal(t, "https://example.com/a", fetcher.lastURL)

	var content model.Content
	require.NoError(t, json.Unmarshal(next, &content))
	assert.Equal(t, model.StatusCrawled, content.Status)
	assert.Equal(t, "# Title\nbody", content.RawContent)
	assert.Equal(t, "Title", content.Title)
	assert.Equal(t, "https://example.com/a", content.CanonicalURL)
}

func TestCleaningFallsBackToRawMarkdown(t *testing.T) {
	fetcher := &stubFetcher{result: &crawl.Result{Markdown: "# Raw"}}
	broken := &stubModel{err: apperrors.NewDependency("model down", nil)}
	stage := New(fetcher, broken, broken, "summary_queue", zerolog.New(io.Discard))

	_, next, err := stage.Process(context.Background(), classifiedBody(t))
	require.NoError(t, err)

	var content model.Content
	require.NoError(t, json.Unmarshal(next, &content))
	assert.Equal(t, "# Raw", content.RawContent)
}

func TestCrawlFailurePropagates(t *testing.T) {
	fetcher := &stubFetcher{err: apperrors.NewDependency("crawl service returned 502", nil)}
	stage := New(fetcher, &stubModel{}, nil, "summary_queue", zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), classifiedBody(t))
	assert.Error(t, err)
}

func TestRejectsWrongStatus(t *testing.T) {
	stage := New(&stubFetcher{}, &stubModel{}, nil, "summary_queue", zerolog.New(io.Discard))

	body, err := json.Marshal(model.Content{
		ContentID:   "id-1",
		URL:         "https://example.com/a",
		ContentType: model.TypeWebArticle,
		Status:      model.StatusSummarized,
	})
	require.NoError(t, err)

	_, _, procErr := stage.Process(context.Background(), body)
	assert.True(t, apperrors.IsInvalidInput(procErr))
}
