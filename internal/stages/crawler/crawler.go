// Package crawler fetches a classified page as markdown, cleans it with a
// model and forwards the enriched record to the summary queue.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/crawl"
	"github.com/pkms/content-pipeline/internal/llm"
	"github.com/pkms/content-pipeline/internal/model"
)

// fetcher is the headless-browser RPC the crawler needs.
type fetcher interface {
	Crawl(ctx context.Context, url string) (*crawl.Result, error)
}

// Stage is the crawler stage.
type Stage struct {
	fetcher      fetcher
	primary      llm.Model
	fallback     llm.Model
	summaryQueue string
	log          zerolog.Logger
}

// New creates the crawler stage. fallback may be nil.
func New(f fetcher, primary, fallback llm.Model, summaryQueue string, log zerolog.Logger) *Stage {
	return &Stage{
		fetcher:      f,
		primary:      primary,
		fallback:     fallback,
		summaryQueue: summaryQueue,
		log:          log,
	}
}

// Process fetches and cleans the page. Markdown cleaning degrades to the raw
// crawl output when both models fail.
func (s *Stage) Process(ctx context.Context, body []byte) (string, []byte, error) {
	var content model.Content
	if err := json.Unmarshal(body, &content); err != nil {
		return "", nil, apperrors.NewInvalidInput(fmt.Sprintf("content is not valid json: %v", err))
	}
	if err := model.ValidateContent(&content, model.StatusClassified); err != nil {
		return "", nil, err
	}

	result, err := s.fetcher.Crawl(ctx, content.URL)
	if err != nil {
		return "", nil, err
	}

	content.RawContent = llm.CleanMarkdown(ctx, s.primary, s.fallback, result.Markdown)
	content.Title = result.Title
	content.Description = result.Description
	content.ImageURL = result.ImageURL
	content.CanonicalURL = result.CanonicalURL
	content.Status = model.StatusCrawled

	next, err := json.Marshal(&content)
	if err != nil {
		return "", nil, apperrors.NewInternal("failed to encode crawled content", err)
	}

	s.log.Info().
		Str("content_id", content.ContentID).
		Str("url", content.URL).
		Int("raw_content_len", len(content.RawContent)).
		Msg("page crawled")
	return s.summaryQueue, next, nil
}
