// Package summarizer writes the canonical record to the metadata sink with a
// model-generated summary and forwards it to the embedding queue. The dedup
// key is recomputed here, so redeliveries and racing duplicates stay
// idempotent.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/llm"
	"github.com/pkms/content-pipeline/internal/model"
	"github.com/pkms/content-pipeline/internal/notify"
	"github.com/pkms/content-pipeline/internal/urlutil"
)

const summaryPreviewLimit = 500

// metadataSink is the content-store access the summarizer needs.
type metadataSink interface {
	CheckURL(ctx context.Context, url string) (bool, error)
	Insert(ctx context.Context, content *model.Content) error
}

// Stage is the summarizer stage.
type Stage struct {
	store          metadataSink
	primary        llm.Model
	fallback       llm.Model
	notifier       notify.Publisher
	embeddingQueue string
	log            zerolog.Logger
}

// New creates the summarizer stage. fallback may be nil.
func New(store metadataSink, primary, fallback llm.Model, notifier notify.Publisher, embeddingQueue string, log zerolog.Logger) *Stage {
	return &Stage{
		store:          store,
		primary:        primary,
		fallback:       fallback,
		notifier:       notifier,
		embeddingQueue: embeddingQueue,
		log:            log,
	}
}

// Process summarizes and persists the record. An empty summary is acceptable;
// a duplicate dedup key is benign and handled by the error hook.
func (s *Stage) Process(ctx context.Context, body []byte) (string, []byte, error) {
	var content model.Content
	if err := json.Unmarshal(body, &content); err != nil {
		return "", nil, apperrors.NewInvalidInput(fmt.Sprintf("content is not valid json: %v", err))
	}
	if err := model.ValidateContent(&content, model.StatusCrawled, model.StatusTranscribed); err != nil {
		return "", nil, err
	}

	key := dedupKey(ctx, &content)
	exists, err := s.store.CheckURL(ctx, key)
	if err != nil {
		return "", nil, err
	}
	if exists {
		return "", nil, apperrors.NewAlreadyExists(fmt.Sprintf("content already exists: %s", key))
	}

	content.Summary = llm.Summarize(ctx, s.primary, s.fallback, content.ContentType, content.RawContent)
	content.Status = model.StatusSummarized

	if err := s.store.Insert(ctx, &content); err != nil {
		return "", nil, err
	}

	s.publishPreview(ctx, &content)

	next, err := json.Marshal(&content)
	if err != nil {
		return "", nil, apperrors.NewInternal("failed to encode summarized content", err)
	}

	s.log.Info().
		Str("content_id", content.ContentID).
		Str("url", content.URL).
		Int("summary_len", len(content.Summary)).
		Msg("content summarized and persisted")
	return s.embeddingQueue, next, nil
}

// ErrorHook acks the duplicate-content outcome with an info notification.
func (s *Stage) ErrorHook(ctx context.Context, procErr error, body []byte) error {
	if !apperrors.IsAlreadyExists(procErr) {
		return procErr
	}

	var content model.Content
	_ = json.Unmarshal(body, &content)

	notification := model.NotificationMessage{
		URL:              content.URL,
		Status:           content.Status,
		NotificationType: model.NotificationInfo,
		Source:           content.Source,
		Message:          "URL already exists.",
	}
	if err := s.notifier.Publish(ctx, &notification); err != nil {
		s.log.Error().Err(err).Msg("failed to publish duplicate notification")
	}
	return nil
}

// dedupKey recomputes the identity key: canonical_url, then the cleaned url,
// then the url itself. YouTube URLs are already canonical at this point.
func dedupKey(ctx context.Context, content *model.Content) string {
	if content.ContentType == model.TypeYouTubeVideo {
		return content.URL
	}
	if content.CanonicalURL != "" {
		return content.CanonicalURL
	}
	if cleaned := urlutil.CleanURL(ctx, content.URL); cleaned != "" {
		return cleaned
	}
	return content.URL
}

func (s *Stage) publishPreview(ctx context.Context, content *model.Content) {
	preview := content.Summary
	if preview == "" {
		preview = "(no summary available)"
	}
	if len(preview) > summaryPreviewLimit {
		preview = preview[:summaryPreviewLimit] + "..."
	}

	notification := model.NotificationMessage{
		URL:              content.URL,
		Status:           content.Status,
		NotificationType: model.NotificationInfo,
		Source:           content.Source,
		Message:          preview,
	}
	if err := s.notifier.Publish(ctx, &notification); err != nil {
		s.log.Error().Err(err).Msg("failed to publish summary preview")
	}
}
