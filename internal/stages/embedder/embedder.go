// Package embedder is the terminal pipeline stage: it chunks the record,
// writes chunks plus vectors to the vector sink and announces completion.
package embedder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/schema"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/model"
	"github.com/pkms/content-pipeline/internal/notify"
	"github.com/pkms/content-pipeline/internal/vectorstore"
)

// vectorSink is the vector-store access the embedder needs.
type vectorSink interface {
	AddDocuments(ctx context.Context, docs []schema.Document) ([]string, error)
}

// Stage is the embedder stage.
type Stage struct {
	store    vectorSink
	notifier notify.Publisher
	log      zerolog.Logger
}

// New creates the embedder stage.
func New(store vectorSink, notifier notify.Publisher, log zerolog.Logger) *Stage {
	return &Stage{store: store, notifier: notifier, log: log}
}

// Process embeds the record and terminates the envelope. Empty raw content is
// fatal.
func (s *Stage) Process(ctx context.Context, body []byte) (string, []byte, error) {
	var content model.Content
	if err := json.Unmarshal(body, &content); err != nil {
		return "", nil, apperrors.NewInvalidInput(fmt.Sprintf("content is not valid json: %v", err))
	}
	if err := model.ValidateContent(&content, model.StatusSummarized); err != nil {
		return "", nil, err
	}
	if content.RawContent == "" {
		return "", nil, apperrors.NewInvalidInput(fmt.Sprintf("empty raw_content for %s", content.URL))
	}

	metadata := map[string]any{
		"source":     content.URL,
		"content_id": content.ContentID,
	}
	docs := []schema.Document{{PageContent: content.RawContent, Metadata: metadata}}
	if content.Summary != "" {
		docs = append(docs, schema.Document{PageContent: content.Summary, Metadata: metadata})
	}

	chunks, err := vectorstore.Split(docs)
	if err != nil {
		return "", nil, err
	}
	if _, err := s.store.AddDocuments(ctx, chunks); err != nil {
		return "", nil, err
	}

	content.Status = model.StatusEmbedded

	notification := model.NotificationMessage{
		URL:              content.URL,
		Status:           content.Status,
		NotificationType: model.NotificationInfo,
		Source:           content.Source,
		Message:          "Content has been processed successfully.",
	}
	if err := s.notifier.Publish(ctx, &notification); err != nil {
		s.log.Error().Err(err).Msg("failed to publish completion notification")
	}

	s.log.Info().
		Str("content_id", content.ContentID).
		Str("url", content.URL).
		Int("chunks", len(chunks)).
		Msg("content embedded")
	return "", nil, nil
}
