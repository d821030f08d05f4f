package embedder

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/model"
)

type stubSink struct {
	err   error
	added []schema.Document
}

func (s *stubSink) AddDocuments(ctx context.Context, docs []schema.Document) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.added = append(s.added, docs...)
	ids := make([]string, len(docs))
	return ids, nil
}

type recordingNotifier struct {
	messages []*model.NotificationMessage
}

func (n *recordingNotifier) Publish(ctx context.Context, msg *model.NotificationMessage) error {
	n.messages = append(n.messages, msg)
	return nil
}

func summarizedBody(t *testing.T, mutate func(*model.Content)) []byte {
	t.Helper()
	content := model.Content{
		ContentID:   "id-1",
		URL:         "https://example.com/a",
		ContentType: model.TypeWebArticle,
		Status:      model.StatusSummarized,
		RawContent:  strings.Repeat("the quick brown fox jumps over the lazy dog ", 40),
		Summary:     "a short summary",
		Source:      &model.SourceRef{Telegram: &model.TelegramSource{ChatID: 42, MessageID: 7}},
	}
	if mutate != nil {
		mutate(&content)
	}
	body, err := json.Marshal(content)
	require.NoError(t, err)
	return body
}

func TestEmbedIsTerminal(t *testing.T) {
	sink := &stubSink{}
	notifier := &recordingNotifier{}
	stage := New(sink, notifier, zerolog.New(io.Discard))

	routingKey, next, err := stage.Process(context.Background(), summarizedBody(t, nil))
	require.NoError(t, err)
	assert.Empty(t, routingKey)
	assert.Nil(t, next)

	require.NotEmpty(t, sink.added)
	for _, doc := range sink.added {
		assert.Equal(t, "https://example.com/a", doc.Metadata["source"])
		assert.Equal(t, "id-1", doc.Metadata["content_id"])
	}

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "Content has been processed successfully.", notifier.messages[0].Message)
	assert.Equal(t, model.StatusEmbedded, notifier.messages[0].Status)
}

func TestSummaryBecomesItsOwnDocument(t *testing.T) {
	sink := &stubSink{}
	stage := New(sink, &recordingNotifier{}, zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), summarizedBody(t, func(c *model.Content) {
		c.RawContent = "short body"
	}))
	require.NoError(t, err)
	require.Len(t, sink.added, 2)
	assert.Equal(t, "short body", sink.added[0].PageContent)
	assert.Equal(t, "a short summary", sink.added[1].PageContent)
}

func TestEmptyRawContentIsFatal(t *testing.T) {
	stage := New(&stubSink{}, &recordingNotifier{}, zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), summarizedBody(t, func(c *model.Content) {
		c.RawContent = ""
	}))
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestSinkFailurePropagates(t *testing.T) {
	sink := &stubSink{err: apperrors.NewDependency("vector db down", nil)}
	notifier := &recordingNotifier{}
	stage := New(sink, notifier, zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), summarizedBody(t, nil))
	assert.Error(t, err)
	assert.Empty(t, notifier.messages)
}

func TestRejectsWrongStatus(t *testing.T) {
	stage := New(&stubSink{}, &recordingNotifier{}, zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), summarizedBody(t, func(c *model.Content) {
		c.Status = model.StatusCrawled
	}))
	assert.True(t, apperrors.IsInvalidInput(err))
}
