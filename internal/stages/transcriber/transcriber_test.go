package transcriber

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/model"
	"github.com/pkms/content-pipeline/internal/youtube"
)

type stubSource struct {
	transcript    string
	transcriptErr error
	meta          *youtube.Metadata
	metaErr       error
}

func (s *stubSource) Transcript(ctx context.Context, videoID string) (string, error) {
	return s.transcript, s.transcriptErr
}

func (s *stubSource) VideoMetadata(ctx context.Context, videoID string) (*youtube.Metadata, error) {
	return s.meta, s.metaErr
}

func videoBody(t *testing.T, url string) []byte {
	t.Helper()
	body, err := json.Marshal(model.Content{
		ContentID:   "id-1",
		URL:         url,
		ContentType: model.TypeYouTubeVideo,
		Status:      model.StatusClassified,
	})
	require.NoError(t, err)
	return body
}

func TestTranscribeCanonicalizesURL(t *testing.T) {
	source := &stubSource{
		transcript: "line one\nline two",
		meta:       &youtube.Metadata{Title: "A Video", Description: "desc", ImageURL: "https://i.ytimg.com/x.jpg"},
	}
	stage := New(source, "summary_queue", zerolog.New(io.Discard))

	routingKey, next, err := stage.Process(context.Background(), videoBody(t, "https://youtu.be/dQw4w9WgXcQ"))
	require.NoError(t, err)
	assert.Equal(t, "summary_queue", routingKey)

	var content model.Content
	require.NoError(t, json.Unmarshal(next, &content))
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", content.URL)
	assert.Equal(t, model.StatusTranscribed, content.Status)
	assert.Equal(t, "line one\nline two", content.RawContent)
	assert.Equal(t, "A Video", content.Title)
}

func TestMissingTranscriptIsFatal(t *testing.T) {
	source := &stubSource{transcriptErr: apperrors.NewDependency("no transcript", nil)}
	stage := New(source, "summary_queue", zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), videoBody(t, "https://youtu.be/dQw4w9WgXcQ"))
	assert.Error(t, err)
}

func TestMissingMetadataIsFatal(t *testing.T) {
	source := &stubSource{transcript: "text", metaErr: apperrors.NewDependency("no metadata", nil)}
	stage := New(source, "summary_queue", zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), videoBody(t, "https://youtu.be/dQw4w9WgXcQ"))
	assert.Error(t, err)
}

func TestRejectsNonVideoContent(t *testing.T) {
	stage := New(&stubSource{}, "summary_queue", zerolog.New(io.Discard))

	body, err := json.Marshal(model.Content{
		ContentID:   "id-1",
		URL:         "https://example.com/a",
		ContentType: model.TypeWebArticle,
		Status:      model.StatusClassified,
	})
	require.NoError(t, err)

	_, _, procErr := stage.Process(context.Background(), body)
	assert.True(t, apperrors.IsInvalidInput(procErr))
}

func TestRejectsURLWithoutVideoID(t *testing.T) {
	stage := New(&stubSource{}, "summary_queue", zerolog.New(io.Discard))

	_, _, err := stage.Process(context.Background(), videoBody(t, "https://www.youtube.com/feed/subscriptions"))
	assert.True(t, apperrors.IsInvalidInput(err))
}
