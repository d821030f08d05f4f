// Package transcriber turns a classified YouTube video into a transcript
// record and forwards it to the summary queue. The URL is canonicalised to
// the watch?v=<id> form.
package transcriber

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/model"
	"github.com/pkms/content-pipeline/internal/youtube"
)

// videoSource is the YouTube access the transcriber needs.
type videoSource interface {
	Transcript(ctx context.Context, videoID string) (string, error)
	VideoMetadata(ctx context.Context, videoID string) (*youtube.Metadata, error)
}

// Stage is the transcriber stage.
type Stage struct {
	source       videoSource
	summaryQueue string
	log          zerolog.Logger
}

// New creates the transcriber stage.
func New(source videoSource, summaryQueue string, log zerolog.Logger) *Stage {
	return &Stage{source: source, summaryQueue: summaryQueue, log: log}
}

// Process fetches transcript and snippet metadata. Missing either one is
// fatal for the message.
func (s *Stage) Process(ctx context.Context, body []byte) (string, []byte, error) {
	var content model.Content
	if err := json.Unmarshal(body, &content); err != nil {
		return "", nil, apperrors.NewInvalidInput(fmt.Sprintf("content is not valid json: %v", err))
	}
	if err := model.ValidateContent(&content, model.StatusClassified); err != nil {
		return "", nil, err
	}
	if content.ContentType != model.TypeYouTubeVideo {
		return "", nil, apperrors.NewInvalidInput(
			fmt.Sprintf("transcriber received content_type %q for %s", content.ContentType, content.URL))
	}

	videoID, err := youtube.ExtractVideoID(content.URL)
	if err != nil {
		return "", nil, err
	}

	transcript, err := s.source.Transcript(ctx, videoID)
	if err != nil {
		return "", nil, err
	}
	meta, err := s.source.VideoMetadata(ctx, videoID)
	if err != nil {
		return "", nil, err
	}

	content.URL = youtube.WatchURL(videoID)
	content.RawContent = transcript
	content.Title = meta.Title
	content.Description = meta.Description
	content.ImageURL = meta.ImageURL
	content.Status = model.StatusTranscribed

	next, err := json.Marshal(&content)
	if err != nil {
		return "", nil, apperrors.NewInternal("failed to encode transcribed content", err)
	}

	s.log.Info().
		Str("content_id", content.ContentID).
		Str("video_id", videoID).
		Int("transcript_len", len(transcript)).
		Msg("video transcribed")
	return s.summaryQueue, next, nil
}
