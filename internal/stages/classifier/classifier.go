// Package classifier turns a submission into a classified Content record and
// routes it to the crawl or transcribe queue. Unknown submissions and known
// URLs terminate here with an info notification.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/llm"
	"github.com/pkms/content-pipeline/internal/model"
	"github.com/pkms/content-pipeline/internal/notify"
	"github.com/pkms/content-pipeline/internal/urlutil"
)

// urlChecker is the metadata-sink lookup the classifier needs.
type urlChecker interface {
	CheckURL(ctx context.Context, url string) (bool, error)
}

// Stage is the classifier stage.
type Stage struct {
	model           llm.Model
	store           urlChecker
	notifier        notify.Publisher
	crawlQueue      string
	transcribeQueue string
	log             zerolog.Logger
}

// New creates the classifier stage.
func New(m llm.Model, store urlChecker, notifier notify.Publisher, crawlQueue, transcribeQueue string, log zerolog.Logger) *Stage {
	return &Stage{
		model:           m,
		store:           store,
		notifier:        notifier,
		crawlQueue:      crawlQueue,
		transcribeQueue: transcribeQueue,
		log:             log,
	}
}

// Process classifies a submission. Duplicate URLs and unclassifiable
// submissions surface as benign errors that the error hook acks.
func (s *Stage) Process(ctx context.Context, body []byte) (string, []byte, error) {
	var submission model.SubmittedContent
	if err := json.Unmarshal(body, &submission); err != nil {
		return "", nil, apperrors.NewInvalidInput(fmt.Sprintf("submission is not valid json: %v", err))
	}
	if err := model.ValidateSubmission(&submission); err != nil {
		return "", nil, err
	}

	classified, err := llm.Classify(ctx, s.model, submission.Content)
	if err != nil {
		return "", nil, err
	}
	if classified.ContentType == model.TypeUnknown || classified.URL == "" {
		return "", nil, apperrors.NewUnsupportedContent(
			fmt.Sprintf("submission could not be classified (type=%s)", classified.ContentType))
	}

	url := classified.URL
	if classified.ContentType != model.TypeYouTubeVideo {
		url = urlutil.Canonicalize(url)
	}

	exists, err := s.store.CheckURL(ctx, url)
	if err != nil {
		return "", nil, err
	}
	if exists {
		return "", nil, apperrors.NewAlreadyExists(fmt.Sprintf("url already exists: %s", url))
	}

	content := model.Content{
		ContentID:   uuid.NewString(),
		URL:         url,
		ContentType: classified.ContentType,
		Status:      model.StatusClassified,
		Source:      submission.Source,
	}

	next, err := json.Marshal(&content)
	if err != nil {
		return "", nil, apperrors.NewInternal("failed to encode classified content", err)
	}

	routingKey := s.crawlQueue
	if classified.ContentType == model.TypeYouTubeVideo {
		routingKey = s.transcribeQueue
	}

	s.log.Info().
		Str("content_id", content.ContentID).
		Str("content_type", string(content.ContentType)).
		Str("url", url).
		Msg("submission classified")
	return routingKey, next, nil
}

// ErrorHook acks benign outcomes: a duplicate URL or an unclassifiable
// submission ends the envelope with an info notification instead of retries.
func (s *Stage) ErrorHook(ctx context.Context, procErr error, body []byte) error {
	if !apperrors.IsAlreadyExists(procErr) && !apperrors.IsUnsupportedContent(procErr) {
		return procErr
	}

	var submission model.SubmittedContent
	_ = json.Unmarshal(body, &submission)

	message := "Could not classify the submitted content."
	if apperrors.IsAlreadyExists(procErr) {
		message = "URL already exists."
	}

	notification := model.NotificationMessage{
		URL:              submission.Content,
		Status:           model.StatusSubmitted,
		NotificationType: model.NotificationInfo,
		Source:           submission.Source,
		Message:          message,
	}
	if err := s.notifier.Publish(ctx, &notification); err != nil {
		s.log.Error().Err(err).Msg("failed to publish classification notification")
	}
	return nil
}
