package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pkms/content-pipeline/internal/apperrors"
)

// ContentType is the closed set of content classifications.
type ContentType string

const (
	TypeWebArticle   ContentType = "web_article"
	TypePublication  ContentType = "publication"
	TypeYouTubeVideo ContentType = "youtube_video"
	TypeBookmark     ContentType = "bookmark"
	TypeUnknown      ContentType = "unknown"
)

// ContentStatus tracks a record through the pipeline state machine:
// submitted -> classified -> {crawled, transcribed} -> summarized -> embedded.
type ContentStatus string

const (
	StatusSubmitted   ContentStatus = "submitted"
	StatusClassified  ContentStatus = "classified"
	StatusCrawled     ContentStatus = "crawled"
	StatusTranscribed ContentStatus = "transcribed"
	StatusSummarized  ContentStatus = "summarized"
	StatusEmbedded    ContentStatus = "embedded"
)

// statusRank orders statuses along the pipeline graph. Crawled and
// transcribed are the same distance from submission.
var statusRank = map[ContentStatus]int{
	StatusSubmitted:   0,
	StatusClassified:  1,
	StatusCrawled:     2,
	StatusTranscribed: 2,
	StatusSummarized:  3,
	StatusEmbedded:    4,
}

// Rank returns the position of s in the state machine, or -1 for an unknown
// status.
func (s ContentStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// After reports whether s is strictly further along the pipeline than other.
func (s ContentStatus) After(other ContentStatus) bool {
	return s.Rank() > other.Rank() && s.Rank() >= 0 && other.Rank() >= 0
}

// TelegramSource addresses a reply to the originating Telegram message.
type TelegramSource struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// SourceRef is a tagged variant over integration channels. It is carried
// verbatim end-to-end so the notifier can address replies.
type SourceRef struct {
	Telegram *TelegramSource `json:"telegram,omitempty"`
}

// SubmittedContent is the submission envelope published by the gateway.
type SubmittedContent struct {
	Content string     `json:"content" validate:"required,min=1,max=10000"`
	Source  *SourceRef `json:"source,omitempty"`
}

// ClassifiedContent is the classification model output. It is discarded
// after being merged into a Content record.
type ClassifiedContent struct {
	ContentType ContentType `json:"content_type"`
	URL         string      `json:"url,omitempty"`
}

// Content is the canonical record that flows through every downstream stage.
// ContentID is assigned by the classifier and never changes; URL is the
// identity key for deduplication.
type Content struct {
	ContentID    string        `json:"content_id" validate:"required"`
	URL          string        `json:"url" validate:"required"`
	ContentType  ContentType   `json:"content_type" validate:"required"`
	Status       ContentStatus `json:"status" validate:"required"`
	Title        string        `json:"title,omitempty"`
	Description  string        `json:"description,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	CanonicalURL string        `json:"canonical_url,omitempty"`
	Keywords     []string      `json:"keywords,omitempty"`
	RawContent   string        `json:"raw_content,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	Source       *SourceRef    `json:"source,omitempty"`
}

// NotificationType distinguishes progress reports from failures.
type NotificationType string

const (
	NotificationInfo  NotificationType = "info"
	NotificationError NotificationType = "error"
)

// NotificationMessage is published on the notify queue, independently of the
// main pipeline.
type NotificationMessage struct {
	URL              string           `json:"url"`
	Status           ContentStatus    `json:"status"`
	NotificationType NotificationType `json:"notification_type" validate:"required,oneof=info error"`
	Source           *SourceRef       `json:"source,omitempty"`
	Message          string           `json:"message" validate:"required"`
}

var validate = validator.New()

// ValidateSubmission checks a submission envelope at stage entry.
func ValidateSubmission(s *SubmittedContent) error {
	if err := validate.Struct(s); err != nil {
		return apperrors.NewInvalidInput(fmt.Sprintf("invalid submission: %v", err))
	}
	return nil
}

// ValidateNotification checks a notification envelope at stage entry.
func ValidateNotification(n *NotificationMessage) error {
	if err := validate.Struct(n); err != nil {
		return apperrors.NewInvalidInput(fmt.Sprintf("invalid notification: %v", err))
	}
	return nil
}

// ValidateContent checks a Content envelope at stage entry. A worker rejects
// a message whose status is not the expected predecessor; retries will fail
// identically and the message lands in the error queue.
func ValidateContent(c *Content, expected ...ContentStatus) error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewInvalidInput(fmt.Sprintf("invalid content: %v", err))
	}
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if c.Status == want {
			return nil
		}
	}
	return apperrors.NewInvalidInput(fmt.Sprintf("unexpected status %q for %s", c.Status, c.URL))
}
