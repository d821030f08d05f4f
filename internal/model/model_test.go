package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkms/content-pipeline/internal/apperrors"
)

func TestStatusOrdering(t *testing.T) {
	assert.True(t, StatusClassified.After(StatusSubmitted))
	assert.True(t, StatusCrawled.After(StatusClassified))
	assert.True(t, StatusTranscribed.After(StatusClassified))
	assert.True(t, StatusSummarized.After(StatusCrawled))
	assert.True(t, StatusSummarized.After(StatusTranscribed))
	assert.True(t, StatusEmbedded.After(StatusSummarized))

	// Crawled and transcribed are parallel branches, not ordered.
	assert.False(t, StatusCrawled.After(StatusTranscribed))
	assert.False(t, StatusTranscribed.After(StatusCrawled))

	assert.False(t, StatusSubmitted.After(StatusEmbedded))
	assert.False(t, ContentStatus("archived").After(StatusSubmitted))
	assert.Equal(t, -1, ContentStatus("archived").Rank())
}

func TestValidateSubmission(t *testing.T) {
	assert.NoError(t, ValidateSubmission(&SubmittedContent{Content: "https://example.com/a"}))

	err := ValidateSubmission(&SubmittedContent{Content: ""})
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestValidateContentStatus(t *testing.T) {
	content := &Content{
		ContentID:   "id-1",
		URL:         "https://example.com/a",
		ContentType: TypeWebArticle,
		Status:      StatusCrawled,
	}

	assert.NoError(t, ValidateContent(content, StatusCrawled, StatusTranscribed))

	err := ValidateContent(content, StatusClassified)
	assert.True(t, apperrors.IsInvalidInput(err))

	err = ValidateContent(&Content{Status: StatusCrawled})
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestValidateNotification(t *testing.T) {
	assert.NoError(t, ValidateNotification(&NotificationMessage{
		URL:              "https://example.com/a",
		Status:           StatusEmbedded,
		NotificationType: NotificationInfo,
		Message:          "done",
	}))

	err := ValidateNotification(&NotificationMessage{
		NotificationType: "progress",
		Message:          "done",
	})
	assert.True(t, apperrors.IsInvalidInput(err))
}
