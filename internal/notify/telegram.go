package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/metrics"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramClient posts replies through the Telegram bot API.
type TelegramClient struct {
	token   string
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewTelegramClient creates a Telegram sender for the given bot token.
func NewTelegramClient(token string, log zerolog.Logger) *TelegramClient {
	return &TelegramClient{
		token:   token,
		baseURL: telegramAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
	Text             string `json:"text"`
}

// Send posts a reply to the originating chat. Transport failures are
// returned so the kernel retry path fires; a non-2xx API response is logged
// and treated as delivered, since replaying it would fail identically.
func (t *TelegramClient) Send(ctx context.Context, chatID, replyToMessageID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:           chatID,
		ReplyToMessageID: replyToMessageID,
		Text:             text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		metrics.RecordNotification("telegram", "transport_error")
		return apperrors.NewDependency("telegram request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.log.Error().
			Int("status", resp.StatusCode).
			Int64("chat_id", chatID).
			Str("response", string(body)).
			Msg("telegram rejected notification")
		metrics.RecordNotification("telegram", "rejected")
		return nil
	}

	metrics.RecordNotification("telegram", "sent")
	return nil
}
