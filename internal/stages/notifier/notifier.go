// Package notifier is the terminal fan-out stage: it consumes notification
// envelopes and dispatches them to the transport matching the source.
// Envelopes without a source are logged only.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/model"
)

const (
	// chatRateLimit bounds deliveries per chat per window so redelivery
	// storms do not flood the user.
	chatRateLimit  = 20
	chatRateWindow = time.Minute
)

// sender is the Telegram transport the notifier needs.
type sender interface {
	Send(ctx context.Context, chatID, replyToMessageID int64, text string) error
}

// limiter bounds per-chat delivery rate.
type limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Stage is the notifier stage.
type Stage struct {
	telegram sender
	limiter  limiter
	log      zerolog.Logger
}

// New creates the notifier stage. limiter may be nil.
func New(telegram sender, limiter limiter, log zerolog.Logger) *Stage {
	return &Stage{telegram: telegram, limiter: limiter, log: log}
}

// Process dispatches one notification. Transport failures propagate so the
// kernel retries them; a throttled chat drops the message.
func (s *Stage) Process(ctx context.Context, body []byte) (string, []byte, error) {
	var msg model.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", nil, apperrors.NewInvalidInput(fmt.Sprintf("notification is not valid json: %v", err))
	}
	if err := model.ValidateNotification(&msg); err != nil {
		return "", nil, err
	}

	if msg.Source == nil || msg.Source.Telegram == nil {
		s.log.Info().
			Str("url", msg.URL).
			Str("status", string(msg.Status)).
			Str("type", string(msg.NotificationType)).
			Str("message", msg.Message).
			Msg("notification without source")
		return "", nil, nil
	}

	tg := msg.Source.Telegram
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, fmt.Sprintf("chat:%d", tg.ChatID), chatRateLimit, chatRateWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limit check failed, allowing delivery")
		}
		if !allowed {
			s.log.Warn().Int64("chat_id", tg.ChatID).Msg("chat rate limited, dropping notification")
			return "", nil, nil
		}
	}

	if err := s.telegram.Send(ctx, tg.ChatID, tg.MessageID, msg.Message); err != nil {
		return "", nil, err
	}
	return "", nil, nil
}
