package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func telegramTestClient(t *testing.T, handler http.HandlerFunc) (*TelegramClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewTelegramClient("test-token", zerolog.New(io.Discard))
	client.baseURL = srv.URL
	return client, srv
}

func TestTelegramSend(t *testing.T) {
	var got sendMessageRequest
	client, _ := telegramTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	err := client.Send(context.Background(), 42, 7, "Content has been processed successfully.")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, int64(7), got.ReplyToMessageID)
	assert.Equal(t, "Content has been processed successfully.", got.Text)
}

func TestTelegramRejectionIsNotAnError(t *testing.T) {
	client, _ := telegramTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"Bad Request"}`, http.StatusBadRequest)
	})

	// A rejected message would fail identically on every retry; it is
	// logged and dropped.
	assert.NoError(t, client.Send(context.Background(), 42, 7, "hi"))
}

func TestTelegramTransportFailureIsAnError(t *testing.T) {
	client, srv := telegramTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	assert.Error(t, client.Send(context.Background(), 42, 7, "hi"))
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "chat:42", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, "chat:42", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other chats have their own budget.
	ok, err = limiter.Allow(ctx, "chat:43", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client)

	ctx := context.Background()
	ok, err := limiter.Allow(ctx, "chat:42", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "chat:42", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = limiter.Allow(ctx, "chat:42", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterNilReceiverAllows(t *testing.T) {
	var limiter *RateLimiter

	ok, err := limiter.Allow(context.Background(), "chat:42", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client)
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "chat:42", 1, time.Minute)
	assert.Error(t, err)
	assert.True(t, ok)
}
