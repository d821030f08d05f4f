// Package worker implements the generic at-least-once consumer kernel every
// pipeline stage runs on: bounded retries with a dead-letter queue, graceful
// stop, reconnection across broker outages and a per-message deadline.
package worker

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/broker"
	"github.com/pkms/content-pipeline/internal/metrics"
)

const (
	// reconnectDelay is the pause between reconnect cycles after a broker
	// failure.
	reconnectDelay = 5 * time.Second

	// HeaderRetryCount counts delivery attempts across republishes.
	HeaderRetryCount = "x-retry-count"
	// HeaderErrorReason is set when a message is routed to the error queue.
	HeaderErrorReason = "x-error-reason"

	// ReasonMaxRetries marks messages that exhausted the retry budget.
	ReasonMaxRetries = "exceeded_max_retries"
	// ReasonInvalidRoutingKey marks messages whose stage returned a routing
	// key outside its declared output queues.
	ReasonInvalidRoutingKey = "invalid_routing_key"
)

// ProcessFunc is the stage logic. An empty routing key means the message is
// terminal; otherwise the key must be one of the stage's output queues.
type ProcessFunc func(ctx context.Context, body []byte) (routingKey string, next []byte, err error)

// ErrorHook lets a stage intercept a processing failure. Returning nil means
// the failure was handled and the delivery is acked; returning an error hands
// the delivery to the default retry path.
type ErrorHook func(ctx context.Context, procErr error, body []byte) error

// Config wires a worker to its queues.
type Config struct {
	Stage             string
	BrokerURL         string
	Exchange          string
	InputQueue        string
	OutputQueues      []string
	ErrorQueue        string
	ProcessingTimeout time.Duration
	MaxRetries        int
}

// publishFunc abstracts the session publish so delivery handling can be
// tested without a broker.
type publishFunc func(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error

// Worker consumes one queue and drives a ProcessFunc with the retry/DLQ
// contract.
type Worker struct {
	cfg       Config
	process   ProcessFunc
	errorHook ErrorHook
	allowed   map[string]struct{}
	log       zerolog.Logger
}

// New creates a worker around a stage's process function. errorHook may be
// nil.
func New(cfg Config, process ProcessFunc, errorHook ErrorHook, log zerolog.Logger) *Worker {
	allowed := make(map[string]struct{}, len(cfg.OutputQueues))
	for _, q := range cfg.OutputQueues {
		allowed[q] = struct{}{}
	}
	return &Worker{
		cfg:       cfg,
		process:   process,
		errorHook: errorHook,
		allowed:   allowed,
		log:       log.With().Str("stage", cfg.Stage).Logger(),
	}
}

// Run connects, consumes and reconnects until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		sess, err := broker.Connect(w.cfg.BrokerURL, w.cfg.Exchange)
		if err != nil {
			w.log.Error().Err(err).Msg("broker connect failed, retrying")
		} else {
			err = w.runSession(ctx, sess)
			sess.Close()
		}

		if ctx.Err() != nil {
			w.log.Info().Msg("worker shutting down")
			return nil
		}

		metrics.RecordReconnect(w.cfg.Stage)
		if err != nil {
			w.log.Warn().Err(err).Msg("broker session ended, reconnecting")
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker shutting down")
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// runSession declares the stage topology and processes deliveries until the
// session breaks or ctx is cancelled.
func (w *Worker) runSession(ctx context.Context, sess *broker.Session) error {
	queues := append([]string{w.cfg.InputQueue, w.cfg.ErrorQueue}, w.cfg.OutputQueues...)
	for _, q := range queues {
		if err := sess.DeclareAndBind(q); err != nil {
			return err
		}
	}

	deliveries, err := sess.Consume(w.cfg.InputQueue)
	if err != nil {
		return err
	}

	closed := sess.NotifyClose()
	w.log.Info().Str("queue", w.cfg.InputQueue).Msg("worker started consuming")

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("broker connection closed")
			}
			return amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handleDelivery(ctx, sess.Publish, d)
		}
	}
}

// handleDelivery runs one envelope through process, publish and ack. The
// publish always precedes the ack so a crash in between causes a redelivery,
// never a loss.
func (w *Worker) handleDelivery(ctx context.Context, publish publishFunc, d amqp.Delivery) {
	metrics.RecordMessageConsumed(w.cfg.Stage)
	start := time.Now()

	// The message deadline is detached from the shutdown context so an
	// in-flight envelope completes before the worker stops.
	msgCtx, cancel := context.WithTimeout(context.Background(), w.cfg.ProcessingTimeout)
	defer cancel()

	routingKey, next, procErr := w.runProcess(msgCtx, d.Body)
	if procErr == nil {
		w.handleSuccess(msgCtx, publish, d, routingKey, next, start)
		return
	}

	w.log.Error().Err(procErr).Msg("message processing failed")

	if w.errorHook != nil {
		if hookErr := w.errorHook(msgCtx, procErr, d.Body); hookErr == nil {
			if err := d.Ack(false); err != nil {
				w.log.Error().Err(err).Msg("ack failed after error hook")
			}
			metrics.RecordMessageProcessed(w.cfg.Stage, "handled", time.Since(start))
			return
		}
	}

	w.retryOrDeadLetter(msgCtx, publish, d)
	metrics.RecordMessageProcessed(w.cfg.Stage, "failed", time.Since(start))
}

func (w *Worker) handleSuccess(ctx context.Context, publish publishFunc, d amqp.Delivery, routingKey string, next []byte, start time.Time) {
	if routingKey == "" {
		if err := d.Ack(false); err != nil {
			w.log.Error().Err(err).Msg("ack failed on terminal message")
		}
		metrics.RecordMessageProcessed(w.cfg.Stage, "terminal", time.Since(start))
		return
	}

	if _, ok := w.allowed[routingKey]; !ok {
		w.log.Error().Str("routing_key", routingKey).Msg("routing key outside output queues")
		w.deadLetter(ctx, publish, d, ReasonInvalidRoutingKey)
		metrics.RecordMessageProcessed(w.cfg.Stage, "failed", time.Since(start))
		return
	}

	if err := publish(ctx, routingKey, next, nil); err != nil {
		w.log.Error().Err(err).Str("routing_key", routingKey).Msg("publish failed, routing to retry path")
		w.retryOrDeadLetter(ctx, publish, d)
		metrics.RecordMessageProcessed(w.cfg.Stage, "failed", time.Since(start))
		return
	}

	if err := d.Ack(false); err != nil {
		w.log.Error().Err(err).Msg("ack failed after publish")
	}
	metrics.RecordMessageProcessed(w.cfg.Stage, "forwarded", time.Since(start))
}

// runProcess applies the per-message deadline. The guard select covers
// process implementations that do not honour the context.
func (w *Worker) runProcess(ctx context.Context, body []byte) (string, []byte, error) {
	type result struct {
		routingKey string
		next       []byte
		err        error
	}

	done := make(chan result, 1)
	go func() {
		rk, next, err := w.process(ctx, body)
		done <- result{routingKey: rk, next: next, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case r := <-done:
		return r.routingKey, r.next, r.err
	}
}

// retryOrDeadLetter is the default failure path: republish to the input
// queue with an incremented retry count, or to the error queue once the
// budget is spent. The original envelope is acked only after the republish
// succeeds.
func (w *Worker) retryOrDeadLetter(ctx context.Context, publish publishFunc, d amqp.Delivery) {
	count := RetryCount(d.Headers) + 1

	headers := cloneHeaders(d.Headers)
	headers[HeaderRetryCount] = int64(count)

	if count < w.cfg.MaxRetries {
		if err := publish(ctx, w.cfg.InputQueue, d.Body, headers); err != nil {
			w.log.Error().Err(err).Msg("retry republish failed, requeueing")
			w.nackRequeue(d)
			return
		}
		metrics.RecordRetry(w.cfg.Stage)
		w.log.Info().Int("retry_count", count).Msg("message requeued for retry")
	} else {
		headers[HeaderErrorReason] = ReasonMaxRetries
		if err := publish(ctx, w.cfg.ErrorQueue, d.Body, headers); err != nil {
			w.log.Error().Err(err).Msg("error queue publish failed, requeueing")
			w.nackRequeue(d)
			return
		}
		metrics.RecordDeadLettered(w.cfg.Stage, ReasonMaxRetries)
		w.log.Warn().Int("retry_count", count).Msg("message exceeded max retries, moved to error queue")
	}

	if err := d.Ack(false); err != nil {
		w.log.Error().Err(err).Msg("ack failed after republish")
	}
}

// deadLetter routes an envelope straight to the error queue. Used for
// programming errors where retrying cannot succeed.
func (w *Worker) deadLetter(ctx context.Context, publish publishFunc, d amqp.Delivery, reason string) {
	headers := cloneHeaders(d.Headers)
	headers[HeaderErrorReason] = reason

	if err := publish(ctx, w.cfg.ErrorQueue, d.Body, headers); err != nil {
		w.log.Error().Err(err).Msg("error queue publish failed, requeueing")
		w.nackRequeue(d)
		return
	}
	metrics.RecordDeadLettered(w.cfg.Stage, reason)

	if err := d.Ack(false); err != nil {
		w.log.Error().Err(err).Msg("ack failed after dead-letter publish")
	}
}

func (w *Worker) nackRequeue(d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		w.log.Error().Err(err).Msg("nack failed")
	}
}

// RetryCount reads the retry counter from envelope headers. Header values
// round-trip through a transport that may type-coerce, so every integer
// shape is accepted; missing or invalid values count as zero.
func RetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[HeaderRetryCount].(type) {
	case int:
		return nonNegative(v)
	case int8:
		return nonNegative(int(v))
	case int16:
		return nonNegative(int(v))
	case int32:
		return nonNegative(int(v))
	case int64:
		return nonNegative(int(v))
	case float32:
		return nonNegative(int(v))
	case float64:
		return nonNegative(int(v))
	case string:
		n := 0
		for _, r := range v {
			if r < '0' || r > '9' {
				return 0
			}
			n = n*10 + int(r-'0')
		}
		return n
	default:
		return 0
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func cloneHeaders(headers amqp.Table) amqp.Table {
	out := make(amqp.Table, len(headers)+2)
	for k, v := range headers {
		out[k] = v
	}
	return out
}
