package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// QueuePublisher publishes JSON payloads to a single queue. It owns its own
// session, lazily connected and rebuilt once after a broker failure, so
// callers outside a worker loop (gateway, stage notifications) never hold a
// process-wide connection.
type QueuePublisher struct {
	brokerURL string
	exchange  string
	queue     string

	mu   sync.Mutex
	sess *Session
}

// NewQueuePublisher creates a publisher bound to one queue.
func NewQueuePublisher(brokerURL, exchange, queue string) *QueuePublisher {
	return &QueuePublisher{brokerURL: brokerURL, exchange: exchange, queue: queue}
}

// PublishJSON marshals the payload and publishes it persistently. A stale
// session is rebuilt once before giving up.
func (p *QueuePublisher) PublishJSON(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", p.queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSession(); err != nil {
		return err
	}
	if err := p.sess.Publish(ctx, p.queue, body, nil); err != nil {
		p.dropSession()
		if err := p.ensureSession(); err != nil {
			return err
		}
		return p.sess.Publish(ctx, p.queue, body, nil)
	}
	return nil
}

// Close tears down the publisher session.
func (p *QueuePublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropSession()
}

func (p *QueuePublisher) ensureSession() error {
	if p.sess != nil && !p.sess.IsClosed() {
		return nil
	}
	p.dropSession()

	sess, err := Connect(p.brokerURL, p.exchange)
	if err != nil {
		return fmt.Errorf("publisher connect to %s failed: %w", p.queue, err)
	}
	if err := sess.DeclareAndBind(p.queue); err != nil {
		sess.Close()
		return err
	}
	p.sess = sess
	return nil
}

func (p *QueuePublisher) dropSession() {
	if p.sess != nil {
		p.sess.Close()
		p.sess = nil
	}
}
