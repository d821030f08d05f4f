// Package notify carries pipeline progress back to the originating source.
// Stages publish NotificationMessage envelopes on a dedicated queue; the
// notifier stage dispatches them to transport backends. Publishing is a
// single broker publish, so a notifier outage never blocks the pipeline.
package notify

import (
	"context"

	"github.com/pkms/content-pipeline/internal/broker"
	"github.com/pkms/content-pipeline/internal/model"
)

// Publisher emits notification envelopes.
type Publisher interface {
	Publish(ctx context.Context, msg *model.NotificationMessage) error
}

// BrokerPublisher publishes notifications on the notify queue.
type BrokerPublisher struct {
	pub *broker.QueuePublisher
}

// NewBrokerPublisher creates a publisher for the notify queue.
func NewBrokerPublisher(brokerURL, exchange, queue string) *BrokerPublisher {
	return &BrokerPublisher{pub: broker.NewQueuePublisher(brokerURL, exchange, queue)}
}

// Publish marshals the notification and publishes it persistently.
func (p *BrokerPublisher) Publish(ctx context.Context, msg *model.NotificationMessage) error {
	return p.pub.PublishJSON(ctx, msg)
}

// Close tears down the publisher session.
func (p *BrokerPublisher) Close() {
	p.pub.Close()
}
