package gateway

import (
	"context"

	"github.com/pkms/content-pipeline/internal/broker"
	"github.com/pkms/content-pipeline/internal/model"
)

// BrokerPublisher publishes submissions to the classify queue.
type BrokerPublisher struct {
	pub *broker.QueuePublisher
}

// NewBrokerPublisher creates a publisher for the classify queue.
func NewBrokerPublisher(brokerURL, exchange, queue string) *BrokerPublisher {
	return &BrokerPublisher{pub: broker.NewQueuePublisher(brokerURL, exchange, queue)}
}

// PublishSubmission marshals and publishes a submission persistently.
func (p *BrokerPublisher) PublishSubmission(ctx context.Context, submission *model.SubmittedContent) error {
	return p.pub.PublishJSON(ctx, submission)
}

// Close tears down the publisher session.
func (p *BrokerPublisher) Close() {
	p.pub.Close()
}
