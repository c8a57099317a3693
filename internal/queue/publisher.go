package queue

import (
	"context"
	"fmt"

	"github.com/smukkama/store-monitor/internal/protocol"
)

// Publisher sends keyed messages
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// RequestPublisher hands report requests to the reporter workers through Kafka
type RequestPublisher struct {
	publisher Publisher
}

// NewRequestPublisher creates a dispatcher on top of a producer
func NewRequestPublisher(publisher Publisher) *RequestPublisher {
	return &RequestPublisher{publisher: publisher}
}

// Dispatch publishes the request keyed by report id
func (p *RequestPublisher) Dispatch(ctx context.Context, req protocol.ReportRequest) error {
	payload, err := protocol.EncodeReportRequest(&req)
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(ctx, req.ReportID, payload); err != nil {
		return fmt.Errorf("failed to publish report request %s: %w", req.ReportID, err)
	}
	return nil
}
