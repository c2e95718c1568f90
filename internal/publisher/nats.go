// Package publisher emits download lifecycle events to NATS.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blockedby/reactdl/internal/watcher"
	"github.com/nats-io/nats.go"
)

// NATS subjects for download outcomes.
const (
	SubjectCompleted = "downloads.completed"
	SubjectFailed    = "downloads.failed"
)

// NATSClient interface to allow mocking.
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements watcher.EventPublisher on a NATS connection.
type NATSPublisher struct {
	conn NATSClient
}

// NewNATSPublisher creates a new publisher.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// PublishCompleted publishes a completed-download event.
func (p *NATSPublisher) PublishCompleted(ctx context.Context, ev watcher.DownloadEvent) error {
	return p.publish(SubjectCompleted, ev)
}

// PublishFailed publishes a failed-download event.
func (p *NATSPublisher) PublishFailed(ctx context.Context, ev watcher.DownloadEvent) error {
	return p.publish(SubjectFailed, ev)
}

func (p *NATSPublisher) publish(subject string, ev watcher.DownloadEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
