package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
)

// EventPublisher emits processing-status events. Publishing is
// best-effort: implementations log failures and never return them, so
// a broken event sink cannot affect a document's status transitions.
type EventPublisher interface {
	Publish(event *types.ProcessingEvent)
}

// NewProcessingEvent builds a stage-transition event for a document.
func NewProcessingEvent(eventType string, doc *types.Document, stage, errMsg string) *types.ProcessingEvent {
	return &types.ProcessingEvent{
		ID:         uuid.NewString(),
		EventType:  eventType,
		Subject:    fmt.Sprintf("/ewa/%s/%s", doc.CustomerID, doc.DocID),
		CustomerID: doc.CustomerID,
		DocID:      doc.DocID,
		SID:        doc.SID,
		Filename:   doc.FileName,
		Stage:      stage,
		Error:      errMsg,
		Timestamp:  time.Now().UTC(),
	}
}

// NatsEventPublisher publishes processing events to a NATS subject.
type NatsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNatsEventPublisher(cfg config.EventConfig, logger *zap.Logger) (*NatsEventPublisher, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsEventPublisher{
		conn:    conn,
		subject: cfg.Subject,
		logger:  logger,
	}, nil
}

func (p *NatsEventPublisher) Publish(event *types.ProcessingEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal processing event", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", p.subject, event.CustomerID, event.DocID)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish processing event",
			zap.String("subject", subject),
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}

func (p *NatsEventPublisher) Close() {
	p.conn.Drain()
}

// CompositeEventPublisher fans one event out to several publishers.
type CompositeEventPublisher []EventPublisher

func (c CompositeEventPublisher) Publish(event *types.ProcessingEvent) {
	for _, p := range c {
		p.Publish(event)
	}
}
