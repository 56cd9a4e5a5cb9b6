// Package queue_publisher publishes reservation domain events to
// RabbitMQ. Errors are logged and returned so callers can ignore
// failures without interrupting the request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/civicworks/facility-reservation/internal/queue"
)

// Sink publishes notification and audit events for the API server. It
// implements the engine's Notifier and Auditor contracts; the queue
// consumers persist the rows, so a broker outage delays delivery
// instead of failing the reservation write.
type Sink struct{}

// NewSink returns a broker-backed event sink.
func NewSink() *Sink { return &Sink{} }

// Notify publishes a NotificationEvent.
func (s *Sink) Notify(ctx context.Context, userID uint64, typ, title, message, link string) error {
	return publish(ctx, q.NotificationQueue, q.NotificationEvent{
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Message:  message,
		Link:     link,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// LogAudit publishes an AuditEvent.
func (s *Sink) LogAudit(ctx context.Context, action, category, details string) error {
	return publish(ctx, q.AuditQueue, q.AuditEvent{
		EntryID:  uuid.NewString(),
		Action:   action,
		Category: category,
		Details:  details,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// publish opens a short-lived connection, declares the durable queue
// and publishes one persistent message. Connection churn is acceptable
// at portal traffic levels and keeps the publisher free of shared
// channel state.
func publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
