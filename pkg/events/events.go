// Package events publishes structured application events to RabbitMQ.
// The core only emits; whatever consumes the queues (SIEM, analytics) is
// outside this codebase. Publishing is always fail-soft at call sites.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/streadway/amqp"

	"dimria/pkg/security"
)

const (
	securityQueue = "security_audit"
	propertyQueue = "property_events"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the event queues.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range []string{securityQueue, propertyQueue} {
		_, err = ch.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
		}
	}

	return &Client{conn: conn, channel: ch}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Record publishes a sanitizer audit event to the security queue,
// satisfying security.AuditSink. Broker failures are logged and dropped;
// an audit sink must never fail the request that triggered it.
func (c *Client) Record(event security.AuditEvent) {
	if err := c.publish(securityQueue, event); err != nil {
		log.Printf("events: failed to publish audit event %s: %v", event.ID, err)
	}
}

// PublishPropertyEvent publishes a property lifecycle event
// (created/updated/deleted) to the property queue.
func (c *Client) PublishPropertyEvent(action string, payload map[string]any) error {
	body := map[string]any{
		"action":    action,
		"payload":   payload,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	return c.publish(propertyQueue, body)
}

func (c *Client) publish(queue string, payload any) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = c.channel.Publish(
		"",    // default exchange
		queue, // routing key: the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
