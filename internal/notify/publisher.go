package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const alertQueueName = "ops.alert"

// Publisher sends alerts to the broker.  It attempts to be robust and to
// never panic; any error is logged and the alert falls back to the process
// log, so a broker outage cannot silence operator notifications entirely.
type Publisher struct {
	url string
}

// NewPublisher returns a publisher for the given broker URL.  An empty URL
// yields a publisher that only writes to the process log.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Alert publishes an operator alert.  Failures are logged, never
// propagated: notification must not break the operation that triggered it.
func (p *Publisher) Alert(ctx context.Context, kind string, publicID int64, detail string) {
	a := Alert{Kind: kind, PublicID: publicID, Detail: detail, At: time.Now().UTC().Format(time.RFC3339)}
	if err := p.publish(ctx, a); err != nil {
		log.Printf("ops-alert (broker unavailable): kind=%s public_id=%d detail=%s", kind, publicID, detail)
	}
}

func (p *Publisher) publish(ctx context.Context, a Alert) error {
	if p.url == "" {
		return amqp.ErrClosed
	}
	conn, err := amqp.Dial(p.url)
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

	// Ensure the queue exists (idempotent). Durable so alerts survive broker restarts.
	if _, err := ch.QueueDeclare(alertQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(a)
	if err != nil {
		log.Printf("rabbitmq: marshal alert failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", alertQueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
