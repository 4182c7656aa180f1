package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/KynixVPN/Kynix-Bot/internal/transport"
)

// StartConsumer connects to the broker, declares the ops.alert queue
// (durable), and starts consuming alerts.  Each alert is forwarded to
// every configured admin chat and appended to logs/ops.log in a
// single-line format.  The function runs a reconnect loop and keeps
// running through broker outages; processing errors are logged and the
// offending message rejected so the service continues operating.
func StartConsumer(url string, sender transport.Sender, adminIDs []int64) {
	if url == "" {
		log.Printf("ops-consumer: no broker configured, consumer disabled")
		return
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("ops-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, sender, adminIDs); err != nil {
			log.Printf("ops-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, sender transport.Sender, adminIDs []int64) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("ops-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(alertQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(alertQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleAlert(d.Body, sender, adminIDs); err != nil {
			log.Printf("ops-consumer: handle alert failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleAlert(body []byte, sender transport.Sender, adminIDs []int64) error {
	var a Alert
	if err := json.Unmarshal(body, &a); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	if err := appendOpsLog(a); err != nil {
		return err
	}

	text := fmt.Sprintf("❗ Ops alert: %s\nFAKE ID: %d\n%s", a.Kind, a.PublicID, a.Detail)
	if a.PublicID == 0 {
		text = fmt.Sprintf("❗ Ops alert: %s\n%s", a.Kind, a.Detail)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, adminID := range adminIDs {
		if _, err := sender.SendMessage(ctx, adminID, text); err != nil {
			// A single unreachable admin must not poison the alert.
			log.Printf("ops-consumer: notify admin %d failed: %v", adminID, err)
		}
	}
	return nil
}

func appendOpsLog(a Alert) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "ops.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | public_id=%d | %s\n", a.At, a.Kind, a.PublicID, a.Detail)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
