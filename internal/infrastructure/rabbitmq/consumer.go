package rabbitmq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/metrics"
	"github.com/terpspark/admission-service/internal/pkg/logger"
)

const consumerTag = "admission-service"

// ScanHandler applies one scanner message. processed is false for a
// duplicate message id.
type ScanHandler interface {
	CheckInFromScan(ctx context.Context, messageID string, p messages.CheckInScannedPayload) (processed bool, err error)
}

type Consumer struct {
	rabbitURL string
	exchange  string
	queue     string
	handler   ScanHandler
}

func NewConsumer(rabbitURL, exchange string, handler ScanHandler) *Consumer {
	return &Consumer{
		rabbitURL: strings.TrimSpace(rabbitURL),
		exchange:  strings.TrimSpace(exchange),
		queue:     messages.CheckInQueue,
		handler:   handler,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	log := logger.Logger.With().Str("component", "rabbitmq_consumer").Logger()

	conn, err := amqp.Dial(c.rabbitURL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}

	// Ensure exchange exists (idempotent)
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		closeAll()
		return err
	}

	q, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		closeAll()
		return err
	}

	if err := ch.QueueBind(q.Name, messages.CheckInScanned, c.exchange, false, nil); err != nil {
		closeAll()
		return err
	}

	if err := ch.Qos(10, 0, false); err != nil {
		closeAll()
		return err
	}

	deliveries, err := ch.Consume(q.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		closeAll()
		return err
	}

	go func() {
		defer closeAll()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					log.Warn().Msg("delivery channel closed")
					return
				}

				if err := c.handleDelivery(ctx, d.RoutingKey, d.MessageId, d.Body); err != nil {
					_ = d.Nack(false, true) // transient => requeue
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	log.Info().Str("queue", q.Name).Msg("consumer started")
	return nil
}

// handleDelivery returns an error only when the message should be requeued.
// Poison messages and business rejections are logged and acked.
func (c *Consumer) handleDelivery(ctx context.Context, routingKey, amqpMessageID string, body []byte) error {
	baseLog := logger.Logger.With().
		Str("component", "rabbitmq_consumer").
		Str("routing_key", routingKey).
		Logger()

	if routingKey != messages.CheckInScanned {
		baseLog.Warn().Msg("unknown routing key; ignoring")
		metrics.RecordConsumed(routingKey, "dropped")
		return nil
	}

	var env messages.Envelope[messages.CheckInScannedPayload]
	if err := json.Unmarshal(body, &env); err != nil {
		baseLog.Warn().Err(err).Msg("invalid envelope json; dropping")
		metrics.RecordConsumed(routingKey, "dropped")
		return nil
	}

	if env.Version != messages.EnvelopeVersion {
		baseLog.Warn().Int("version", env.Version).Msg("unsupported envelope version; dropping")
		metrics.RecordConsumed(routingKey, "dropped")
		return nil
	}

	msgID := messageID(env.MessageID, amqpMessageID, routingKey, body)

	log := baseLog.With().
		Str("message_id", msgID).
		Str("trace_id", strings.TrimSpace(env.TraceID)).
		Str("event_id", env.Payload.EventID).
		Logger()

	processed, err := c.handler.CheckInFromScan(ctx, msgID, env.Payload)
	switch {
	case err == nil && !processed:
		log.Info().Msg("duplicate delivery ignored")
		metrics.RecordConsumed(routingKey, "duplicate")
		return nil
	case err == nil:
		log.Info().Msg("scan applied")
		metrics.RecordConsumed(routingKey, "processed")
		return nil
	case permanent(err):
		log.Warn().Err(err).Msg("scan rejected; dropping")
		metrics.RecordConsumed(routingKey, "dropped")
		return nil
	default:
		log.Error().Err(err).Msg("processing failed (requeue)")
		metrics.RecordConsumed(routingKey, "requeued")
		return err
	}
}

// message_id: prefer envelope.message_id, then AMQP MessageId, else hash fallback
func messageID(envelopeID, amqpID, routingKey string, body []byte) string {
	if id := strings.TrimSpace(envelopeID); id != "" {
		return id
	}
	if id := strings.TrimSpace(amqpID); id != "" {
		return id
	}
	h := sha256.Sum256(append([]byte(routingKey+"\n"), body...))
	return "hash:" + hex.EncodeToString(h[:])
}

// permanent reports errors a redelivery cannot fix.
func permanent(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrEventNotFound,
		domain.ErrAlreadyCheckedIn,
		domain.ErrNotConfirmed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
