package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler must return nil only when the message was fully processed; the
// delivery is acknowledged on success and left unacked otherwise, so
// redelivery follows broker policy.
type Handler func(ctx context.Context, body []byte) error

type Consumer struct {
	url string
	log zerolog.Logger
}

func NewConsumer(url string, log zerolog.Logger) *Consumer {
	return &Consumer{url: url, log: log}
}

// ConsumeReviews binds the durable order-review-queue to the jobber-review
// fanout exchange and feeds every delivery to h. Runs until ctx is done or
// the broker drops the channel.
func (c *Consumer) ConsumeReviews(ctx context.Context, h Handler) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeReview, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(QueueOrderReviews, true, false, false, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, "", ExchangeReview, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			if err := h(ctx, d.Body); err != nil {
				// Left unacked; the broker decides on redelivery.
				c.log.Error().Err(err).Str("queue", q.Name).Msg("review message not processed")
				continue
			}
			if err := d.Ack(false); err != nil {
				c.log.Error().Err(err).Str("queue", q.Name).Msg("ack failed")
			}
		}
	}
}
