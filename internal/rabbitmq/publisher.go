package rabbitmq

import (
	"context"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher emits persistent messages to direct exchanges. A channel is
// opened lazily on first use and re-established whenever the connection or
// channel has gone away. Publish never returns an error: callers must not
// assume delivery.
type Publisher struct {
	url string
	log zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) {
	ch, err := p.channel()
	if err != nil {
		p.log.Error().Err(err).Str("exchange", exchange).Msg("rabbitmq channel unavailable")
		return
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		p.log.Error().Err(err).Str("exchange", exchange).Msg("exchange declare failed")
		return
	}
	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.log.Error().Err(err).
			Str("exchange", exchange).
			Str("routingKey", routingKey).
			Msg("publish failed")
		return
	}
	p.log.Debug().Str("exchange", exchange).Str("routingKey", routingKey).Msg("message published")
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
