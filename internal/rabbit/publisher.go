package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"order-lifecycle-service/internal/service"
)

// Publisher es la parte de *amqp091.Channel que publica.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// StatusPublisher publica los cambios de estado en un exchange topic, con el
// tipo de evento como routing key.
type StatusPublisher struct {
	pub      Publisher
	exchange string
	timeout  time.Duration
}

// DeclareStatusExchange declara el exchange topic durable de los eventos.
func DeclareStatusExchange(ch *amqp091.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

func NewStatusPublisher(pub Publisher, exchange string, timeout time.Duration) *StatusPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StatusPublisher{pub: pub, exchange: exchange, timeout: timeout}
}

func (p *StatusPublisher) PublishOrderEvent(ctx context.Context, event service.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.pub.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
}
