// setup.go
package rabbit

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SetupConsumers bindea la cola del servicio al exchange fanout order_placed
// y procesa mensajes hasta que se cancele ctx o se cierre el canal.
func SetupConsumers(ctx context.Context, ch *amqp091.Channel, exchange, queue string, consumer *PlaceOrderConsumer, logger *zap.Logger) error {
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	// fanout ignora la routing key
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", q.Name, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					logger.Warn("order_placed delivery channel closed")
					return
				}
				consumer.process(ctx, d)
			}
		}
	}()

	logger.Info("subscribed to exchange", zap.String("exchange", exchange), zap.String("queue", q.Name))
	return nil
}
