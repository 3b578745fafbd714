package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/service"
)

// ErrMalformedMessage marca mensajes que nunca se van a poder procesar.
var ErrMalformedMessage = errors.New("malformed order_placed message")

// OrderCreator es la parte del servicio de órdenes que usa el consumer.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*model.Order, error)
}

type PlaceOrderConsumer struct {
	orders OrderCreator
	log    *zap.Logger
}

func NewPlaceOrderConsumer(orders OrderCreator, logger *zap.Logger) *PlaceOrderConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaceOrderConsumer{orders: orders, log: logger}
}

// PlacedOrderMessage es el sobre que llega por el exchange order_placed.
type PlacedOrderMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		UserID   string `json:"userId"`
		Articles []struct {
			ArticleID string `json:"articleId"`
			Quantity  int    `json:"quantity"`
		} `json:"articles"`
		Shipping      dto.AddressDTO `json:"shipping"`
		PaymentMethod string         `json:"paymentMethod"`
		ShippingPrice float64        `json:"shippingPrice"`
	} `json:"message"`
}

// Handle crea una orden a partir del body del mensaje.
func (c *PlaceOrderConsumer) Handle(ctx context.Context, body []byte) (*model.Order, error) {
	var event PlacedOrderMessage
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	in := service.CreateOrderInput{
		BuyerID:         event.Message.UserID,
		ShippingAddress: event.Message.Shipping.Model(),
		PaymentMethod:   event.Message.PaymentMethod,
		Price:           service.PriceBreakdown{ShippingPrice: event.Message.ShippingPrice},
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = model.PaymentCOD
	}
	for _, a := range event.Message.Articles {
		in.Items = append(in.Items, service.OrderItemInput{ProductID: a.ArticleID, Quantity: a.Quantity})
	}

	order, err := c.orders.CreateOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	c.log.Info("order created from order_placed",
		zap.String("correlation_id", event.CorrelationID),
		zap.String("order_id", order.ID.Hex()),
	)
	return order, nil
}

// process hace ack de lo procesado, descarta los errores permanentes y reencola el resto.
func (c *PlaceOrderConsumer) process(ctx context.Context, d amqp091.Delivery) {
	_, err := c.Handle(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.log.Error("ack failed", zap.Error(ackErr))
		}
	case isPermanent(err):
		c.log.Warn("order_placed message rejected", zap.String("message_id", d.MessageId), zap.Error(err))
		c.nack(d, false)
	default:
		c.log.Error("order_placed message requeued", zap.String("message_id", d.MessageId), zap.Error(err))
		c.nack(d, !d.Redelivered)
	}
}

func (c *PlaceOrderConsumer) nack(d amqp091.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.log.Error("nack failed", zap.String("message_id", d.MessageId), zap.Bool("requeue", requeue), zap.Error(err))
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, service.ErrValidation) ||
		errors.Is(err, service.ErrNotFound)
}
