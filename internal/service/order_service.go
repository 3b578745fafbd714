package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/model"
)

// Transiciones permitidas. cancelled es final; delivered solo puede pasar a
// cancelled, y eso devuelve el stock.
var orderTransitions = map[string][]string{
	model.StatusPending:    {model.StatusProcessing, model.StatusCancelled},
	model.StatusProcessing: {model.StatusShipping, model.StatusCancelled},
	model.StatusShipping:   {model.StatusDelivered, model.StatusCancelled},
	model.StatusDelivered:  {model.StatusCancelled},
}

var validStatuses = map[string]bool{
	model.StatusPending:    true,
	model.StatusProcessing: true,
	model.StatusShipping:   true,
	model.StatusDelivered:  true,
	model.StatusCancelled:  true,
}

// Estados desde los que el comprador puede cancelar.
var customerCancellable = []string{model.StatusPending, model.StatusProcessing}

const priceTolerance = 0.01

var validPaymentMethods = []string{model.PaymentCOD, model.PaymentBankTransfer, model.PaymentCard}

// IsValidStatus indica si s es uno de los cinco estados de la orden.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// CanTransition indica si from -> to está en la tabla de transiciones.
func CanTransition(from, to string) bool {
	return slices.Contains(orderTransitions[from], to)
}

type OrderItemInput struct {
	ProductID string
	Quantity  int
}

type PriceBreakdown struct {
	ShippingPrice float64
	TotalPrice    float64
}

type CreateOrderInput struct {
	BuyerID         string
	Items           []OrderItemInput
	ShippingAddress model.Address
	PaymentMethod   string
	Price           PriceBreakdown
}

// CreateOrder crea una orden pendiente con la foto de cada producto.
// Los precios se recalculan desde esa foto; si el total que manda el cliente
// no coincide, se rechaza.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	buyerID, err := parseID("buyer", in.BuyerID)
	if err != nil {
		return nil, err
	}
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	items := make([]model.LineItem, 0, len(in.Items))
	var itemsPrice float64
	for _, it := range in.Items {
		productID, err := parseID("product", it.ProductID)
		if err != nil {
			return nil, err
		}
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, mapRepositoryError(err, "product "+it.ProductID)
		}
		items = append(items, model.LineItem{
			Product:              model.Unresolved[model.Product](p.ID),
			Name:                 p.Name,
			Image:                p.Image,
			Price:                p.Price,
			Quantity:             it.Quantity,
			WarrantyPeriodMonths: p.WarrantyPeriodMonths,
		})
		itemsPrice += p.Price * float64(it.Quantity)
	}

	total := itemsPrice + in.Price.ShippingPrice
	if in.Price.TotalPrice > 0 && math.Abs(in.Price.TotalPrice-total) > priceTolerance {
		return nil, fmt.Errorf("%w: total price %.2f does not match items %.2f plus shipping %.2f",
			ErrValidation, in.Price.TotalPrice, itemsPrice, in.Price.ShippingPrice)
	}

	now := s.clock()
	order := &model.Order{
		OrderNumber:     s.orderNumber(now),
		User:            model.Unresolved[model.User](buyerID),
		OrderItems:      items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      itemsPrice,
		ShippingPrice:   in.Price.ShippingPrice,
		TotalPrice:      total,
		Status:          model.StatusPending,
		StatusHistory: []model.StatusRecord{{
			Status:    model.StatusPending,
			UpdatedBy: buyerID.Hex(),
			Note:      "Order placed",
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(order.OrderItems)),
	)
	return order, nil
}

func validateOrderInput(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for product %s", ErrValidation, it.ProductID)
		}
	}
	a := in.ShippingAddress
	if strings.TrimSpace(a.FullName) == "" || strings.TrimSpace(a.Phone) == "" ||
		strings.TrimSpace(a.Address) == "" || strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("%w: shipping address requires fullName, phone, address and city", ErrValidation)
	}
	if !slices.Contains(validPaymentMethods, in.PaymentMethod) {
		return fmt.Errorf("%w: unsupported payment method %q", ErrValidation, in.PaymentMethod)
	}
	if in.Price.ShippingPrice < 0 {
		return fmt.Errorf("%w: shipping price cannot be negative", ErrValidation)
	}
	return nil
}

func (s *OrderService) orderNumber(now time.Time) string {
	id := s.newID()
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(id))
}

// TransitionOrderStatus mueve la orden según la tabla de estados y ejecuta los
// efectos de stock y garantía. Si un efecto falla, solo se loguea.
func (s *OrderService) TransitionOrderStatus(ctx context.Context, orderID, newStatus string, actor Actor, note string) (*model.Order, error) {
	if !IsValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, newStatus, actor, note, false)
}

// CancelOwnOrder permite al comprador cancelar una orden pending o processing.
func (s *OrderService) CancelOwnOrder(ctx context.Context, orderID, buyerID string) (*model.Order, error) {
	order, err := s.loadOwnOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(customerCancellable, order.Status) {
		return nil, fmt.Errorf("%w: an order in status %q cannot be cancelled", ErrInvalidState, order.Status)
	}
	return s.transition(ctx, order, model.StatusCancelled, Actor{ID: buyerID}, "Cancelled by customer", true)
}

// ConfirmDelivery permite al comprador confirmar que recibió una orden en
// shipping. Como no es una entrega de admin, crea los registros de garantía.
func (s *OrderService) ConfirmDelivery(ctx context.Context, orderID, buyerID string) (*model.Order, error) {
	order, err := s.loadOwnOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.StatusShipping {
		return nil, fmt.Errorf("%w: only shipping orders can be confirmed, got %q", ErrInvalidState, order.Status)
	}
	return s.transition(ctx, order, model.StatusDelivered, Actor{ID: buyerID}, "Delivery confirmed by customer", true)
}

// ActivateWarranty activa a mano la garantía de una orden entregada que nunca
// la activó o a la que le faltan registros.
func (s *OrderService) ActivateWarranty(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.StatusDelivered {
		return nil, fmt.Errorf("%w: warranty requires a delivered order, got %q", ErrInvalidState, order.Status)
	}

	s.warranty.Activate(ctx, order, false)
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, mapRepositoryError(err, "order "+orderID)
	}
	return order, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*model.Order, error) {
	id, err := parseID("order", orderID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, "order "+orderID)
	}
	return order, nil
}

// loadOwnOrder devuelve el mismo error para órdenes inexistentes y ajenas.
func (s *OrderService) loadOwnOrder(ctx context.Context, orderID, buyerID string) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return nil, ErrOwnership
	}
	if err != nil {
		return nil, err
	}
	if order.User.ID.Hex() != strings.TrimSpace(buyerID) {
		return nil, ErrOwnership
	}
	return order, nil
}

func (s *OrderService) transition(ctx context.Context, order *model.Order, target string, actor Actor, note string, customerPath bool) (*model.Order, error) {
	prev := order.Status
	if !CanTransition(prev, target) {
		return nil, fmt.Errorf("%w: %s -> %s is not allowed", ErrInvalidState, prev, target)
	}

	now := s.clock()
	order.StatusHistory = append(order.StatusHistory, model.StatusRecord{
		Status:    target,
		UpdatedBy: actor.ID,
		Note:      strings.TrimSpace(note),
		Timestamp: now,
	})
	order.Status = target

	switch target {
	case model.StatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
		if order.PaymentMethod == model.PaymentCOD && !order.IsPaid {
			order.IsPaid = true
			order.PaidAt = &now
		}
		s.stock.Deliver(ctx, order)
		s.warranty.Activate(ctx, order, actor.IsAdmin)
	case model.StatusCancelled:
		if prev == model.StatusDelivered || (customerPath && prev == model.StatusProcessing) {
			s.stock.Restock(ctx, order)
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, mapRepositoryError(err, "order "+order.ID.Hex())
	}

	s.log.Info("order status changed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("from", prev),
		zap.String("to", target),
		zap.String("actor_id", actor.ID),
		zap.Bool("actor_is_admin", actor.IsAdmin),
	)

	event := OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        order.ID.Hex(),
		OrderNumber:    order.OrderNumber,
		PreviousStatus: prev,
		CurrentStatus:  target,
		ActorID:        actor.ID,
		OccurredAt:     now,
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.log.Warn("order event not published", zap.String("order_id", event.OrderID), zap.Error(err))
	}
	return order, nil
}

// buyerIDs junta los ids de compradores sin repetir, en orden de aparición.
func buyerIDs(orders []*model.Order) []primitive.ObjectID {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, o := range orders {
		if o.User.IsZero() || seen[o.User.ID] {
			continue
		}
		seen[o.User.ID] = true
		ids = append(ids, o.User.ID)
	}
	return ids
}
