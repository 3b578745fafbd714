package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	Save(ctx context.Context, o *model.Order) error
	Find(ctx context.Context, q repository.OrderQuery) ([]*model.Order, error)
	Count(ctx context.Context, q repository.OrderQuery) (int64, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Product, error)
	AdjustStock(ctx context.Context, id primitive.ObjectID, quantityDelta, soldDelta int) (*model.Product, error)
}

type WarrantyRepository interface {
	Exists(ctx context.Context, orderID, productID primitive.ObjectID) (bool, error)
	Insert(ctx context.Context, w *model.Warranty) error
	FindActive(ctx context.Context, now time.Time, customerID primitive.ObjectID) ([]*model.Warranty, error)
}

type UserRepository interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error)
	SearchIDs(ctx context.Context, pattern string) ([]primitive.ObjectID, error)
}

// Errores de negocio exportados (el controller los mapea a códigos HTTP)
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid order state")
	ErrOwnership    = errors.New("order not found or not permitted")
)

// Actor es quien pide el cambio de estado.
type Actor struct {
	ID      string
	IsAdmin bool
}

type OrderServiceDeps struct {
	Orders      OrderRepository
	Products    ProductRepository
	Warranties  WarrantyRepository
	Users       UserRepository
	Events      OrderEventPublisher
	Logger      *zap.Logger
	Clock       func() time.Time
	IDGenerator func() string
}

type OrderService struct {
	orders     OrderRepository
	products   ProductRepository
	warranties WarrantyRepository
	users      UserRepository
	stock      *StockLedger
	warranty   *WarrantyEngine
	events     OrderEventPublisher
	log        *zap.Logger
	clock      func() time.Time
	newID      func() string
}

func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	switch {
	case deps.Orders == nil:
		return nil, errors.New("order service: order repository is required")
	case deps.Products == nil:
		return nil, errors.New("order service: product repository is required")
	case deps.Warranties == nil:
		return nil, errors.New("order service: warranty repository is required")
	case deps.Users == nil:
		return nil, errors.New("order service: user repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	utc := func() time.Time { return clock().UTC() }
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	events := deps.Events
	if events == nil {
		events = noopPublisher{}
	}

	return &OrderService{
		orders:     deps.Orders,
		products:   deps.Products,
		warranties: deps.Warranties,
		users:      deps.Users,
		stock:      NewStockLedger(deps.Products, logger),
		warranty:   NewWarrantyEngine(deps.Warranties, logger, utc, newID),
		events:     events,
		log:        logger,
		clock:      utc,
		newID:      newID,
	}, nil
}

func parseID(kind, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid %s id %q", ErrValidation, kind, hex)
	}
	return id, nil
}

func mapRepositoryError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
