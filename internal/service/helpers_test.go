package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository/memory"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type captureEvents struct {
	events []OrderEvent
	err    error
}

func (c *captureEvents) PublishOrderEvent(_ context.Context, e OrderEvent) error {
	c.events = append(c.events, e)
	return c.err
}

type fixture struct {
	svc    *OrderService
	store  *memory.Store
	clock  *testClock
	events *captureEvents
	logs   *observer.ObservedLogs
	buyer  model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	events := &captureEvents{}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      store.Orders(),
		Products:    store.Products(),
		Warranties:  store.Warranties(),
		Users:       store.Users(),
		Events:      events,
		Logger:      zap.New(core),
		Clock:       clock.Now,
		IDGenerator: func() string { return "01J0000000000000000ABCDEFG" },
	})
	require.NoError(t, err)

	buyer := store.PutUser(model.User{Name: "Nguyen Van An", Phone: "0901234567"})
	return &fixture{svc: svc, store: store, clock: clock, events: events, logs: logs, buyer: buyer}
}

func (f *fixture) product(t *testing.T, name string, stock, months int) model.Product {
	t.Helper()
	return f.store.PutProduct(model.Product{
		Name:                 name,
		Image:                "/images/" + name + ".png",
		Price:                100,
		CountInStock:         stock,
		WarrantyPeriodMonths: months,
	})
}

func testAddress() model.Address {
	return model.Address{
		FullName: "Nguyen Van An",
		Phone:    "0901234567",
		Address:  "12 Le Loi",
		Ward:     "Ben Nghe",
		District: "District 1",
		City:     "Ho Chi Minh City",
	}
}

func (f *fixture) placeOrder(t *testing.T, buyer model.User, items ...OrderItemInput) *model.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:         buyer.ID.Hex(),
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   model.PaymentCOD,
		Price:           PriceBreakdown{ShippingPrice: 30},
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) advance(t *testing.T, orderID primitive.ObjectID, actor Actor, statuses ...string) *model.Order {
	t.Helper()
	var order *model.Order
	for _, s := range statuses {
		var err error
		order, err = f.svc.TransitionOrderStatus(context.Background(), orderID.Hex(), s, actor, "")
		require.NoError(t, err, "transition to %s", s)
	}
	return order
}

func (f *fixture) reload(t *testing.T, id primitive.ObjectID) *model.Order {
	t.Helper()
	o, err := f.store.Orders().FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (f *fixture) stock(t *testing.T, id primitive.ObjectID) model.Product {
	t.Helper()
	p, ok := f.store.Product(id)
	require.True(t, ok)
	return p
}

func item(p model.Product, qty int) OrderItemInput {
	return OrderItemInput{ProductID: p.ID.Hex(), Quantity: qty}
}

var (
	staff = Actor{ID: "staff-1"}
	admin = Actor{ID: "admin-1", IsAdmin: true}
)
