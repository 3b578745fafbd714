package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
)

func TestOrdersAreCopiedInAndOut(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	o := &model.Order{Status: model.StatusPending, OrderItems: []model.LineItem{{Name: "phone", Quantity: 1}}}
	require.NoError(t, s.Orders().Insert(ctx, o))
	require.False(t, o.ID.IsZero())

	o.OrderItems[0].Name = "mutated"
	got, err := s.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "phone", got.OrderItems[0].Name)

	got.Status = model.StatusProcessing
	require.NoError(t, s.Orders().Save(ctx, got))
	again, _ := s.Orders().FindByID(ctx, o.ID)
	assert.Equal(t, model.StatusProcessing, again.Status)

	assert.ErrorIs(t, s.Orders().Insert(ctx, again), repository.ErrDuplicate)
	assert.ErrorIs(t, s.Orders().Save(ctx, &model.Order{ID: primitive.NewObjectID()}), repository.ErrNotFound)
	_, err = s.Orders().FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderQuery(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []string{model.StatusPending, model.StatusDelivered, model.StatusDelivered} {
		require.NoError(t, s.Orders().Insert(ctx, &model.Order{
			OrderNumber:       []string{"ORD-A", "ORD-B", "ORD-C"}[i],
			User:              model.Unresolved[model.User](buyer),
			Status:            status,
			WarrantyActivated: i == 2,
			CreatedAt:         base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.Orders().Insert(ctx, &model.Order{OrderNumber: "ORD-D", Status: model.StatusDelivered}))

	got, err := s.Orders().Find(ctx, repository.OrderQuery{BuyerID: buyer, Status: model.StatusDelivered})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ORD-C", got[0].OrderNumber)

	n, err := s.Orders().Count(ctx, repository.OrderQuery{WarrantyActivated: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	page, err := s.Orders().Find(ctx, repository.OrderQuery{BuyerID: buyer, Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "ORD-B", page[0].OrderNumber)

	got, err = s.Orders().Find(ctx, repository.OrderQuery{Search: &repository.OrderSearch{NumberPattern: "ord-a"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ORD-A", got[0].OrderNumber)
}

func TestAdjustStock(t *testing.T) {
	s := NewStore()
	p := s.PutProduct(model.Product{Name: "phone", CountInStock: 1})

	got, err := s.Products().AdjustStock(context.Background(), p.ID, -4, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CountInStock)
	assert.Equal(t, 4, got.NumSold)

	_, err = s.Products().AdjustStock(context.Background(), primitive.NewObjectID(), 1, 0)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWarrantiesUniquePerOrderProduct(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	orderID, productID, customer := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	w := &model.Warranty{Order: orderID, Product: productID, Customer: customer, EndDate: now.Add(time.Hour)}
	require.NoError(t, s.Warranties().Insert(ctx, w))
	assert.ErrorIs(t, s.Warranties().Insert(ctx, &model.Warranty{Order: orderID, Product: productID}), repository.ErrDuplicate)

	ok, err := s.Warranties().Exists(ctx, orderID, productID)
	require.NoError(t, err)
	assert.True(t, ok)

	expired := &model.Warranty{Order: orderID, Product: primitive.NewObjectID(), Customer: customer, EndDate: now}
	require.NoError(t, s.Warranties().Insert(ctx, expired))

	active, err := s.Warranties().FindActive(ctx, now, customer)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, w.ID, active[0].ID)

	active, err = s.Warranties().FindActive(ctx, now, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUserSearch(t *testing.T) {
	s := NewStore()
	an := s.PutUser(model.User{Name: "Nguyen Van An", Phone: "0901234567"})
	s.PutUser(model.User{Name: "Tran Thi Binh", Phone: "0987654321"})

	ids, err := s.Users().SearchIDs(context.Background(), "van an")
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{an.ID}, ids)

	ids, err = s.Users().SearchIDs(context.Background(), "0901")
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{an.ID}, ids)

	users, err := s.Users().FindByIDs(context.Background(), []primitive.ObjectID{an.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Nguyen Van An", users[0].Name)
}
