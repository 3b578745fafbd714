package repository

import (
	"context"
	"time"

	"order-lifecycle-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoWarrantyRepository struct {
	col *mongo.Collection
}

func NewMongoWarrantyRepository(db *mongo.Database) *MongoWarrantyRepository {
	return &MongoWarrantyRepository{col: db.Collection("warranties")}
}

func (m *MongoWarrantyRepository) Exists(ctx context.Context, orderID, productID primitive.ObjectID) (bool, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{"order": orderID, "product": productID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *MongoWarrantyRepository) Insert(ctx context.Context, w *model.Warranty) error {
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	_, err := m.col.InsertOne(ctx, w)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// FindActive devuelve las garantías que vencen después de now. Con customerID
// en cero trae todos los clientes.
func (m *MongoWarrantyRepository) FindActive(ctx context.Context, now time.Time, customerID primitive.ObjectID) ([]*model.Warranty, error) {
	cur, err := m.col.Find(ctx, activeWarrantyFilter(now, customerID), options.Find().SetSort(bson.D{{Key: "endDate", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Warranty
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
