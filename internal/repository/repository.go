package repository

import (
	"context"
	"errors"
	"time"

	"order-lifecycle-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// OrderQuery filtra la búsqueda de órdenes. Los campos en cero se ignoran.
type OrderQuery struct {
	BuyerID           primitive.ObjectID
	Status            string
	CreatedFrom       *time.Time
	CreatedBefore     *time.Time
	WarrantyActivated bool
	Search            *OrderSearch
	Skip              int64
	Limit             int64
}

// OrderSearch matchea si se cumple cualquiera de sus cláusulas.
type OrderSearch struct {
	ID            *primitive.ObjectID
	NumberPattern string
	BuyerIDs      []primitive.ObjectID
}

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

func (m *MongoOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err := m.col.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Save reemplaza el documento completo. Con saves concurrentes gana el último.
func (m *MongoOrderRepository) Save(ctx context.Context, o *model.Order) error {
	o.UpdatedAt = time.Now().UTC()
	r, err := m.col.ReplaceOne(ctx, bson.M{"_id": o.ID}, o)
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoOrderRepository) Find(ctx context.Context, q OrderQuery) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := m.col.Find(ctx, orderFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*model.Order{}
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func (m *MongoOrderRepository) Count(ctx context.Context, q OrderQuery) (int64, error) {
	return m.col.CountDocuments(ctx, orderFilter(q))
}
