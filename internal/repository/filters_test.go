package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderFilterEmpty(t *testing.T) {
	assert.Equal(t, bson.M{}, orderFilter(OrderQuery{}))
}

func TestOrderFilterCombinesClauses(t *testing.T) {
	buyer := primitive.NewObjectID()
	id := primitive.NewObjectID()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	other := primitive.NewObjectID()

	got := orderFilter(OrderQuery{
		BuyerID:       buyer,
		Status:        "delivered",
		CreatedFrom:   &from,
		CreatedBefore: &before,
		Search: &OrderSearch{
			ID:            &id,
			NumberPattern: `ORD\-1`,
			BuyerIDs:      []primitive.ObjectID{other},
		},
	})

	assert.Equal(t, buyer, got["user"])
	assert.Equal(t, "delivered", got["status"])
	assert.Equal(t, bson.M{"$gte": from, "$lt": before}, got["createdAt"])

	or, ok := got["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)
	assert.Equal(t, bson.M{"_id": id}, or[0])
	assert.Equal(t, bson.M{"orderNumber": primitive.Regex{Pattern: `ORD\-1`, Options: "i"}}, or[1])
	assert.Equal(t, bson.M{"user": bson.M{"$in": []primitive.ObjectID{other}}}, or[2])
	_, hasWarranty := got["warrantyActivated"]
	assert.False(t, hasWarranty)
}

func TestOrderFilterEmptySearchIsIgnored(t *testing.T) {
	got := orderFilter(OrderQuery{Search: &OrderSearch{}, WarrantyActivated: true})
	_, hasOr := got["$or"]
	assert.False(t, hasOr)
	assert.Equal(t, true, got["warrantyActivated"])
}

func TestActiveWarrantyFilter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, bson.M{"endDate": bson.M{"$gt": now}}, activeWarrantyFilter(now, primitive.NilObjectID))

	customer := primitive.NewObjectID()
	got := activeWarrantyFilter(now, customer)
	assert.Equal(t, customer, got["customer"])
}

func TestStockDeltaPipelineClampsBothCounters(t *testing.T) {
	p := stockDeltaPipeline(-3, 3)
	require.Len(t, p, 1)

	set := p[0].(bson.M)["$set"].(bson.M)
	want := bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$countInStock", 0}}, -3}}}}
	assert.Equal(t, want, set["countInStock"])
	assert.Contains(t, set, "numSold")
}
