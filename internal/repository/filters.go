package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func orderFilter(q OrderQuery) bson.M {
	filter := bson.M{}
	if !q.BuyerID.IsZero() {
		filter["user"] = q.BuyerID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.WarrantyActivated {
		filter["warrantyActivated"] = true
	}

	created := bson.M{}
	if q.CreatedFrom != nil {
		created["$gte"] = *q.CreatedFrom
	}
	if q.CreatedBefore != nil {
		created["$lt"] = *q.CreatedBefore
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}

	if or := searchClauses(q.Search); len(or) > 0 {
		filter["$or"] = or
	}
	return filter
}

func searchClauses(s *OrderSearch) bson.A {
	if s == nil {
		return nil
	}
	or := bson.A{}
	if s.ID != nil {
		or = append(or, bson.M{"_id": *s.ID})
	}
	if s.NumberPattern != "" {
		or = append(or, bson.M{"orderNumber": primitive.Regex{Pattern: s.NumberPattern, Options: "i"}})
	}
	if len(s.BuyerIDs) > 0 {
		or = append(or, bson.M{"user": bson.M{"$in": s.BuyerIDs}})
	}
	return or
}

func activeWarrantyFilter(now time.Time, customerID primitive.ObjectID) bson.M {
	filter := bson.M{"endDate": bson.M{"$gt": now}}
	if !customerID.IsZero() {
		filter["customer"] = customerID
	}
	return filter
}

func userSearchFilter(pattern string) bson.M {
	re := primitive.Regex{Pattern: pattern, Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"phone": re},
	}}
}

// stockDeltaPipeline suma los deltas y deja ambos contadores en >= 0 en un
// solo update atómico.
func stockDeltaPipeline(quantityDelta, soldDelta int) bson.A {
	clamp := func(field string, delta int) bson.M {
		return bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, delta}}}}
	}
	return bson.A{
		bson.M{"$set": bson.M{
			"countInStock": clamp("countInStock", quantityDelta),
			"numSold":      clamp("numSold", soldDelta),
		}},
	}
}
