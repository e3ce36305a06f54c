package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homekitchen/internal/cart"
	"homekitchen/internal/models"
	"homekitchen/internal/orders"
)

// Purchases is the purchase store. Commit needs a replica set because it runs
// inside a multi-document transaction.
type Purchases struct {
	db        *mongo.Database
	purchases *mongo.Collection
	users     *mongo.Collection
	carts     *Carts
}

func NewPurchases(db *mongo.Database) *Purchases {
	return &Purchases{
		db:        db,
		purchases: db.Collection(PurchasesCollection),
		users:     db.Collection(UsersCollection),
		carts:     NewCarts(db),
	}
}

func (r *Purchases) LoadCart(ctx context.Context, customerID primitive.ObjectID) (cart.Snapshot, error) {
	return r.carts.Load(ctx, customerID)
}

func (r *Purchases) FindByIdempotencyKey(ctx context.Context, customerID primitive.ObjectID, key string) (models.Purchase, error) {
	var p models.Purchase
	err := r.purchases.FindOne(ctx, bson.M{"userId": customerID, "idempotencyKey": key}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Purchase{}, orders.ErrPurchaseNotFound
	}
	return p, err
}

// Commit inserts the purchase, links it from the customer's order history and
// empties the cart in one transaction. The user update is guarded by the cart
// version the purchase was priced from.
func (r *Purchases) Commit(ctx context.Context, purchase models.Purchase) (models.Purchase, error) {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return models.Purchase{}, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.purchases.InsertOne(sessCtx, purchase)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, orders.ErrDuplicateCommit
			}
			return nil, err
		}
		id, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("unexpected inserted id %v", res.InsertedID)
		}

		filter := bson.M{"_id": purchase.UserID, "cartVersion": versionFilter(purchase.CartVersion)}
		update := bson.M{
			"$set":  bson.M{"cart": []models.CartItem{}, "updatedAt": purchase.PurchasedAt},
			"$inc":  bson.M{"cartVersion": 1},
			"$push": bson.M{"orderHistory": models.OrderHistoryEntry{PurchaseID: id}},
		}
		upd, err := r.users.UpdateOne(sessCtx, filter, update)
		if err != nil {
			return nil, err
		}
		if upd.MatchedCount == 0 {
			return nil, cart.ErrVersionConflict
		}
		return id, nil
	})
	if err != nil {
		return models.Purchase{}, err
	}

	purchase.ID = result.(primitive.ObjectID)
	return purchase, nil
}

func (r *Purchases) ClearCartAt(ctx context.Context, customerID primitive.ObjectID, version int64) (bool, error) {
	filter := bson.M{"_id": customerID, "cartVersion": versionFilter(version)}
	update := bson.M{
		"$set": bson.M{"cart": []models.CartItem{}, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"cartVersion": 1},
	}
	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *Purchases) FindByID(ctx context.Context, id primitive.ObjectID) (models.Purchase, error) {
	var p models.Purchase
	err := r.purchases.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Purchase{}, orders.ErrPurchaseNotFound
	}
	return p, err
}

func (r *Purchases) History(ctx context.Context, customerID primitive.ObjectID) ([]models.Purchase, error) {
	opts := options.Find().SetSort(bson.D{{Key: "purchasedAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.purchases.Find(ctx, bson.M{"userId": customerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	purchases := []models.Purchase{}
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}

// UpdateStatus only applies while the purchase is still in status from.
func (r *Purchases) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.PurchaseStatus) (models.Purchase, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	var p models.Purchase
	err := r.purchases.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return models.Purchase{}, findErr
		}
		return models.Purchase{}, fmt.Errorf("%w: status changed concurrently", orders.ErrInvalidTransition)
	}
	if err != nil {
		return models.Purchase{}, err
	}
	return p, nil
}

// KitchenPurchases lists purchases containing the kitchen's dishes, with the
// items narrowed to that kitchen.
func (r *Purchases) KitchenPurchases(ctx context.Context, kitchenID primitive.ObjectID) ([]orders.KitchenPurchase, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"items.kitchenId": kitchenID}}},
		{{Key: "$sort", Value: bson.D{{Key: "purchasedAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$project", Value: bson.M{
			"userId":      1,
			"status":      1,
			"purchasedAt": 1,
			"items": bson.M{"$filter": bson.M{
				"input": "$items",
				"as":    "item",
				"cond":  bson.M{"$eq": bson.A{"$$item.kitchenId", kitchenID}},
			}},
		}}},
	}

	cursor, err := r.purchases.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []orders.KitchenPurchase{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// KitchenStats sums quantity and revenue of the kitchen's items over
// non-cancelled purchases.
func (r *Purchases) KitchenStats(ctx context.Context, kitchenID primitive.ObjectID) (orders.KitchenStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"items.kitchenId": kitchenID,
			"status":          bson.M{"$ne": models.StatusCancelled},
		}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$match", Value: bson.M{"items.kitchenId": kitchenID}}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalSales":   bson.M{"$sum": "$items.quantity"},
			"purchaseIds":  bson.M{"$addToSet": "$_id"},
			"totalRevenue": bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.price", "$items.quantity"}}},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"totalSales":   1,
			"totalRevenue": 1,
			"totalOrders":  bson.M{"$size": "$purchaseIds"},
		}}},
	}

	cursor, err := r.purchases.Aggregate(ctx, pipeline)
	if err != nil {
		return orders.KitchenStats{}, err
	}
	defer cursor.Close(ctx)

	var stats orders.KitchenStats
	if cursor.Next(ctx) {
		if err := cursor.Decode(&stats); err != nil {
			return orders.KitchenStats{}, err
		}
	}
	return stats, cursor.Err()
}
