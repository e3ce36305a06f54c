package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	return ensureIndexes(db, "users", mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	})
}

// EnsurePurchaseIndexes backs history reads and makes the idempotency key
// unique per customer.
func EnsurePurchaseIndexes(db *mongo.Database) error {
	return ensureIndexes(db, "purchases",
		mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "purchasedAt", Value: -1}},
			Options: options.Index().SetName("userId_purchasedAt"),
		},
		mongo.IndexModel{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetName("userId_idempotencyKey_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"idempotencyKey": bson.M{
						"$exists": true,
					},
				}),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "items.kitchenId", Value: 1}},
			Options: options.Index().SetName("items_kitchenId"),
		},
	)
}

func EnsureCookIndexes(db *mongo.Database) error {
	return ensureIndexes(db, "cooks", mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_index"),
	})
}

func ensureIndexes(db *mongo.Database, collection string, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("EnsureIndexes: creating %d index(es) on %s", len(models), collection)
	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		log.Printf("EnsureIndexes: %s index error: %v", collection, err)
		return err
	}
	log.Printf("EnsureIndexes: %s indexes ready: %v", collection, names)
	return nil
}
