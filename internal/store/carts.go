package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homekitchen/internal/cart"
	"homekitchen/internal/models"
)

// Carts keeps each customer's cart embedded in their user document.
type Carts struct {
	users *mongo.Collection
}

func NewCarts(db *mongo.Database) *Carts {
	return &Carts{users: db.Collection(UsersCollection)}
}

func (r *Carts) Load(ctx context.Context, customerID primitive.ObjectID) (cart.Snapshot, error) {
	var doc struct {
		Cart        []models.CartItem `bson:"cart"`
		CartVersion int64             `bson:"cartVersion"`
	}
	opts := options.FindOne().SetProjection(bson.M{"cart": 1, "cartVersion": 1})
	err := r.users.FindOne(ctx, bson.M{"_id": customerID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cart.Snapshot{}, cart.ErrCustomerNotFound
	}
	if err != nil {
		return cart.Snapshot{}, err
	}
	return cart.Snapshot{Items: doc.Cart, Version: doc.CartVersion}, nil
}

func (r *Carts) Save(ctx context.Context, customerID primitive.ObjectID, items []models.CartItem, expectedVersion int64) (int64, error) {
	if items == nil {
		items = []models.CartItem{}
	}
	filter := bson.M{"_id": customerID, "cartVersion": versionFilter(expectedVersion)}
	update := bson.M{
		"$set": bson.M{"cart": items, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"cartVersion": 1},
	}

	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		n, err := r.users.CountDocuments(ctx, bson.M{"_id": customerID})
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, cart.ErrCustomerNotFound
		}
		return 0, cart.ErrVersionConflict
	}
	return expectedVersion + 1, nil
}
