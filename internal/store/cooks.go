package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homekitchen/internal/models"
	"homekitchen/internal/pricing"
)

var ErrDuplicateDish = errors.New("dish already on menu")

// Cooks reads and writes kitchen storefronts and their menus.
type Cooks struct {
	cooks *mongo.Collection
}

func NewCooks(db *mongo.Database) *Cooks {
	return &Cooks{cooks: db.Collection(CooksCollection)}
}

// KitchenFilter narrows ListKitchens. Page and Limit are 1-based; a zero
// Limit returns every match.
type KitchenFilter struct {
	Search string
	Page   int64
	Limit  int64
}

func (r *Cooks) GetKitchen(ctx context.Context, id models.KitchenID) (models.Cook, error) {
	oid, err := id.ObjectID()
	if err != nil {
		return models.Cook{}, fmt.Errorf("%w: %s", pricing.ErrKitchenNotFound, id)
	}

	var cook models.Cook
	err = r.cooks.FindOne(ctx, bson.M{"_id": oid}).Decode(&cook)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cook{}, fmt.Errorf("%w: %s", pricing.ErrKitchenNotFound, id)
	}
	if err != nil {
		return models.Cook{}, err
	}
	return cook, nil
}

func (r *Cooks) ListKitchens(ctx context.Context, f KitchenFilter) ([]models.Cook, int64, error) {
	filter := bson.M{}
	if search := strings.TrimSpace(f.Search); search != "" {
		filter["name"] = bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		findOptions.SetSkip((page - 1) * f.Limit).SetLimit(f.Limit)
	}

	total, err := r.cooks.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.cooks.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	cooks := []models.Cook{}
	if err := cursor.All(ctx, &cooks); err != nil {
		return nil, 0, err
	}
	return cooks, total, nil
}

func (r *Cooks) CreateKitchen(ctx context.Context, cook models.Cook) (models.Cook, error) {
	now := time.Now().UTC()
	cook.ID = primitive.NewObjectID()
	cook.CreatedAt = now
	cook.UpdatedAt = now
	if cook.Menu == nil {
		cook.Menu = []models.MenuItem{}
	}
	if _, err := r.cooks.InsertOne(ctx, cook); err != nil {
		return models.Cook{}, err
	}
	return cook, nil
}

// AddMenuItem appends a dish unless the kitchen already has one with the
// same name.
func (r *Cooks) AddMenuItem(ctx context.Context, kitchenID primitive.ObjectID, item models.MenuItem) (models.Cook, error) {
	filter := bson.M{"_id": kitchenID, "menu.dishName": bson.M{"$ne": item.DishName}}
	update := bson.M{
		"$push": bson.M{"menu": item},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.applyMenuUpdate(ctx, kitchenID, filter, update, ErrDuplicateDish)
}

// UpdateMenuItem replaces the named dish in place. Renaming onto another
// existing dish is rejected.
func (r *Cooks) UpdateMenuItem(ctx context.Context, kitchenID primitive.ObjectID, dishName string, item models.MenuItem) (models.Cook, error) {
	if item.DishName != dishName {
		cook, err := r.GetKitchen(ctx, models.KitchenIDFromObjectID(kitchenID))
		if err != nil {
			return models.Cook{}, err
		}
		if _, exists := cook.Dish(item.DishName); exists {
			return models.Cook{}, ErrDuplicateDish
		}
	}

	filter := bson.M{"_id": kitchenID, "menu.dishName": dishName}
	update := bson.M{"$set": bson.M{"menu.$": item, "updatedAt": time.Now().UTC()}}
	return r.applyMenuUpdate(ctx, kitchenID, filter, update, pricing.ErrDishNotFound)
}

func (r *Cooks) applyMenuUpdate(ctx context.Context, kitchenID primitive.ObjectID, filter, update bson.M, noMatch error) (models.Cook, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var cook models.Cook
	err := r.cooks.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cook)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetKitchen(ctx, models.KitchenIDFromObjectID(kitchenID)); getErr != nil {
			return models.Cook{}, getErr
		}
		return models.Cook{}, noMatch
	}
	if err != nil {
		return models.Cook{}, err
	}
	return cook, nil
}
