package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homekitchen/internal/favorites"
	"homekitchen/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type Users struct {
	users *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{users: db.Collection(UsersCollection)}
}

// Create stores a new account with an empty cart at version 0.
func (r *Users) Create(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Cart = []models.CartItem{}
	user.CartVersion = 0
	user.OrderHistory = []models.OrderHistoryEntry{}
	user.Favorites = []models.FavoriteDish{}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *Users) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *Users) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *Users) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Favorites returns the user's bookmarked dishes in the order they were added.
func (r *Users) Favorites(ctx context.Context, userID primitive.ObjectID) ([]models.FavoriteDish, error) {
	var doc struct {
		Favorites []models.FavoriteDish `bson:"favorites"`
	}
	opts := options.FindOne().SetProjection(bson.M{"favorites": 1})
	err := r.users.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if doc.Favorites == nil {
		doc.Favorites = []models.FavoriteDish{}
	}
	return doc.Favorites, nil
}

// AddFavorite appends the dish unless the same kitchen and dish name is
// already bookmarked.
func (r *Users) AddFavorite(ctx context.Context, userID primitive.ObjectID, fav models.FavoriteDish) error {
	filter := bson.M{
		"_id": userID,
		"favorites": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"kitchenId": fav.KitchenID,
			"dishName":  fav.DishName,
		}}},
	}
	update := bson.M{
		"$push": bson.M{"favorites": fav},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missingUserOr(ctx, userID, favorites.ErrAlreadyFavorite)
	}
	return nil
}

func (r *Users) RemoveFavorite(ctx context.Context, userID primitive.ObjectID, fav models.FavoriteDish) error {
	update := bson.M{
		"$pull": bson.M{"favorites": bson.M{"kitchenId": fav.KitchenID, "dishName": fav.DishName}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	filter := bson.M{"_id": userID, "favorites": bson.M{"$elemMatch": bson.M{
		"kitchenId": fav.KitchenID,
		"dishName":  fav.DishName,
	}}}

	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missingUserOr(ctx, userID, favorites.ErrNotFavorite)
	}
	return nil
}

// missingUserOr returns ErrUserNotFound when the user does not exist and
// fallback otherwise.
func (r *Users) missingUserOr(ctx context.Context, userID primitive.ObjectID, fallback error) error {
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return fallback
}
