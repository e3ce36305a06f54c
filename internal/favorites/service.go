// Package favorites keeps a customer's bookmarked dishes and shows them with
// the current menu details.
package favorites

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/models"
	"homekitchen/internal/pricing"
)

var (
	ErrAlreadyFavorite = errors.New("dish is already in favorites")
	ErrNotFavorite     = errors.New("dish not found in favorites")
	ErrMissingDishName = errors.New("missing dish name")
)

// Repository stores favourites on the user document.
type Repository interface {
	Favorites(ctx context.Context, userID primitive.ObjectID) ([]models.FavoriteDish, error)
	AddFavorite(ctx context.Context, userID primitive.ObjectID, fav models.FavoriteDish) error
	RemoveFavorite(ctx context.Context, userID primitive.ObjectID, fav models.FavoriteDish) error
}

// KitchenLookup must return pricing.ErrKitchenNotFound for unknown kitchens.
type KitchenLookup interface {
	Kitchen(ctx context.Context, id models.KitchenID) (models.Cook, error)
}

// Favorite is a bookmarked dish as it currently appears on the menu.
type Favorite struct {
	KitchenID   models.KitchenID `json:"kitchenId"`
	KitchenName string           `json:"kitchenName"`
	DishName    string           `json:"dishName"`
	Description string           `json:"description,omitempty"`
	Price       float64          `json:"price"`
	Image       *string          `json:"dishImage"`
	Available   bool             `json:"available"`
}

type Service struct {
	repo     Repository
	kitchens KitchenLookup
	timeout  time.Duration
}

func NewService(repo Repository, kitchens KitchenLookup, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, kitchens: kitchens, timeout: timeout}
}

// List returns favourites in the order they were added. Entries whose kitchen
// or dish no longer exists are skipped.
func (s *Service) List(ctx context.Context, userID primitive.ObjectID) ([]Favorite, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	saved, err := s.repo.Favorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	kitchens := map[models.KitchenID]models.Cook{}
	out := make([]Favorite, 0, len(saved))
	for _, fav := range saved {
		id := models.KitchenIDFromObjectID(fav.KitchenID)
		cook, ok := kitchens[id]
		if !ok {
			cook, err = s.kitchens.Kitchen(ctx, id)
			if errors.Is(err, pricing.ErrKitchenNotFound) {
				log.Printf("[FAVORITE] [WARN] kitchen %s of a favourite is gone", id)
				continue
			}
			if err != nil {
				return nil, err
			}
			kitchens[id] = cook
		}

		dish, ok := cook.Dish(fav.DishName)
		if !ok {
			continue
		}
		out = append(out, Favorite{
			KitchenID:   id,
			KitchenName: cook.Name,
			DishName:    dish.DishName,
			Description: dish.Description,
			Price:       dish.Price,
			Image:       dish.Image,
			Available:   dish.IsAvailable(),
		})
	}
	return out, nil
}

// Add bookmarks a dish that exists on the kitchen's current menu.
func (s *Service) Add(ctx context.Context, userID primitive.ObjectID, item models.CartItem) ([]Favorite, error) {
	fav, err := s.resolve(ctx, item)
	if err != nil {
		return nil, err
	}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.AddFavorite(ctx, userID, fav)
	}); err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

// Remove drops a bookmark. The dish does not have to exist any more.
func (s *Service) Remove(ctx context.Context, userID primitive.ObjectID, item models.CartItem) ([]Favorite, error) {
	fav, err := favoriteFrom(item)
	if err != nil {
		return nil, err
	}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.RemoveFavorite(ctx, userID, fav)
	}); err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

func (s *Service) resolve(ctx context.Context, item models.CartItem) (models.FavoriteDish, error) {
	fav, err := favoriteFrom(item)
	if err != nil {
		return models.FavoriteDish{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cook, err := s.kitchens.Kitchen(ctx, models.KitchenIDFromObjectID(fav.KitchenID))
	if err != nil {
		return models.FavoriteDish{}, err
	}
	if _, err := pricing.DishFrom(cook, fav.DishName); err != nil {
		return models.FavoriteDish{}, err
	}
	return fav, nil
}

func (s *Service) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

// favoriteFrom reads the kitchen reference and dish name of a wire item.
func favoriteFrom(item models.CartItem) (models.FavoriteDish, error) {
	id, err := item.Ref()
	if err != nil {
		return models.FavoriteDish{}, err
	}
	name := strings.TrimSpace(item.DishName)
	if name == "" {
		return models.FavoriteDish{}, ErrMissingDishName
	}
	oid, err := id.ObjectID()
	if err != nil {
		return models.FavoriteDish{}, err
	}
	return models.FavoriteDish{KitchenID: oid, DishName: name}, nil
}
