package favorites

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/models"
	"homekitchen/internal/pricing"
)

type memoryRepo struct {
	favs map[primitive.ObjectID][]models.FavoriteDish
}

func (m *memoryRepo) Favorites(ctx context.Context, userID primitive.ObjectID) ([]models.FavoriteDish, error) {
	out := append([]models.FavoriteDish{}, m.favs[userID]...)
	return out, nil
}

func (m *memoryRepo) AddFavorite(ctx context.Context, userID primitive.ObjectID, fav models.FavoriteDish) error {
	for _, f := range m.favs[userID] {
		if f == fav {
			return ErrAlreadyFavorite
		}
	}
	m.favs[userID] = append(m.favs[userID], fav)
	return nil
}

func (m *memoryRepo) RemoveFavorite(ctx context.Context, userID primitive.ObjectID, fav models.FavoriteDish) error {
	list := m.favs[userID]
	for i, f := range list {
		if f == fav {
			m.favs[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFavorite
}

type memoryKitchens map[models.KitchenID]models.Cook

func (k memoryKitchens) Kitchen(ctx context.Context, id models.KitchenID) (models.Cook, error) {
	cook, ok := k[id]
	if !ok {
		return models.Cook{}, fmt.Errorf("%w: %s", pricing.ErrKitchenNotFound, id)
	}
	return cook, nil
}

func newTestService() (*Service, *memoryRepo, models.Cook) {
	off := false
	cook := models.Cook{
		ID:   primitive.NewObjectID(),
		Name: "Om Hassan",
		Menu: []models.MenuItem{
			{DishName: "Koshary", Price: 45, Description: "lentils and rice"},
			{DishName: "Mahshi", Price: 80, Available: &off},
		},
	}
	repo := &memoryRepo{favs: map[primitive.ObjectID][]models.FavoriteDish{}}
	svc := NewService(repo, memoryKitchens{cook.KitchenID(): cook}, time.Second)
	return svc, repo, cook
}

func dish(kitchenID, chefID, name string) models.CartItem {
	return models.CartItem{KitchenID: kitchenID, ChefID: chefID, DishName: name}
}

func TestAddListsCurrentMenuDetails(t *testing.T) {
	svc, _, cook := newTestService()
	user := primitive.NewObjectID()

	favs, err := svc.Add(context.Background(), user, dish(cook.ID.Hex(), "", "Koshary"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	favs, err = svc.Add(context.Background(), user, dish("", cook.ID.Hex(), "Mahshi"))
	if err != nil {
		t.Fatalf("add by chefId failed: %v", err)
	}

	if len(favs) != 2 {
		t.Fatalf("expected 2 favourites, got %d", len(favs))
	}
	if favs[0].DishName != "Koshary" || favs[0].Price != 45 || favs[0].KitchenName != "Om Hassan" || !favs[0].Available {
		t.Fatalf("unexpected first favourite %+v", favs[0])
	}
	if favs[1].Available {
		t.Fatalf("expected Mahshi to be unavailable, got %+v", favs[1])
	}
}

func TestAddRejectsDuplicatesAndUnknownDishes(t *testing.T) {
	svc, _, cook := newTestService()
	user := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.Add(ctx, user, dish(cook.ID.Hex(), "", "Koshary")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Add(ctx, user, dish(cook.ID.Hex(), "", "Koshary")); !errors.Is(err, ErrAlreadyFavorite) {
		t.Fatalf("expected ErrAlreadyFavorite, got %v", err)
	}
	if _, err := svc.Add(ctx, user, dish(cook.ID.Hex(), "", "Fatta")); !errors.Is(err, pricing.ErrDishNotFound) {
		t.Fatalf("expected ErrDishNotFound, got %v", err)
	}
	if _, err := svc.Add(ctx, user, dish(primitive.NewObjectID().Hex(), "", "Koshary")); !errors.Is(err, pricing.ErrKitchenNotFound) {
		t.Fatalf("expected ErrKitchenNotFound, got %v", err)
	}
	if _, err := svc.Add(ctx, user, dish("", "", "Koshary")); !errors.Is(err, models.ErrMissingIdentifier) {
		t.Fatalf("expected ErrMissingIdentifier, got %v", err)
	}
	if _, err := svc.Add(ctx, user, dish(cook.ID.Hex(), "", "  ")); !errors.Is(err, ErrMissingDishName) {
		t.Fatalf("expected ErrMissingDishName, got %v", err)
	}
}

func TestRemoveAndSkipVanishedDishes(t *testing.T) {
	svc, repo, cook := newTestService()
	user := primitive.NewObjectID()
	ctx := context.Background()

	repo.favs[user] = []models.FavoriteDish{
		{KitchenID: cook.ID, DishName: "Koshary"},
		{KitchenID: cook.ID, DishName: "Retired dish"},
		{KitchenID: primitive.NewObjectID(), DishName: "Koshary"},
	}
	favs, err := svc.List(ctx, user)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(favs) != 1 || favs[0].DishName != "Koshary" {
		t.Fatalf("expected only the live dish, got %+v", favs)
	}

	if _, err := svc.Remove(ctx, user, dish(cook.ID.Hex(), "", "Retired dish")); err != nil {
		t.Fatalf("removing a vanished dish failed: %v", err)
	}
	if _, err := svc.Remove(ctx, user, dish(cook.ID.Hex(), "", "Retired dish")); !errors.Is(err, ErrNotFavorite) {
		t.Fatalf("expected ErrNotFavorite, got %v", err)
	}
	if len(repo.favs[user]) != 2 {
		t.Fatalf("expected 2 stored favourites, got %d", len(repo.favs[user]))
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc, _, _ := newTestService()
	favs, err := svc.List(context.Background(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if favs == nil || len(favs) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", favs)
	}
}
