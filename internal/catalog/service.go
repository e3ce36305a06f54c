// Package catalog serves kitchens and their menus to browsing customers and
// lets store owners maintain their own menus.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/models"
	"homekitchen/internal/store"
)

var (
	ErrInvalidMenuItem = errors.New("invalid menu item")
	ErrInvalidKitchen  = errors.New("invalid kitchen")
	ErrNotOwner        = errors.New("kitchen belongs to another owner")
)

type Store interface {
	GetKitchen(ctx context.Context, id models.KitchenID) (models.Cook, error)
	ListKitchens(ctx context.Context, f store.KitchenFilter) ([]models.Cook, int64, error)
	CreateKitchen(ctx context.Context, cook models.Cook) (models.Cook, error)
	AddMenuItem(ctx context.Context, kitchenID primitive.ObjectID, item models.MenuItem) (models.Cook, error)
	UpdateMenuItem(ctx context.Context, kitchenID primitive.ObjectID, dishName string, item models.MenuItem) (models.Cook, error)
}

// Actor is the authenticated caller of a write.
type Actor struct {
	UserID primitive.ObjectID
	Role   string
}

type Page struct {
	Kitchens []models.Cook `json:"data"`
	Page     int64         `json:"page"`
	Limit    int64         `json:"limit"`
	Total    int64         `json:"total"`
}

// Service caches browse reads only. Checkout prices come from the store
// directly through the pricing authority.
type Service struct {
	store   Store
	cache   *Cache
	timeout time.Duration
}

func NewService(s Store, cache *Cache, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{store: s, cache: cache, timeout: timeout}
}

func (s *Service) Kitchen(ctx context.Context, id models.KitchenID) (models.Cook, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := s.cache.key("kitchen", id)
	var cook models.Cook
	if s.cache.get(ctx, key, &cook) {
		return cook, nil
	}

	cook, err := s.store.GetKitchen(ctx, id)
	if err != nil {
		return models.Cook{}, err
	}
	s.cache.set(ctx, key, cook)
	return cook, nil
}

func (s *Service) Kitchens(ctx context.Context, f store.KitchenFilter) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	f.Search = strings.TrimSpace(f.Search)
	key := s.cache.key("kitchens", s.cache.listGeneration(ctx), f.Page, f.Limit, strings.ToLower(f.Search))

	var page Page
	if s.cache.get(ctx, key, &page) {
		return page, nil
	}

	kitchens, total, err := s.store.ListKitchens(ctx, f)
	if err != nil {
		return Page{}, err
	}
	page = Page{Kitchens: kitchens, Page: f.Page, Limit: f.Limit, Total: total}
	s.cache.set(ctx, key, page)
	return page, nil
}

// CreateKitchen opens a storefront owned by the actor.
func (s *Service) CreateKitchen(ctx context.Context, actor Actor, cook models.Cook) (models.Cook, error) {
	cook.Name = strings.TrimSpace(cook.Name)
	if cook.Name == "" {
		return models.Cook{}, fmt.Errorf("%w: name is required", ErrInvalidKitchen)
	}
	for i := range cook.Menu {
		if err := validateMenuItem(&cook.Menu[i]); err != nil {
			return models.Cook{}, err
		}
	}
	cook.UserID = actor.UserID

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.store.CreateKitchen(ctx, cook)
	if err != nil {
		return models.Cook{}, err
	}
	s.cache.invalidate(ctx, created.KitchenID().String())
	log.Printf("[CATALOG] [INFO] kitchen %s created by %s", created.ID.Hex(), actor.UserID.Hex())
	return created, nil
}

func (s *Service) AddMenuItem(ctx context.Context, actor Actor, id models.KitchenID, item models.MenuItem) (models.Cook, error) {
	if err := validateMenuItem(&item); err != nil {
		return models.Cook{}, err
	}
	return s.writeMenu(ctx, actor, id, func(ctx context.Context, oid primitive.ObjectID) (models.Cook, error) {
		return s.store.AddMenuItem(ctx, oid, item)
	})
}

func (s *Service) UpdateMenuItem(ctx context.Context, actor Actor, id models.KitchenID, dishName string, item models.MenuItem) (models.Cook, error) {
	if err := validateMenuItem(&item); err != nil {
		return models.Cook{}, err
	}
	return s.writeMenu(ctx, actor, id, func(ctx context.Context, oid primitive.ObjectID) (models.Cook, error) {
		return s.store.UpdateMenuItem(ctx, oid, dishName, item)
	})
}

func (s *Service) writeMenu(ctx context.Context, actor Actor, id models.KitchenID, write func(context.Context, primitive.ObjectID) (models.Cook, error)) (models.Cook, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cook, err := s.store.GetKitchen(ctx, id)
	if err != nil {
		return models.Cook{}, err
	}
	if actor.Role != models.RoleAdmin && cook.UserID != actor.UserID {
		return models.Cook{}, ErrNotOwner
	}

	updated, err := write(ctx, cook.ID)
	if err != nil {
		return models.Cook{}, err
	}
	s.cache.invalidate(ctx, id.String())
	return updated, nil
}

func validateMenuItem(item *models.MenuItem) error {
	item.DishName = strings.TrimSpace(item.DishName)
	if item.DishName == "" {
		return fmt.Errorf("%w: dishName is required", ErrInvalidMenuItem)
	}
	if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
		return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidMenuItem)
	}
	return nil
}
