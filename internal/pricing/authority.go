package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homekitchen/internal/models"
)

var (
	ErrKitchenNotFound = errors.New("kitchen not found")
	ErrDishNotFound    = errors.New("dish not found")
	ErrTimeout         = errors.New("pricing lookup timed out")
)

// Catalog is the kitchen/menu collaborator. GetKitchen must return
// ErrKitchenNotFound when no kitchen has the given id.
type Catalog interface {
	GetKitchen(ctx context.Context, id models.KitchenID) (models.Cook, error)
}

// Authority resolves current menu prices. It is the only source of price at
// commit time; prices carried by cart lines are display snapshots.
type Authority struct {
	catalog Catalog
	timeout time.Duration
}

func NewAuthority(catalog Catalog, timeout time.Duration) *Authority {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Authority{catalog: catalog, timeout: timeout}
}

// Kitchen loads a kitchen with the authority's bounded timeout.
func (a *Authority) Kitchen(ctx context.Context, id models.KitchenID) (models.Cook, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cook, err := a.catalog.GetKitchen(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Cook{}, fmt.Errorf("%w: kitchen %s", ErrTimeout, id)
		}
		return models.Cook{}, err
	}
	return cook, nil
}

// Resolve returns the menu entry for dishName in the given kitchen.
func (a *Authority) Resolve(ctx context.Context, id models.KitchenID, dishName string) (models.MenuItem, error) {
	cook, err := a.Kitchen(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	return DishFrom(cook, dishName)
}

// ResolvePrice returns only the canonical price.
func (a *Authority) ResolvePrice(ctx context.Context, id models.KitchenID, dishName string) (float64, error) {
	dish, err := a.Resolve(ctx, id, dishName)
	if err != nil {
		return 0, err
	}
	return dish.Price, nil
}

// DishFrom looks up a dish by exact name in an already loaded kitchen.
func DishFrom(cook models.Cook, dishName string) (models.MenuItem, error) {
	dish, ok := cook.Dish(dishName)
	if !ok {
		return models.MenuItem{}, fmt.Errorf("%w: %q in kitchen %s", ErrDishNotFound, dishName, cook.KitchenID())
	}
	return dish, nil
}
