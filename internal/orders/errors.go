package orders

import (
	"errors"
	"fmt"

	"homekitchen/internal/models"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrDishUnavailable   = errors.New("dish unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrDuplicateCommit   = errors.New("purchase already committed for idempotency key")
	ErrForbidden         = errors.New("purchase belongs to another customer")
)

// LineError ties a pricing failure to the cart line that caused it.
type LineError struct {
	KitchenID models.KitchenID
	DishName  string
	Err       error
}

func (e LineError) Error() string {
	return fmt.Sprintf("%s (kitchen %s, dish %q)", e.Err, e.KitchenID, e.DishName)
}

func (e LineError) Unwrap() error { return e.Err }
