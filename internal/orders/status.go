package orders

import (
	"fmt"

	"homekitchen/internal/models"
)

// Transition validates a status change. Only pending purchases move, and only
// to completed or cancelled.
func Transition(from, to models.PurchaseStatus) error {
	if from == models.StatusPending && (to == models.StatusCompleted || to == models.StatusCancelled) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func ParseStatus(raw string) (models.PurchaseStatus, error) {
	switch s := models.PurchaseStatus(raw); s {
	case models.StatusPending, models.StatusCompleted, models.StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, raw)
	}
}
