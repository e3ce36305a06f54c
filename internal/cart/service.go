package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/models"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrVersionConflict  = errors.New("cart modified concurrently")
	ErrCartConflict     = errors.New("cart update conflict")
)

const maxWriteAttempts = 3

// Snapshot is the stored cart together with the version it was read at.
type Snapshot struct {
	Items   []models.CartItem
	Version int64
}

// Repository stores the server-side cart of a customer. Save must only apply
// when the stored version still equals expectedVersion, otherwise it returns
// ErrVersionConflict.
type Repository interface {
	Load(ctx context.Context, customerID primitive.ObjectID) (Snapshot, error)
	Save(ctx context.Context, customerID primitive.ObjectID, items []models.CartItem, expectedVersion int64) (int64, error)
}

// Service runs cart mutations as version-guarded read-modify-write cycles.
type Service struct {
	repo    Repository
	timeout time.Duration
}

func NewService(repo Repository, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, timeout: timeout}
}

func (s *Service) Get(ctx context.Context, customerID primitive.ObjectID) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.repo.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return FromItems(snap.Items), nil
}

// Mutate applies fn to the current cart and stores the result. A rejected
// mutation writes nothing. Lost updates are retried a bounded number of times.
func (s *Service) Mutate(ctx context.Context, customerID primitive.ObjectID, fn func(*Cart) error) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		snap, err := s.repo.Load(ctx, customerID)
		if err != nil {
			return nil, err
		}

		c := FromItems(snap.Items)
		if err := fn(c); err != nil {
			return nil, err
		}

		if _, err := s.repo.Save(ctx, customerID, c.Items(), snap.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				log.Printf("[CART] [WARN] concurrent cart write for %s, attempt %d", customerID.Hex(), attempt)
				continue
			}
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: customer %s", ErrCartConflict, customerID.Hex())
}

func (s *Service) Add(ctx context.Context, customerID primitive.ObjectID, item models.CartItem) (*Cart, error) {
	return s.Mutate(ctx, customerID, func(c *Cart) error { return c.Add(item) })
}

func (s *Service) UpdateQuantity(ctx context.Context, customerID primitive.ObjectID, item models.CartItem) (*Cart, error) {
	return s.Mutate(ctx, customerID, func(c *Cart) error { return c.UpdateQuantity(item) })
}

func (s *Service) Remove(ctx context.Context, customerID primitive.ObjectID, item models.CartItem) (*Cart, error) {
	return s.Mutate(ctx, customerID, func(c *Cart) error { return c.Remove(item) })
}

func (s *Service) Clear(ctx context.Context, customerID primitive.ObjectID) (*Cart, error) {
	return s.Mutate(ctx, customerID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}
