package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/models"
)

type memoryRepo struct {
	items     []models.CartItem
	version   int64
	saves     int
	conflicts int
}

func (m *memoryRepo) Load(ctx context.Context, customerID primitive.ObjectID) (Snapshot, error) {
	items := make([]models.CartItem, len(m.items))
	copy(items, m.items)
	return Snapshot{Items: items, Version: m.version}, nil
}

func (m *memoryRepo) Save(ctx context.Context, customerID primitive.ObjectID, items []models.CartItem, expected int64) (int64, error) {
	if m.conflicts > 0 {
		m.conflicts--
		// another request wrote in between
		m.version++
		return 0, ErrVersionConflict
	}
	if expected != m.version {
		return 0, ErrVersionConflict
	}
	m.saves++
	m.items = items
	m.version++
	return m.version, nil
}

func TestServiceAddPersistsMergedCart(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, time.Second)
	customer := primitive.NewObjectID()

	if _, err := svc.Add(context.Background(), customer, item(kitchenA, "", "Koshary", 1, 40)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	c, err := svc.Add(context.Background(), customer, item("", kitchenA, "Koshary", 2, 40))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if c.Len() != 1 || c.Lines()[0].Quantity != 3 {
		t.Fatalf("unexpected cart %+v", c.Lines())
	}
	if len(repo.items) != 1 || repo.version != 2 {
		t.Fatalf("unexpected stored state items=%d version=%d", len(repo.items), repo.version)
	}
}

func TestServiceRejectedMutationWritesNothing(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, time.Second)

	_, err := svc.Remove(context.Background(), primitive.NewObjectID(), item(kitchenA, "", "Koshary", 0, 0))
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("expected no writes, got %d", repo.saves)
	}
}

func TestServiceRetriesLostUpdates(t *testing.T) {
	repo := &memoryRepo{conflicts: 2}
	svc := NewService(repo, time.Second)

	if _, err := svc.Add(context.Background(), primitive.NewObjectID(), item(kitchenA, "", "Koshary", 1, 40)); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if repo.saves != 1 {
		t.Fatalf("expected exactly one applied write, got %d", repo.saves)
	}
}

func TestServiceGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &memoryRepo{conflicts: maxWriteAttempts}
	svc := NewService(repo, time.Second)

	_, err := svc.Clear(context.Background(), primitive.NewObjectID())
	if !errors.Is(err, ErrCartConflict) {
		t.Fatalf("expected ErrCartConflict, got %v", err)
	}
}
