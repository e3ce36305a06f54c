// Package orders turns a customer's cart into an immutable purchase and
// serves committed purchases back.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/cart"
	"homekitchen/internal/models"
	"homekitchen/internal/pricing"
)

// Repository is the purchase store. Commit must insert the purchase, append
// it to the customer's order history and empty the cart as one unit, and only
// while the cart is still at purchase.CartVersion (cart.ErrVersionConflict
// otherwise). A second commit with the same idempotency key must fail with
// ErrDuplicateCommit.
type Repository interface {
	LoadCart(ctx context.Context, customerID primitive.ObjectID) (cart.Snapshot, error)
	FindByIdempotencyKey(ctx context.Context, customerID primitive.ObjectID, key string) (models.Purchase, error)
	Commit(ctx context.Context, purchase models.Purchase) (models.Purchase, error)
	ClearCartAt(ctx context.Context, customerID primitive.ObjectID, version int64) (bool, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Purchase, error)
	History(ctx context.Context, customerID primitive.ObjectID) ([]models.Purchase, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.PurchaseStatus) (models.Purchase, error)
}

// Publisher is told about committed purchases. Failures are logged only.
type Publisher interface {
	PurchaseCreated(ctx context.Context, purchase models.Purchase) error
}

// Flow selects the status a new purchase starts in.
type Flow int

const (
	// FlowImmediate completes the purchase at checkout.
	FlowImmediate Flow = iota
	// FlowDelivery records delivery details and waits for fulfilment.
	FlowDelivery
)

type CheckoutRequest struct {
	CustomerID     primitive.ObjectID
	PaymentMethod  models.PaymentMethod
	IdempotencyKey string
	Flow           Flow
	Delivery       *models.DeliveryInfo
}

type CheckoutResult struct {
	Purchase models.Purchase
	// Replayed is set when the key matched an earlier commit.
	Replayed bool
}

type Service struct {
	repo      Repository
	authority *pricing.Authority
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

func NewService(repo Repository, authority *pricing.Authority, publisher Publisher, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		repo:      repo,
		authority: authority,
		publisher: publisher,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Checkout builds a purchase from the customer's server-side cart. Every
// line is re-priced against the menu; cart prices are ignored. The call is
// safe to retry with the same idempotency key.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if req.PaymentMethod != models.PaymentCash && req.PaymentMethod != models.PaymentCard {
		return CheckoutResult{}, models.ErrInvalidPaymentMethod
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if req.IdempotencyKey != "" {
		if res, ok, err := s.replay(ctx, req); err != nil || ok {
			return res, err
		}
	}

	snap, err := s.repo.LoadCart(ctx, req.CustomerID)
	if err != nil {
		return CheckoutResult{}, err
	}

	c := cart.FromItems(snap.Items)
	if c.IsEmpty() {
		return CheckoutResult{}, ErrEmptyCart
	}

	items, err := s.reprice(ctx, c.Lines())
	if err != nil {
		return CheckoutResult{}, err
	}

	purchase := s.freeze(req, items, snap.Version)
	committed, err := s.repo.Commit(ctx, purchase)
	if err != nil {
		if errors.Is(err, ErrDuplicateCommit) && req.IdempotencyKey != "" {
			if res, ok, rerr := s.replay(ctx, req); rerr != nil || ok {
				return res, rerr
			}
		}
		if errors.Is(err, cart.ErrVersionConflict) {
			return CheckoutResult{}, fmt.Errorf("%w: cart changed during checkout", cart.ErrCartConflict)
		}
		return CheckoutResult{}, err
	}

	log.Printf("[ORDER] [INFO] purchase %s committed for %s", committed.ID.Hex(), req.CustomerID.Hex())
	if s.publisher != nil {
		if err := s.publisher.PurchaseCreated(ctx, committed); err != nil {
			log.Println("[ORDER] [ERROR] purchase event publish failed:", err)
		}
	}

	return CheckoutResult{Purchase: committed}, nil
}

// replay returns an earlier purchase for the same key. If that commit left
// the cart behind at the committed version, the clear is completed now; any
// later cart edits bumped the version and are left alone.
func (s *Service) replay(ctx context.Context, req CheckoutRequest) (CheckoutResult, bool, error) {
	existing, err := s.repo.FindByIdempotencyKey(ctx, req.CustomerID, req.IdempotencyKey)
	if errors.Is(err, ErrPurchaseNotFound) {
		return CheckoutResult{}, false, nil
	}
	if err != nil {
		return CheckoutResult{}, false, err
	}

	cleared, err := s.repo.ClearCartAt(ctx, req.CustomerID, existing.CartVersion)
	if err != nil {
		return CheckoutResult{}, false, err
	}
	if cleared {
		log.Printf("[ORDER] [WARN] completed cart clear for replayed purchase %s", existing.ID.Hex())
	}
	return CheckoutResult{Purchase: existing, Replayed: true}, true, nil
}

func (s *Service) reprice(ctx context.Context, lines []cart.Line) ([]models.PurchaseItem, error) {
	kitchens := map[models.KitchenID]models.Cook{}
	items := make([]models.PurchaseItem, 0, len(lines))

	for _, line := range lines {
		cook, ok := kitchens[line.KitchenID]
		if !ok {
			var err error
			cook, err = s.authority.Kitchen(ctx, line.KitchenID)
			if err != nil {
				return nil, LineError{KitchenID: line.KitchenID, DishName: line.DishName, Err: err}
			}
			kitchens[line.KitchenID] = cook
		}

		dish, err := pricing.DishFrom(cook, line.DishName)
		if err != nil {
			return nil, LineError{KitchenID: line.KitchenID, DishName: line.DishName, Err: err}
		}
		if !dish.IsAvailable() {
			return nil, LineError{KitchenID: line.KitchenID, DishName: line.DishName, Err: ErrDishUnavailable}
		}

		if dish.Price != line.UnitPrice {
			log.Printf("[ORDER] [INFO] price drift for %q in %s: cart %.2f menu %.2f", line.DishName, line.KitchenID, line.UnitPrice, dish.Price)
		}

		items = append(items, models.PurchaseItem{
			KitchenID: cook.ID,
			DishName:  line.DishName,
			Quantity:  line.Quantity,
			Price:     dish.Price,
		})
	}
	return items, nil
}

// freeze copies the priced items into a new purchase value.
func (s *Service) freeze(req CheckoutRequest, items []models.PurchaseItem, cartVersion int64) models.Purchase {
	frozen := make([]models.PurchaseItem, len(items))
	copy(frozen, items)

	entries := make([]pricing.Entry, 0, len(frozen))
	for _, item := range frozen {
		entries = append(entries, pricing.Entry{Price: item.Price, Quantity: item.Quantity})
	}
	totals := pricing.Compute(entries)

	status := models.StatusCompleted
	var delivery *models.DeliveryInfo
	if req.Flow == FlowDelivery {
		status = models.StatusPending
		if req.Delivery != nil {
			info := *req.Delivery
			delivery = &info
		}
	}

	now := s.now().UTC()
	return models.Purchase{
		UserID:         req.CustomerID,
		Items:          frozen,
		TotalPrice:     totals.Subtotal.InexactFloat64(),
		Tax:            totals.Tax.InexactFloat64(),
		TotalWithTax:   totals.Total.InexactFloat64(),
		PaymentMethod:  req.PaymentMethod,
		Status:         status,
		CustomerInfo:   delivery,
		IdempotencyKey: req.IdempotencyKey,
		CartVersion:    cartVersion,
		PurchasedAt:    now,
		UpdatedAt:      now,
	}
}

// History returns the customer's purchases newest first. It never returns
// nil.
func (s *Service) History(ctx context.Context, customerID primitive.ObjectID) ([]models.Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	purchases, err := s.repo.History(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if purchases == nil {
		purchases = []models.Purchase{}
	}
	sort.SliceStable(purchases, func(i, j int) bool {
		if !purchases[i].PurchasedAt.Equal(purchases[j].PurchasedAt) {
			return purchases[i].PurchasedAt.After(purchases[j].PurchasedAt)
		}
		return purchases[i].ID.Hex() > purchases[j].ID.Hex()
	})
	return purchases, nil
}

// Get returns a purchase owned by the customer.
func (s *Service) Get(ctx context.Context, customerID, purchaseID primitive.ObjectID) (models.Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		return models.Purchase{}, err
	}
	if p.UserID != customerID {
		return models.Purchase{}, ErrForbidden
	}
	return p, nil
}

// Find returns a purchase regardless of owner. Callers check access.
func (s *Service) Find(ctx context.Context, purchaseID primitive.ObjectID) (models.Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.repo.FindByID(ctx, purchaseID)
}

// UpdateStatus moves a purchase along the status machine.
func (s *Service) UpdateStatus(ctx context.Context, purchaseID primitive.ObjectID, to models.PurchaseStatus) (models.Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		return models.Purchase{}, err
	}
	if err := Transition(p.Status, to); err != nil {
		return models.Purchase{}, err
	}
	return s.repo.UpdateStatus(ctx, purchaseID, p.Status, to)
}

// Cancel lets a customer cancel their own pending purchase.
func (s *Service) Cancel(ctx context.Context, customerID, purchaseID primitive.ObjectID) (models.Purchase, error) {
	if _, err := s.Get(ctx, customerID, purchaseID); err != nil {
		return models.Purchase{}, err
	}
	return s.UpdateStatus(ctx, purchaseID, models.StatusCancelled)
}
