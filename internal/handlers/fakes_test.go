package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/cart"
	"homekitchen/internal/middleware"
	"homekitchen/internal/models"
	"homekitchen/internal/orders"
	"homekitchen/internal/pricing"
)

// memoryDB backs both the cart and the purchase services.
type memoryDB struct {
	mu        sync.Mutex
	carts     map[primitive.ObjectID][]models.CartItem
	versions  map[primitive.ObjectID]int64
	purchases []models.Purchase
}

func newMemoryDB(customers ...primitive.ObjectID) *memoryDB {
	db := &memoryDB{
		carts:    map[primitive.ObjectID][]models.CartItem{},
		versions: map[primitive.ObjectID]int64{},
	}
	for _, id := range customers {
		db.carts[id] = []models.CartItem{}
	}
	return db
}

func (m *memoryDB) Load(ctx context.Context, id primitive.ObjectID) (cart.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.carts[id]
	if !ok {
		return cart.Snapshot{}, cart.ErrCustomerNotFound
	}
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return cart.Snapshot{Items: out, Version: m.versions[id]}, nil
}

func (m *memoryDB) Save(ctx context.Context, id primitive.ObjectID, items []models.CartItem, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[id]; !ok {
		return 0, cart.ErrCustomerNotFound
	}
	if m.versions[id] != expected {
		return 0, cart.ErrVersionConflict
	}
	m.carts[id] = items
	m.versions[id]++
	return m.versions[id], nil
}

func (m *memoryDB) LoadCart(ctx context.Context, id primitive.ObjectID) (cart.Snapshot, error) {
	return m.Load(ctx, id)
}

func (m *memoryDB) FindByIdempotencyKey(ctx context.Context, id primitive.ObjectID, key string) (models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.UserID == id && p.IdempotencyKey == key {
			return p, nil
		}
	}
	return models.Purchase{}, orders.ErrPurchaseNotFound
}

func (m *memoryDB) Commit(ctx context.Context, p models.Purchase) (models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[p.UserID] != p.CartVersion {
		return models.Purchase{}, cart.ErrVersionConflict
	}
	p.ID = primitive.NewObjectID()
	m.purchases = append(m.purchases, p)
	m.carts[p.UserID] = []models.CartItem{}
	m.versions[p.UserID]++
	return p, nil
}

func (m *memoryDB) ClearCartAt(ctx context.Context, id primitive.ObjectID, version int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[id] != version {
		return false, nil
	}
	m.carts[id] = []models.CartItem{}
	m.versions[id]++
	return true, nil
}

func (m *memoryDB) FindByID(ctx context.Context, id primitive.ObjectID) (models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Purchase{}, orders.ErrPurchaseNotFound
}

func (m *memoryDB) History(ctx context.Context, id primitive.ObjectID) ([]models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Purchase
	for _, p := range m.purchases {
		if p.UserID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryDB) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.PurchaseStatus) (models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.purchases {
		if p.ID == id && p.Status == from {
			m.purchases[i].Status = to
			return m.purchases[i], nil
		}
	}
	return models.Purchase{}, orders.ErrInvalidTransition
}

type memoryKitchens map[models.KitchenID]models.Cook

func (k memoryKitchens) GetKitchen(ctx context.Context, id models.KitchenID) (models.Cook, error) {
	cook, ok := k[id]
	if !ok {
		return models.Cook{}, fmt.Errorf("%w: %s", pricing.ErrKitchenNotFound, id)
	}
	return cook, nil
}

func (k memoryKitchens) Kitchen(ctx context.Context, id models.KitchenID) (models.Cook, error) {
	return k.GetKitchen(ctx, id)
}

type testEnv struct {
	router   *gin.Engine
	db       *memoryDB
	kitchens memoryKitchens
	customer primitive.ObjectID
	owner    primitive.ObjectID
	kitchen  models.Cook
}

// newTestEnv wires the purchase routes with a fake auth step that trusts the
// X-Test-User and X-Test-Role headers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	customer := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	kitchen := models.Cook{
		ID:     primitive.NewObjectID(),
		Name:   "Om Hassan",
		UserID: owner,
		Menu: []models.MenuItem{
			{DishName: "Koshary", Price: 45},
			{DishName: "Mahshi", Price: 80},
		},
	}
	kitchens := memoryKitchens{kitchen.KitchenID(): kitchen}
	db := newMemoryDB(customer)

	carts := cart.NewService(db, time.Second)
	svc := orders.NewService(db, pricing.NewAuthority(kitchens, time.Second), nil, time.Second)

	r := gin.New()
	api := r.Group("/api/purchases")
	api.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				t.Fatalf("bad test user header: %v", err)
			}
			c.Set(middleware.ContextUserID, id)
			c.Set(middleware.ContextRole, c.GetHeader("X-Test-Role"))
		}
		c.Next()
	})
	api.GET("/cart", GetCart(carts))
	api.POST("/cart", AddToCart(carts))
	api.PUT("/cart", UpdateCartItem(carts))
	api.DELETE("/cart", RemoveFromCart(carts))
	api.DELETE("/cart/clear", ClearCart(carts))
	api.GET("/cart/total", CartTotal(carts))
	api.GET("/cart/quote", CartQuote(svc))
	api.POST("/complete", CompletePurchase(svc))
	api.POST("", CreatePurchase(svc))
	api.GET("/history", PurchaseHistory(svc))
	api.GET("/:purchaseId", GetPurchase(svc))
	api.POST("/:purchaseId/cancel", CancelPurchase(svc))
	api.PATCH("/:purchaseId/status", UpdatePurchaseStatus(svc, kitchens))

	return &testEnv{router: r, db: db, kitchens: kitchens, customer: customer, owner: owner, kitchen: kitchen}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}
