package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/middleware"
	"homekitchen/internal/models"
	"homekitchen/internal/orders"
)

type fakeSales struct {
	stats map[primitive.ObjectID]orders.KitchenStats
}

func (f fakeSales) KitchenPurchases(ctx context.Context, kitchenID primitive.ObjectID) ([]orders.KitchenPurchase, error) {
	return []orders.KitchenPurchase{}, nil
}

func (f fakeSales) KitchenStats(ctx context.Context, kitchenID primitive.ObjectID) (orders.KitchenStats, error) {
	return f.stats[kitchenID], nil
}

func newSalesRouter(t *testing.T, env *testEnv) *gin.Engine {
	t.Helper()
	sales := fakeSales{stats: map[primitive.ObjectID]orders.KitchenStats{
		env.kitchen.ID: {TotalSales: 5, TotalOrders: 2, TotalRevenue: 225},
	}}

	r := gin.New()
	api := r.Group("/api/purchases")
	api.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			id, _ := primitive.ObjectIDFromHex(raw)
			c.Set(middleware.ContextUserID, id)
			c.Set(middleware.ContextRole, c.GetHeader("X-Test-Role"))
		}
		c.Next()
	})
	api.GET("/kitchen/:kitchenId/purchases", KitchenPurchases(sales, env.kitchens))
	api.GET("/kitchen/:kitchenId/stats", KitchenStats(sales, env.kitchens))
	return r
}

func TestKitchenStatsOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.router = newSalesRouter(t, env)
	path := "/api/purchases/kitchen/" + env.kitchen.ID.Hex() + "/stats"

	w := env.do(t, http.MethodGet, path, env.owner.Hex(), nil, map[string]string{"X-Test-Role": models.RoleStoreOwner})
	if w.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var stats orders.KitchenStats
	decode(t, w, &stats)
	if stats.TotalSales != 5 || stats.TotalOrders != 2 || stats.TotalRevenue != 225 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	w = env.do(t, http.MethodGet, path, primitive.NewObjectID().Hex(), nil, map[string]string{"X-Test-Role": models.RoleStoreOwner})
	if w.Code != http.StatusForbidden {
		t.Fatalf("other owner: expected 403, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, path, primitive.NewObjectID().Hex(), nil, map[string]string{"X-Test-Role": models.RoleAdmin})
	if w.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, path, "", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", w.Code)
	}
}

func TestKitchenPurchasesUnknownKitchen(t *testing.T) {
	env := newTestEnv(t)
	env.router = newSalesRouter(t, env)

	path := "/api/purchases/kitchen/" + primitive.NewObjectID().Hex() + "/purchases"
	w := env.do(t, http.MethodGet, path, env.owner.Hex(), nil, map[string]string{"X-Test-Role": models.RoleStoreOwner})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/purchases/kitchen/not-hex/purchases", env.owner.Hex(), nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", w.Code)
	}
}
