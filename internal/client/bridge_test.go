package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homekitchen/internal/cart"
	"homekitchen/internal/models"
)

// fakeServer is a minimal marketplace API holding one customer's cart.
type fakeServer struct {
	mu         sync.Mutex
	token      string
	cart       *cart.Cart
	keys       []string
	failWrites bool
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token": f.token,
			"user":  map[string]string{"id": "64b7f0c2a1b2c3d4e5f60001"},
		})
	})
	mux.HandleFunc("/api/purchases/cart", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method != http.MethodGet && f.failWrites {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
			return
		}
		var item models.CartItem
		if r.Method != http.MethodGet {
			_ = json.NewDecoder(r.Body).Decode(&item)
		}
		var err error
		switch r.Method {
		case http.MethodPost:
			err = f.cart.Add(item)
		case http.MethodPut:
			err = f.cart.UpdateQuantity(item)
		case http.MethodDelete:
			err = f.cart.Remove(item)
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"cart": f.cart.Items()})
	})
	checkout := func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.keys = append(f.keys, r.Header.Get("Idempotency-Key"))
		f.cart.Clear()
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"purchase": models.Purchase{Status: models.StatusCompleted, TotalPrice: 90},
		})
	}
	mux.HandleFunc("/api/purchases/complete", checkout)
	mux.HandleFunc("/api/purchases", checkout)
	mux.HandleFunc("/api/purchases/history", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, []models.Purchase{{Status: models.StatusCompleted}})
	})
	return mux
}

func (f *fakeServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// brokenCache fails every write.
type brokenCache struct{ LocalCache }

func (brokenCache) SaveCart(context.Context, []models.CartItem) error {
	return errors.New("disk full")
}

func (brokenCache) ClearCart(context.Context) error {
	return errors.New("disk full")
}

// brokenDraft fails to write the delivery draft.
type brokenDraft struct{ LocalCache }

func (brokenDraft) SaveDelivery(context.Context, *models.DeliveryInfo) error {
	return errors.New("disk full")
}

// stuckCredentials cannot forget the stored token.
type stuckCredentials struct{ *MemoryCredentials }

func (stuckCredentials) Clear() error {
	return errors.New("keychain locked")
}

type bridgeEnv struct {
	server  *fakeServer
	url     string
	cache   *SQLiteCache
	creds   *MemoryCredentials
	bridge  *Bridge
	expired int
}

func newBridgeEnv(t *testing.T) *bridgeEnv {
	t.Helper()
	env := &bridgeEnv{
		server: &fakeServer{token: "tok-1", cart: cart.New()},
		cache:  openTestCache(t),
		creds:  &MemoryCredentials{},
	}
	srv := httptest.NewServer(env.server.handler())
	t.Cleanup(srv.Close)
	env.url = srv.URL
	env.bridge = NewBridge(NewAPI(srv.URL, 2*time.Second), env.cache, env.creds, WithReauth(func() { env.expired++ }))
	return env
}

func manti(qty float64) models.CartItem {
	return models.CartItem{KitchenID: kitchenA, DishName: "Manti", Quantity: models.Num(qty), Price: models.Num(45)}
}

func TestBridgeGuestCartLivesInLocalCache(t *testing.T) {
	ctx := context.Background()
	env := newBridgeEnv(t)

	c, err := env.bridge.Add(ctx, manti(1))
	require.NoError(t, err)
	c, err = env.bridge.Add(ctx, manti(2))
	require.NoError(t, err)
	require.Equal(t, 3, c.Lines()[0].Quantity)

	stored, err := env.cache.LoadCart(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 3.0, stored[0].Quantity.Value)
	require.True(t, env.server.cart.IsEmpty())
}

func TestBridgeServerCartWinsAfterLogin(t *testing.T) {
	ctx := context.Background()
	env := newBridgeEnv(t)

	_, err := env.bridge.Add(ctx, models.CartItem{KitchenID: kitchenA, DishName: "Ayran", Quantity: models.Num(1), Price: models.Num(10)})
	require.NoError(t, err)
	require.NoError(t, env.server.cart.Add(manti(2)))

	require.NoError(t, env.bridge.Login(ctx, "ayse@example.com", "secret"))
	c, err := env.bridge.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, "Manti", c.Lines()[0].DishName)

	stored, err := env.cache.LoadCart(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "Manti", stored[0].DishName)
}

func TestBridgeLoginRejected(t *testing.T) {
	env := newBridgeEnv(t)
	err := env.bridge.Login(context.Background(), "ayse@example.com", "wrong")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.False(t, env.bridge.Authenticated())
}

func TestBridgeMirrorsOnlyConfirmedWrites(t *testing.T) {
	ctx := context.Background()
	env := newBridgeEnv(t)
	require.NoError(t, env.creds.Save(Credentials{Token: "tok-1"}))

	_, err := env.bridge.Add(ctx, manti(1))
	require.NoError(t, err)

	env.server.failWrites = true
	_, err = env.bridge.Add(ctx, manti(5))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)

	stored, err := env.cache.LoadCart(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 1.0, stored[0].Quantity.Value)
}

func TestBridgeExpiredSessionLeavesCacheAlone(t *testing.T) {
	ctx := context.Background()
	env := newBridgeEnv(t)
	require.NoError(t, env.cache.SaveCart(ctx, []models.CartItem{manti(2)}))
	require.NoError(t, env.creds.Save(Credentials{Token: "stale"}))

	_, err := env.bridge.Add(ctx, manti(1))
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, 1, env.expired)
	require.False(t, env.bridge.Authenticated())

	stored, err := env.cache.LoadCart(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 2.0, stored[0].Quantity.Value)
}

func TestBridgeLoadFallsBackWhenServerUnreachable(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)
	require.NoError(t, cache.SaveCart(ctx, []models.CartItem{manti(2)}))
	creds := &MemoryCredentials{}
	require.NoError(t, creds.Save(Credentials{Token: "tok-1"}))

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	bridge := NewBridge(NewAPI(url, time.Second), cache, creds)
	c, err := bridge.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.True(t, bridge.Authenticated())
}

func TestBridgeStorageFailureStillReturnsCart(t *testing.T) {
	ctx := context.Background()
	env := newBridgeEnv(t)
	bridge := NewBridge(NewAPI(env.url, time.Second), brokenCache{env.cache}, env.creds)

	c, err := bridge.Add(ctx, manti(1))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.NotNil(t, c)
	require.Equal(t, 1, c.Len())
}

func TestBridgeCheckoutClearsCacheAfterConfirmation(t *testing.T) {
	ctx := context.Background()
	env := newBridgeEnv(t)
	require.NoError(t, env.creds.Save(Credentials{Token: "tok-1"}))
	_, err := env.bridge.Add(ctx, manti(2))
	require.NoError(t, err)

	purchase, err := env.bridge.Checkout(ctx, CheckoutRequest{PaymentMethod: models.PaymentCash, IdempotencyKey: "k-1"})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, purchase.Status)
	require.Equal(t, []string{"k-1"}, env.server.keys)

	stored, err := env.cache.LoadCart(ctx)
	require.NoError(t, err)
	require.Empty(t, stored)
	require.True(t, env.bridge.Cart().IsEmpty())
}

func TestBridgeCheckoutGeneratesKey(t *testing.T) {
	env := newBridgeEnv(t)
	require.NoError(t, env.creds.Save(Credentials{Token: "tok-1"}))

	_, err := env.bridge.Checkout(context.Background(), CheckoutRequest{PaymentMethod: models.PaymentCard})
	require.NoError(t, err)
	require.Len(t, env.server.keys, 1)
	require.NotEmpty(t, env.server.keys[0])
}

func TestBridgeCheckoutRequiresLogin(t *testing.T) {
	env := newBridgeEnv(t)
	_, err := env.bridge.Checkout(context.Background(), CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestBridgeHistory(t *testing.T) {
	env := newBridgeEnv(t)
	require.NoError(t, env.creds.Save(Credentials{Token: "tok-1"}))

	history, err := env.bridge.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, env.creds.Save(Credentials{Token: "old"}))
	_, err = env.bridge.History(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestBridgeExpiredSessionReportsCredentialFailure(t *testing.T) {
	env := newBridgeEnv(t)
	creds := stuckCredentials{env.creds}
	require.NoError(t, creds.Save(Credentials{Token: "stale"}))
	expired := 0
	bridge := NewBridge(NewAPI(env.url, time.Second), env.cache, creds, WithReauth(func() { expired++ }))

	_, err := bridge.History(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.ErrorContains(t, err, "keychain locked")
	require.Equal(t, 1, expired)
}

func TestBridgeCheckoutReportsDraftFailure(t *testing.T) {
	ctx := context.Background()
	env := newBridgeEnv(t)
	require.NoError(t, env.creds.Save(Credentials{Token: "tok-1"}))
	require.NoError(t, env.cache.SaveDelivery(ctx, &models.DeliveryInfo{Name: "Ayse", Location: "Moda"}))
	bridge := NewBridge(NewAPI(env.url, time.Second), brokenDraft{env.cache}, env.creds)

	purchase, err := bridge.Checkout(ctx, CheckoutRequest{PaymentMethod: models.PaymentCash, Delivery: true})
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.Equal(t, models.StatusCompleted, purchase.Status)
	require.Len(t, env.server.keys, 1)

	stored, err := env.cache.LoadCart(ctx)
	require.NoError(t, err)
	require.Empty(t, stored)
}
