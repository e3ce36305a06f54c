package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"homekitchen/internal/cart"
	"homekitchen/internal/models"
)

// Bridge decides which copy of the cart is authoritative. For a signed-in
// customer with a reachable server the server cart wins and overwrites the
// local cache. Signed out, or with the server unreachable on load, the local
// cache wins. Signed-in writes go to the server first and are mirrored locally
// only after the server confirms them.
type Bridge struct {
	api       *API
	cache     LocalCache
	creds     CredentialStore
	onExpired func()

	mu      sync.Mutex
	current *cart.Cart
}

type Option func(*Bridge)

// WithReauth registers the hook run after a session expires, typically a
// redirect to sign-in.
func WithReauth(fn func()) Option {
	return func(b *Bridge) { b.onExpired = fn }
}

func NewBridge(api *API, cache LocalCache, creds CredentialStore, opts ...Option) *Bridge {
	b := &Bridge{api: api, cache: cache, creds: creds, current: cart.New()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Login signs in and stores the credential. The guest cart stays in the local
// cache until the next Load replaces it with the server cart.
func (b *Bridge) Login(ctx context.Context, email, password string) error {
	creds, err := b.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, errUnauthorized) {
			return fmt.Errorf("%w: invalid credentials", ErrNotAuthenticated)
		}
		return err
	}
	return b.creds.Save(creds)
}

func (b *Bridge) Logout() error {
	return b.creds.Clear()
}

func (b *Bridge) Authenticated() bool {
	_, ok := b.creds.Load()
	return ok
}

// Cart returns the last known cart without any I/O.
func (b *Bridge) Cart() *cart.Cart {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cart.FromItems(b.current.Items())
}

func (b *Bridge) Load(ctx context.Context) (*cart.Cart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if creds, ok := b.creds.Load(); ok {
		items, err := b.api.GetCart(ctx, creds.Token)
		switch {
		case err == nil:
			return b.mirror(ctx, cart.FromItems(items))
		case errors.Is(err, errUnauthorized):
			return nil, b.expire()
		case !errors.Is(err, ErrUnavailable):
			return nil, err
		}
	}

	items, err := b.cache.LoadCart(ctx)
	if err != nil {
		return cart.FromItems(b.current.Items()), fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	b.current = cart.FromItems(items)
	return cart.FromItems(b.current.Items()), nil
}

func (b *Bridge) Add(ctx context.Context, item models.CartItem) (*cart.Cart, error) {
	return b.write(ctx, item, (*API).AddItem, (*cart.Cart).Add)
}

func (b *Bridge) UpdateQuantity(ctx context.Context, item models.CartItem) (*cart.Cart, error) {
	return b.write(ctx, item, (*API).UpdateItem, (*cart.Cart).UpdateQuantity)
}

func (b *Bridge) Remove(ctx context.Context, item models.CartItem) (*cart.Cart, error) {
	return b.write(ctx, item, (*API).RemoveItem, (*cart.Cart).Remove)
}

func (b *Bridge) Clear(ctx context.Context) (*cart.Cart, error) {
	remote := func(a *API, ctx context.Context, token string, _ models.CartItem) ([]models.CartItem, error) {
		return a.ClearCart(ctx, token)
	}
	local := func(c *cart.Cart, _ models.CartItem) error {
		c.Clear()
		return nil
	}
	return b.write(ctx, models.CartItem{}, remote, local)
}

type remoteWrite func(a *API, ctx context.Context, token string, item models.CartItem) ([]models.CartItem, error)

type localWrite func(c *cart.Cart, item models.CartItem) error

func (b *Bridge) write(ctx context.Context, item models.CartItem, remote remoteWrite, local localWrite) (*cart.Cart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if creds, ok := b.creds.Load(); ok {
		items, err := remote(b.api, ctx, creds.Token, item)
		if errors.Is(err, errUnauthorized) {
			return nil, b.expire()
		}
		if err != nil {
			return nil, err
		}
		return b.mirror(ctx, cart.FromItems(items))
	}

	next := cart.FromItems(b.current.Items())
	if stored, err := b.cache.LoadCart(ctx); err == nil {
		next = cart.FromItems(stored)
	}
	if err := local(next, item); err != nil {
		return nil, err
	}
	return b.mirror(ctx, next)
}

// mirror adopts c as the current cart and writes it to the local cache.
func (b *Bridge) mirror(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	b.current = c
	out := cart.FromItems(c.Items())
	if err := b.cache.SaveCart(ctx, c.Items()); err != nil {
		return out, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// expire drops the credential and asks for re-authentication. The local
// cache is left as it was.
func (b *Bridge) expire() error {
	clearErr := b.creds.Clear()
	if b.onExpired != nil {
		b.onExpired()
	}
	if clearErr != nil {
		return fmt.Errorf("%w: clear credentials: %v", ErrSessionExpired, clearErr)
	}
	return ErrSessionExpired
}

// SaveDelivery keeps the delivery form between sessions.
func (b *Bridge) SaveDelivery(ctx context.Context, info *models.DeliveryInfo) error {
	if err := b.cache.SaveDelivery(ctx, info); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Checkout commits the server cart. A retry must reuse the key of the failed
// attempt; an empty key gets a fresh one. The local cache is cleared only
// after the server confirms the purchase.
func (b *Bridge) Checkout(ctx context.Context, req CheckoutRequest) (models.Purchase, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	creds, ok := b.creds.Load()
	if !ok {
		return models.Purchase{}, ErrNotAuthenticated
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	if req.Delivery && req.CustomerInfo == nil {
		info, err := b.cache.LoadDelivery(ctx)
		if err == nil {
			req.CustomerInfo = info
		}
	}

	purchase, err := b.api.Checkout(ctx, creds.Token, req)
	if errors.Is(err, errUnauthorized) {
		return models.Purchase{}, b.expire()
	}
	if err != nil {
		return models.Purchase{}, err
	}

	b.current = cart.New()
	if err := b.cache.ClearCart(ctx); err != nil {
		return purchase, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if req.Delivery {
		if err := b.cache.SaveDelivery(ctx, nil); err != nil {
			return purchase, fmt.Errorf("%w: clear delivery draft: %v", ErrStorageUnavailable, err)
		}
	}
	return purchase, nil
}

func (b *Bridge) History(ctx context.Context) ([]models.Purchase, error) {
	creds, ok := b.creds.Load()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	history, err := b.api.History(ctx, creds.Token)
	if errors.Is(err, errUnauthorized) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return nil, b.expire()
	}
	return history, err
}
