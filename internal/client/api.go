package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"homekitchen/internal/models"
)

// API is a thin client for the marketplace HTTP API. Every call is bounded by
// the client timeout.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, timeout time.Duration) *API {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type cartEnvelope struct {
	Cart []models.CartItem `json:"cart"`
}

type CheckoutRequest struct {
	PaymentMethod  models.PaymentMethod `json:"paymentMethod"`
	IdempotencyKey string               `json:"-"`
	CustomerInfo   *models.DeliveryInfo `json:"customerInfo,omitempty"`
	Delivery       bool                 `json:"-"`
}

type checkoutEnvelope struct {
	Purchase models.Purchase `json:"purchase"`
	Replayed bool            `json:"replayed"`
}

func (a *API) Login(ctx context.Context, email, password string) (Credentials, error) {
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/api/users/login", "", body, nil, &out); err != nil {
		return Credentials{}, err
	}
	return Credentials{Token: out.Token, CustomerID: out.User.ID}, nil
}

func (a *API) GetCart(ctx context.Context, token string) ([]models.CartItem, error) {
	var out cartEnvelope
	err := a.do(ctx, http.MethodGet, "/api/purchases/cart", token, nil, nil, &out)
	return out.Cart, err
}

func (a *API) AddItem(ctx context.Context, token string, item models.CartItem) ([]models.CartItem, error) {
	return a.cartWrite(ctx, http.MethodPost, "/api/purchases/cart", token, item)
}

func (a *API) UpdateItem(ctx context.Context, token string, item models.CartItem) ([]models.CartItem, error) {
	return a.cartWrite(ctx, http.MethodPut, "/api/purchases/cart", token, item)
}

func (a *API) RemoveItem(ctx context.Context, token string, item models.CartItem) ([]models.CartItem, error) {
	return a.cartWrite(ctx, http.MethodDelete, "/api/purchases/cart", token, item)
}

func (a *API) ClearCart(ctx context.Context, token string) ([]models.CartItem, error) {
	return a.cartWrite(ctx, http.MethodDelete, "/api/purchases/cart/clear", token, nil)
}

func (a *API) cartWrite(ctx context.Context, method, path, token string, body interface{}) ([]models.CartItem, error) {
	var out cartEnvelope
	err := a.do(ctx, method, path, token, body, nil, &out)
	return out.Cart, err
}

func (a *API) Checkout(ctx context.Context, token string, req CheckoutRequest) (models.Purchase, error) {
	path := "/api/purchases/complete"
	if req.Delivery {
		path = "/api/purchases"
	}
	headers := map[string]string{"Idempotency-Key": req.IdempotencyKey}

	var out checkoutEnvelope
	if err := a.do(ctx, http.MethodPost, path, token, req, headers, &out); err != nil {
		return models.Purchase{}, err
	}
	return out.Purchase, nil
}

func (a *API) History(ctx context.Context, token string) ([]models.Purchase, error) {
	out := []models.Purchase{}
	err := a.do(ctx, http.MethodGet, "/api/purchases/history", token, nil, nil, &out)
	return out, err
}

func (a *API) do(ctx context.Context, method, path, token string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrUnavailable, ErrTimeout)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
