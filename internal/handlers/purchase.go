package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homekitchen/internal/middleware"
	"homekitchen/internal/models"
	"homekitchen/internal/orders"
	"homekitchen/internal/pricing"
)

// IdempotencyHeader carries the client's retry key for checkout.
const IdempotencyHeader = "Idempotency-Key"

// KitchenLookup resolves kitchens for ownership checks.
type KitchenLookup interface {
	Kitchen(ctx context.Context, id models.KitchenID) (models.Cook, error)
}

type checkoutRequest struct {
	PaymentMethod  string               `json:"paymentMethod" binding:"required"`
	IdempotencyKey string               `json:"idempotencyKey"`
	CustomerInfo   *models.DeliveryInfo `json:"customerInfo"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CompletePurchase checks out the cart and completes the purchase at once.
func CompletePurchase(svc *orders.Service) gin.HandlerFunc {
	return checkout("POST /api/purchases/complete", svc, orders.FlowImmediate)
}

// CreatePurchase checks out the cart for delivery; the purchase stays pending.
func CreatePurchase(svc *orders.Service) gin.HandlerFunc {
	return checkout("POST /api/purchases", svc, orders.FlowDelivery)
}

func checkout(route string, svc *orders.Service, flow orders.Flow) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		method, err := models.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		if flow == orders.FlowDelivery {
			if req.CustomerInfo == nil || strings.TrimSpace(req.CustomerInfo.Name) == "" || strings.TrimSpace(req.CustomerInfo.Location) == "" {
				respondWithError(c, http.StatusBadRequest, route, "customerInfo name and location are required")
				return
			}
		}

		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if key == "" {
			key = strings.TrimSpace(req.IdempotencyKey)
		}
		if key == "" {
			key = uuid.NewString()
		}

		res, err := svc.Checkout(c.Request.Context(), orders.CheckoutRequest{
			CustomerID:     userID,
			PaymentMethod:  method,
			IdempotencyKey: key,
			Flow:           flow,
			Delivery:       req.CustomerInfo,
		})
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		status := http.StatusCreated
		if res.Replayed {
			status = http.StatusOK
			log.Printf("[%s] replayed purchase %s for key %s", route, res.Purchase.ID.Hex(), key)
		}
		c.Header(IdempotencyHeader, key)
		c.JSON(status, gin.H{
			"message":  "purchase created",
			"purchase": res.Purchase,
			"replayed": res.Replayed,
		})
	}
}

// CartQuote shows what checkout would charge against the current menu.
func CartQuote(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/purchases/cart/quote"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		quote, err := svc.Quote(c.Request.Context(), userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

func PurchaseHistory(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/purchases/history"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		history, err := svc.History(c.Request.Context(), userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

func GetPurchase(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/purchases/:purchaseId"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}
		purchaseID, ok := objectIDParam(c, route, "purchaseId")
		if !ok {
			return
		}

		purchase, err := svc.Get(c.Request.Context(), userID, purchaseID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, purchase)
	}
}

// CancelPurchase lets customers cancel their own pending purchases.
func CancelPurchase(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/purchases/:purchaseId/cancel"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}
		purchaseID, ok := objectIDParam(c, route, "purchaseId")
		if !ok {
			return
		}

		purchase, err := svc.Cancel(c.Request.Context(), userID, purchaseID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, purchase)
	}
}

// UpdatePurchaseStatus is for admins and for owners of a kitchen that has
// items in the purchase.
func UpdatePurchaseStatus(svc *orders.Service, kitchens KitchenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/purchases/:purchaseId/status"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}
		purchaseID, ok := objectIDParam(c, route, "purchaseId")
		if !ok {
			return
		}

		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		to, err := orders.ParseStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		purchase, err := svc.Find(c.Request.Context(), purchaseID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		if middleware.Role(c) != models.RoleAdmin {
			owns, err := ownsKitchenIn(c.Request.Context(), kitchens, purchase, userID.Hex())
			if err != nil {
				respondDomainError(c, route, err)
				return
			}
			if !owns {
				respondWithError(c, http.StatusForbidden, route, "forbidden")
				return
			}
		}

		updated, err := svc.UpdateStatus(c.Request.Context(), purchaseID, to)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		log.Printf("[%s] purchase %s moved to %s by %s", route, purchaseID.Hex(), to, userID.Hex())
		c.JSON(http.StatusOK, updated)
	}
}

func ownsKitchenIn(ctx context.Context, kitchens KitchenLookup, purchase models.Purchase, ownerHex string) (bool, error) {
	seen := map[string]bool{}
	for _, item := range purchase.Items {
		id := models.KitchenIDFromObjectID(item.KitchenID)
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true

		cook, err := kitchens.Kitchen(ctx, id)
		if errors.Is(err, pricing.ErrKitchenNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if cook.UserID.Hex() == ownerHex {
			return true, nil
		}
	}
	return false, nil
}
