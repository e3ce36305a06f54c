package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"homekitchen/internal/cart"
	"homekitchen/internal/catalog"
	"homekitchen/internal/favorites"
	"homekitchen/internal/middleware"
	"homekitchen/internal/models"
	"homekitchen/internal/orders"
	"homekitchen/internal/pricing"
	"homekitchen/internal/store"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

func ensureDBConnection(ctx context.Context, db Pinger) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Ping(checkCtx, readpref.Primary())
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrMissingIdentifier),
		errors.Is(err, models.ErrInvalidIdentifier),
		errors.Is(err, models.ErrInvalidPaymentMethod),
		errors.Is(err, cart.ErrInvalidPrice),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrMissingDishName),
		errors.Is(err, favorites.ErrMissingDishName),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, catalog.ErrInvalidMenuItem),
		errors.Is(err, catalog.ErrInvalidKitchen):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrForbidden),
		errors.Is(err, catalog.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, cart.ErrCustomerNotFound),
		errors.Is(err, pricing.ErrKitchenNotFound),
		errors.Is(err, pricing.ErrDishNotFound),
		errors.Is(err, orders.ErrPurchaseNotFound),
		errors.Is(err, favorites.ErrNotFavorite),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrDishUnavailable),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, cart.ErrCartConflict),
		errors.Is(err, cart.ErrVersionConflict),
		errors.Is(err, store.ErrDuplicateDish),
		errors.Is(err, favorites.ErrAlreadyFavorite),
		errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, pricing.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError maps a service error onto a response. Unknown errors are
// logged with their cause and hidden from the client.
func respondDomainError(c *gin.Context, route string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("[%s] unexpected error: %v", route, err)
		respondWithError(c, status, route, "internal server error")
		return
	}

	var lineErr orders.LineError
	if errors.As(err, &lineErr) {
		log.Printf("[%s] returning error %d: %v", route, status, err)
		c.AbortWithStatusJSON(status, gin.H{
			"error":     lineErr.Err.Error(),
			"kitchenId": lineErr.KitchenID,
			"dishName":  lineErr.DishName,
		})
		return
	}
	respondWithError(c, status, route, err.Error())
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "email":
				details = append(details, fmt.Sprintf("%s must be an email address", field))
			case "min":
				details = append(details, fmt.Sprintf("%s must be at least %s characters", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// currentUser reads the id set by the auth middleware.
func currentUser(c *gin.Context, route string) (primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return primitive.NilObjectID, false
	}
	return userID, true
}

func objectIDParam(c *gin.Context, route, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func kitchenIDParam(c *gin.Context, route, name string) (models.KitchenID, bool) {
	id, err := models.NormalizeKitchenID(c.Param(name), "")
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, err.Error())
		return "", false
	}
	return id, true
}

// Health reports whether MongoDB answers.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/health"
		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
