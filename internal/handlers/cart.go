package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/cart"
	"homekitchen/internal/models"
)

type cartMutation func(ctx context.Context, customerID primitive.ObjectID, item models.CartItem) (*cart.Cart, error)

func cartResponse(c *cart.Cart) gin.H {
	return gin.H{
		"cart":   c.Items(),
		"totals": c.Totals(),
	}
}

func GetCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/purchases/cart"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		current, err := carts.Get(c.Request.Context(), userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(current))
	}
}

// CartTotal returns only the derived totals of the stored cart.
func CartTotal(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/purchases/cart/total"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		current, err := carts.Get(c.Request.Context(), userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, current.Totals())
	}
}

func AddToCart(carts *cart.Service) gin.HandlerFunc {
	return mutateCart("POST /api/purchases/cart", carts.Add)
}

func UpdateCartItem(carts *cart.Service) gin.HandlerFunc {
	return mutateCart("PUT /api/purchases/cart", carts.UpdateQuantity)
}

func RemoveFromCart(carts *cart.Service) gin.HandlerFunc {
	return mutateCart("DELETE /api/purchases/cart", carts.Remove)
}

func ClearCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/purchases/cart/clear"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		cleared, err := carts.Clear(c.Request.Context(), userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(cleared))
	}
}

func mutateCart(route string, apply cartMutation) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		var item models.CartItem
		if err := c.ShouldBindJSON(&item); err != nil {
			respondValidationError(c, err)
			return
		}

		updated, err := apply(c.Request.Context(), userID, item)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(updated))
	}
}
