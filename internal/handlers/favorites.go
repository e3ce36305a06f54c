package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/favorites"
	"homekitchen/internal/models"
)

type favoriteMutation func(ctx context.Context, userID primitive.ObjectID, item models.CartItem) ([]favorites.Favorite, error)

func GetFavorites(favs *favorites.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/favorites"
		defer handlePanic(c, route)

		userID, ok := currentUser(c, route)
		if !ok {
			return
		}

		list, err := favs.List(c.Request.Context(), userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"favorites": list})
	}
}

func AddFavorite(favs *favorites.Service) gin.HandlerFunc {
	return mutateFavorites("POST /api/purchases/favorites", "Added to favorites", favs.Add)
}

// RemoveFavorite reads the dish from the request body, like the cart DELETE.
func RemoveFavorite(favs *favorites.Service) gin.HandlerFunc {
	return mutateFavorites("DELETE /api/purchases/favorites", "Removed from favorites", favs.Remove)
}

func mutateFavorites(route, message string, apply favoriteMutation) gin.HandlerFunc {
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

		list, err := apply(c.Request.Context(), userID, item)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "favorites": list})
	}
}
