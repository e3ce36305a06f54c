package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"homekitchen/internal/catalog"
	"homekitchen/internal/middleware"
	"homekitchen/internal/models"
	"homekitchen/internal/orders"
	"homekitchen/internal/store"
)

type kitchenRequest struct {
	Name     string            `json:"name" binding:"required"`
	Location string            `json:"location"`
	Phone    string            `json:"phone"`
	Image    *string           `json:"image"`
	Menu     []models.MenuItem `json:"menu"`
}

type menuItemRequest struct {
	DishName    string   `json:"dishName" binding:"required"`
	Price       *float64 `json:"price" binding:"required"`
	Description string   `json:"description"`
	Available   *bool    `json:"available"`
	Image       *string  `json:"image"`
}

func (r menuItemRequest) item() models.MenuItem {
	return models.MenuItem{
		DishName:    r.DishName,
		Price:       *r.Price,
		Description: r.Description,
		Available:   r.Available,
		Image:       r.Image,
	}
}

func actorFrom(c *gin.Context) (catalog.Actor, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return catalog.Actor{}, false
	}
	return catalog.Actor{UserID: userID, Role: middleware.Role(c)}, true
}

/*
GET /api/cooks
- page + limit optional, search matches the kitchen name
- response: data + pagination
*/
func ListKitchens(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cooks"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		result, err := svc.Kitchens(c.Request.Context(), store.KitchenFilter{
			Search: c.Query("search"),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": result.Kitchens,
			"pagination": gin.H{
				"page":  result.Page,
				"limit": result.Limit,
				"total": result.Total,
			},
		})
	}
}

func GetKitchen(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cooks/:id"
		defer handlePanic(c, route)

		id, ok := kitchenIDParam(c, route, "id")
		if !ok {
			return
		}

		cook, err := svc.Kitchen(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cook)
	}
}

func CreateKitchen(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cooks"
		defer handlePanic(c, route)

		actor, ok := actorFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req kitchenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		cook, err := svc.CreateKitchen(c.Request.Context(), actor, models.Cook{
			Name:     req.Name,
			Location: req.Location,
			Phone:    req.Phone,
			Image:    req.Image,
			Menu:     req.Menu,
		})
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, cook)
	}
}

func AddMenuItem(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cooks/:id/menu"
		defer handlePanic(c, route)

		actor, ok := actorFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}
		id, ok := kitchenIDParam(c, route, "id")
		if !ok {
			return
		}

		var req menuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		cook, err := svc.AddMenuItem(c.Request.Context(), actor, id, req.item())
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		log.Printf("[%s] dish %q added to kitchen %s", route, req.DishName, id)
		c.JSON(http.StatusCreated, cook)
	}
}

func UpdateMenuItem(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cooks/:id/menu/:dishName"
		defer handlePanic(c, route)

		actor, ok := actorFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}
		id, ok := kitchenIDParam(c, route, "id")
		if !ok {
			return
		}

		var req menuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		cook, err := svc.UpdateMenuItem(c.Request.Context(), actor, id, c.Param("dishName"), req.item())
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cook)
	}
}

// KitchenPurchases lists purchases holding the kitchen's dishes. Only the
// kitchen owner and admins may read them.
func KitchenPurchases(sales orders.SalesReader, kitchens KitchenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/purchases/kitchen/:kitchenId/purchases"
		defer handlePanic(c, route)

		cook, ok := ownedKitchen(c, route, kitchens)
		if !ok {
			return
		}

		purchases, err := sales.KitchenPurchases(c.Request.Context(), cook.ID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, purchases)
	}
}

func KitchenStats(sales orders.SalesReader, kitchens KitchenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/purchases/kitchen/:kitchenId/stats"
		defer handlePanic(c, route)

		cook, ok := ownedKitchen(c, route, kitchens)
		if !ok {
			return
		}

		stats, err := sales.KitchenStats(c.Request.Context(), cook.ID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func ownedKitchen(c *gin.Context, route string, kitchens KitchenLookup) (models.Cook, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return models.Cook{}, false
	}
	id, ok := kitchenIDParam(c, route, "kitchenId")
	if !ok {
		return models.Cook{}, false
	}

	cook, err := kitchens.Kitchen(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, route, err)
		return models.Cook{}, false
	}
	if actor.Role != models.RoleAdmin && cook.UserID != actor.UserID {
		respondWithError(c, http.StatusForbidden, route, "forbidden")
		return models.Cook{}, false
	}
	return cook, true
}
