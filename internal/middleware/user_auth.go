package middleware

import (
	"github.com/gin-gonic/gin"

	"homekitchen/internal/models"
)

// UserAuth accepts any signed-in account.
func UserAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret)
}

// StoreOwnerAuth accepts store owners and admins.
func StoreOwnerAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, models.RoleStoreOwner, models.RoleAdmin)
}

// AdminAuth guards the /api/admin routes.
func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, models.RoleAdmin)
}
