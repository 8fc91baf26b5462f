package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/middleware"
	"github.com/broadcast-labs/license-portal-api/internal/models"
)

// claimsFromContext returns the authenticated caller's claims, or nil on
// unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	if claims, ok := value.(*models.JWTClaims); ok {
		return claims
	}
	return nil
}
