package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/models"
	"github.com/broadcast-labs/license-portal-api/internal/repository"
	"github.com/broadcast-labs/license-portal-api/pkg/middleware/requestid"
)

// Audit records an audit log row after each successful request on the route.
// Failures are not audited here; services audit their own domain mutations.
func Audit(repo *repository.UserRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok {
				userID = &user.UserID
			}
		}

		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		_ = repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  requestSummary(c, start),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}

func requestSummary(c *gin.Context, start time.Time) []byte {
	summary := map[string]interface{}{
		"path":    c.FullPath(),
		"method":  c.Request.Method,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).Milliseconds(),
	}
	if reqID := requestid.Value(c); reqID != "" {
		summary["request_id"] = reqID
	}

	body, _ := json.Marshal(summary)
	return body
}
