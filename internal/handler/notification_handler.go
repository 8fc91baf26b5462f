package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
	"github.com/broadcast-labs/license-portal-api/pkg/response"
)

type notificationService interface {
	ListForUser(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string, actor *models.JWTClaims) error
}

// NotificationHandler exposes the caller's notification feed.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List the caller's notifications
// @Tags Notifications
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	notifications, err := h.service.ListForUser(c.Request.Context(), claims, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204 "No Content"
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
