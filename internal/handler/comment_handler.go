package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
	"github.com/broadcast-labs/license-portal-api/pkg/response"
)

type commentService interface {
	Create(ctx context.Context, req dto.CreateCommentRequest, actor *models.JWTClaims) (*models.WorkflowComment, error)
	List(ctx context.Context, filter models.CommentFilter, actor *models.JWTClaims) ([]models.WorkflowComment, error)
	Update(ctx context.Context, id string, req dto.UpdateCommentRequest, actor *models.JWTClaims) (*models.WorkflowComment, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// CommentHandler exposes the workflow comment trail.
type CommentHandler struct {
	service commentService
}

// NewCommentHandler constructs the handler.
func NewCommentHandler(service commentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// Create godoc
// @Summary Post a workflow comment
// @Tags Workflow Comments
// @Accept json
// @Produce json
// @Param payload body dto.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /workflow-comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	comment, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, comment, nil)
}

// List godoc
// @Summary List workflow comments
// @Tags Workflow Comments
// @Produce json
// @Param applicationId query string false "Application ID"
// @Param workflowId query string false "Workflow instance ID"
// @Param includeInternal query bool false "Include internal comments (staff only)"
// @Success 200 {object} response.Envelope
// @Router /workflow-comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	includeInternal, _ := strconv.ParseBool(c.Query("includeInternal"))
	filter := models.CommentFilter{
		ApplicationID:   c.Query("applicationId"),
		WorkflowID:      c.Query("workflowId"),
		IncludeInternal: includeInternal,
	}
	comments, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// Update godoc
// @Summary Edit a workflow comment
// @Tags Workflow Comments
// @Accept json
// @Produce json
// @Param id path string true "Comment ID"
// @Param payload body dto.UpdateCommentRequest true "Comment edits"
// @Success 200 {object} response.Envelope
// @Router /workflow-comments/{id} [put]
func (h *CommentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	comment, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comment, nil)
}

// Delete godoc
// @Summary Delete a workflow comment
// @Tags Workflow Comments
// @Param id path string true "Comment ID"
// @Success 204 "No Content"
// @Router /workflow-comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
