package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
	"github.com/broadcast-labs/license-portal-api/pkg/response"
)

type templateService interface {
	Templates() []models.StageTemplate
	Apply(ctx context.Context, name string, actor *models.JWTClaims) ([]models.StageDefinition, error)
}

// TemplateHandler exposes the built-in workflow templates.
type TemplateHandler struct {
	service templateService
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(service templateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// List godoc
// @Summary List built-in workflow templates
// @Tags Workflow Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /workflow-templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Templates(), nil)
}

// Apply godoc
// @Summary Replace the stage catalog with a template
// @Tags Workflow Templates
// @Accept json
// @Produce json
// @Param payload body dto.ApplyTemplateRequest true "Template name"
// @Success 200 {object} response.Envelope
// @Router /workflow-templates/apply [post]
func (h *TemplateHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApplyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template payload"))
		return
	}
	stages, err := h.service.Apply(c.Request.Context(), req.Template, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stages, nil)
}
