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

type stageService interface {
	List(ctx context.Context, includeInactive bool, actor *models.JWTClaims) ([]models.StageDefinition, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.StageDefinition, error)
	Create(ctx context.Context, req dto.CreateStageRequest, actor *models.JWTClaims) (*models.StageDefinition, error)
	Update(ctx context.Context, id string, req dto.UpdateStageRequest, actor *models.JWTClaims) (*models.StageDefinition, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// StageHandler exposes REST endpoints for the workflow stage catalog.
type StageHandler struct {
	service stageService
}

// NewStageHandler constructs the handler.
func NewStageHandler(service stageService) *StageHandler {
	return &StageHandler{service: service}
}

// List godoc
// @Summary List workflow stages
// @Tags Workflow Stages
// @Produce json
// @Param includeInactive query bool false "Include inactive stages (admin only)"
// @Success 200 {object} response.Envelope
// @Router /workflow-stages [get]
func (h *StageHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))
	stages, err := h.service.List(c.Request.Context(), includeInactive, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stages, nil)
}

// Get godoc
// @Summary Get a workflow stage
// @Tags Workflow Stages
// @Produce json
// @Param id path string true "Stage ID"
// @Success 200 {object} response.Envelope
// @Router /workflow-stages/{id} [get]
func (h *StageHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stage, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stage, nil)
}

// Create godoc
// @Summary Create a workflow stage
// @Tags Workflow Stages
// @Accept json
// @Produce json
// @Param payload body dto.CreateStageRequest true "Stage definition"
// @Success 201 {object} response.Envelope
// @Router /workflow-stages [post]
func (h *StageHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid stage payload"))
		return
	}
	stage, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, stage, nil)
}

// Update godoc
// @Summary Update a workflow stage
// @Tags Workflow Stages
// @Accept json
// @Produce json
// @Param id path string true "Stage ID"
// @Param payload body dto.UpdateStageRequest true "Stage edits"
// @Success 200 {object} response.Envelope
// @Router /workflow-stages/{id} [put]
func (h *StageHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid stage payload"))
		return
	}
	stage, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stage, nil)
}

// Delete godoc
// @Summary Delete a workflow stage
// @Tags Workflow Stages
// @Param id path string true "Stage ID"
// @Success 204 "No Content"
// @Router /workflow-stages/{id} [delete]
func (h *StageHandler) Delete(c *gin.Context) {
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
