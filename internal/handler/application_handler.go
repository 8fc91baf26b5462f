package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
	"github.com/broadcast-labs/license-portal-api/pkg/response"
)

type applicationService interface {
	Submit(ctx context.Context, req dto.SubmitApplicationRequest, actor *models.JWTClaims) (*models.Application, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error)
	ConfirmPayment(ctx context.Context, id string, req dto.ConfirmPaymentRequest, actor *models.JWTClaims) (*models.Application, error)
}

type workflowService interface {
	ListForApplication(ctx context.Context, applicationID string, actor *models.JWTClaims) ([]models.WorkflowInstance, error)
	UpdateInstanceStatus(ctx context.Context, applicationID, instanceID string, req dto.UpdateInstanceStatusRequest, actor *models.JWTClaims) (*models.WorkflowInstance, error)
}

type certificateService interface {
	Issue(ctx context.Context, applicationID string, actor *models.JWTClaims) ([]byte, error)
}

// ApplicationHandler exposes the application lifecycle endpoints, including
// the per-application workflow surface.
type ApplicationHandler struct {
	applications applicationService
	workflows    workflowService
	certificates certificateService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(applications applicationService, workflows workflowService, certificates certificateService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, workflows: workflows, certificates: certificates}
}

// Submit godoc
// @Summary Submit a license application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application payload"))
		return
	}
	app, err := h.applications.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, app, nil)
}

// Get godoc
// @Summary Get a license application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	app, err := h.applications.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Workflow godoc
// @Summary List an application's workflow instances
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/workflow [get]
func (h *ApplicationHandler) Workflow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	instances, err := h.workflows.ListForApplication(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instances, nil)
}

// Transition godoc
// @Summary Apply a reviewer decision to a workflow instance
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param workflowId path string true "Workflow instance ID"
// @Param payload body dto.UpdateInstanceStatusRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/workflow/{workflowId} [patch]
func (h *ApplicationHandler) Transition(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateInstanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	instance, err := h.workflows.UpdateInstanceStatus(c.Request.Context(), c.Param("id"), c.Param("workflowId"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instance, nil)
}

// ConfirmPayment godoc
// @Summary Confirm the license fee payment
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.ConfirmPaymentRequest true "Payment reference"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/payment [post]
func (h *ApplicationHandler) ConfirmPayment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payment payload"))
		return
	}
	app, err := h.applications.ConfirmPayment(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Certificate godoc
// @Summary Download the license certificate PDF
// @Tags Applications
// @Produce application/pdf
// @Param id path string true "Application ID"
// @Success 200 {file} binary
// @Router /applications/{id}/certificate [get]
func (h *ApplicationHandler) Certificate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id := c.Param("id")
	pdf, err := h.certificates.Issue(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=certificate-%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
