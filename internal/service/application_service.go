package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

type workflowInstantiator interface {
	InstantiateForApplication(ctx context.Context, app *models.Application) ([]models.WorkflowInstance, error)
}

// ApplicationService owns the application lifecycle around the workflow
// engine: submission, payment confirmation and read access.
type ApplicationService struct {
	repo      applicationStore
	workflows workflowInstantiator
	notify    notifier
	audit     auditLogger
	logger    *zap.Logger
}

// NewApplicationService constructs the service.
func NewApplicationService(repo applicationStore, workflows workflowInstantiator, notify notifier, audit auditLogger, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{repo: repo, workflows: workflows, notify: notify, audit: audit, logger: logger}
}

// Submit files a new license application for the calling applicant and fans
// out its review workflow from the active stage catalog.
func (s *ApplicationService) Submit(ctx context.Context, req dto.SubmitApplicationRequest, actor *models.JWTClaims) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(req.LicenseType) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "licenseType is required")
	}

	now := time.Now().UTC()
	app := &models.Application{
		ApplicantID: actor.UserID,
		LicenseType: strings.TrimSpace(req.LicenseType),
		SubmittedAt: &now,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	if _, err := s.workflows.InstantiateForApplication(ctx, app); err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.Notify(actor.UserID, "Application submitted",
			"Your license application has entered review.", models.NotificationTypeSubmitted, app.ID)
	}
	s.emitAudit(ctx, actor, models.AuditActionApplicationSubmit, app.ID, app)

	created, err := s.repo.GetByID(ctx, app.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload application")
	}
	return created, nil
}

// Get fetches one application. Applicants only see their own.
func (s *ApplicationService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if !actor.Role.IsStaff() && app.ApplicantID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return app, nil
}

// ConfirmPayment marks the license fee as settled. Staff only.
func (s *ApplicationService) ConfirmPayment(ctx context.Context, id string, req dto.ConfirmPaymentRequest, actor *models.JWTClaims) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if app.PaymentStatus == models.PaymentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment has already been confirmed")
	}

	paidAt := time.Now().UTC()
	if err := s.repo.MarkPaid(ctx, id, paidAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm payment")
	}

	if s.notify != nil {
		s.notify.Notify(app.ApplicantID, "Payment confirmed",
			"Your license fee payment has been confirmed.", models.NotificationTypePaymentConfirmed, app.ID)
	}
	s.emitAudit(ctx, actor, models.AuditActionPaymentConfirm, app.ID, map[string]string{"reference": req.Reference})

	confirmed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload application")
	}
	return confirmed, nil
}

func (s *ApplicationService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, newValue interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "application",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "application-service",
	}
	if newValue != nil {
		log.NewValues, _ = json.Marshal(newValue)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
