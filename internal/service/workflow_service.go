package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	"github.com/broadcast-labs/license-portal-api/internal/repository"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

type workflowStore interface {
	CreateBatch(ctx context.Context, instances []models.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	ListByApplication(ctx context.Context, applicationID string) ([]models.WorkflowInstance, error)
	UpdateStatus(ctx context.Context, params repository.UpdateInstanceParams) error
}

type applicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	UpdateProjection(ctx context.Context, params repository.ProjectionParams) error
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
}

type stageCatalog interface {
	List(ctx context.Context, includeInactive bool) ([]models.StageDefinition, error)
	GetByID(ctx context.Context, id string) (*models.StageDefinition, error)
}

type notifier interface {
	Notify(userID, title, message string, notificationType models.NotificationType, applicationID string)
}

// WorkflowService drives per-application review workflows: instantiation
// fan-out at submission, guarded stage transitions, and the status projection
// back onto the application.
type WorkflowService struct {
	instances workflowStore
	apps      applicationStore
	stages    stageCatalog
	notify    notifier
	audit     auditLogger
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(instances workflowStore, apps applicationStore, stages stageCatalog, notify notifier, audit auditLogger, metrics *MetricsService, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		instances: instances,
		apps:      apps,
		stages:    stages,
		notify:    notify,
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
	}
}

// InstantiateForApplication fans out one PENDING instance per active catalog
// stage in a single transaction, then projects the aggregate status. Due
// dates accumulate the estimated stage durations from the submission time.
func (s *WorkflowService) InstantiateForApplication(ctx context.Context, app *models.Application) ([]models.WorkflowInstance, error) {
	stages, err := s.stages.List(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage catalog")
	}
	if len(stages) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no active workflow stages configured")
	}

	start := time.Now().UTC()
	if app.SubmittedAt != nil {
		start = *app.SubmittedAt
	}

	instances := make([]models.WorkflowInstance, 0, len(stages))
	elapsed := 0
	for _, stage := range stages {
		elapsed += stage.EstimatedDuration
		due := start.AddDate(0, 0, elapsed)
		instances = append(instances, models.WorkflowInstance{
			ApplicationID: app.ID,
			StageID:       stage.ID,
			Status:        models.InstanceStatusPending,
			Priority:      models.PriorityNormal,
			DueDate:       &due,
		})
	}

	if err := s.instances.CreateBatch(ctx, instances); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to instantiate workflow")
	}

	if _, err := s.project(ctx, app.ID, nil); err != nil {
		return nil, err
	}
	return instances, nil
}

// ListForApplication returns the application's workflow instances. Applicants
// only see their own applications.
func (s *WorkflowService) ListForApplication(ctx context.Context, applicationID string, actor *models.JWTClaims) ([]models.WorkflowInstance, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && app.ApplicantID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	instances, err := s.instances.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workflow instances")
	}
	return instances, nil
}

// UpdateInstanceStatus applies a reviewer decision to one workflow instance
// and reprojects the application aggregate. Only staff and admin callers may
// transition instances; approvals and rejections additionally require the
// stage capability.
func (s *WorkflowService) UpdateInstanceStatus(ctx context.Context, applicationID, instanceID string, req dto.UpdateInstanceStatusRequest, actor *models.JWTClaims) (*models.WorkflowInstance, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported instance status")
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported priority")
	}

	instance, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow instance")
	}
	if instance.ApplicationID != applicationID {
		return nil, appErrors.ErrNotFound
	}

	if !instance.Status.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", instance.Status, req.Status))
	}

	if req.Status == models.InstanceStatusApproved || req.Status == models.InstanceStatusRejected {
		stage, err := s.stages.GetByID(ctx, instance.StageID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage")
		}
		// A missing stage definition carries no capability.
		if req.Status == models.InstanceStatusApproved && (stage == nil || !stage.CanApprove) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "stage cannot approve applications")
		}
		if req.Status == models.InstanceStatusRejected && (stage == nil || !stage.CanReject) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "stage cannot reject applications")
		}
	}

	expectedVersion := instance.Version
	if req.Version > 0 {
		expectedVersion = req.Version
	}

	now := time.Now().UTC()
	params := repository.UpdateInstanceParams{
		ID:              instance.ID,
		Status:          req.Status,
		ReviewedBy:      actor.UserID,
		ReviewedAt:      now,
		Priority:        instance.Priority,
		AssignedTo:      req.AssignTo,
		ExpectedVersion: expectedVersion,
	}
	if req.Priority != "" {
		params.Priority = req.Priority
	}
	if req.Status == models.InstanceStatusInProgress {
		params.StartedAt = &now
	}
	if req.Status.Terminal() {
		params.CompletedAt = &now
	}
	if req.DueDate != nil {
		due, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "dueDate must be RFC3339")
		}
		params.DueDate = &due
	}

	if err := s.instances.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, repository.ErrStaleInstance) {
			return nil, appErrors.ErrVersionConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update workflow instance")
	}
	s.metrics.RecordTransition(instance.Status, req.Status)

	var reason *string
	if req.Status == models.InstanceStatusRejected && req.Reason != "" {
		reason = &req.Reason
	}
	projection, err := s.project(ctx, applicationID, reason)
	if err != nil {
		return nil, err
	}
	s.notifyOutcome(ctx, applicationID, req.Status, projection)
	s.emitTransitionAudit(ctx, actor, instance, req.Status)

	updated, err := s.instances.GetByID(ctx, instance.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload workflow instance")
	}
	return updated, nil
}

// project recomputes and persists the application aggregate from the current
// instance set.
func (s *WorkflowService) project(ctx context.Context, applicationID string, rejectionReason *string) (models.Projection, error) {
	instances, err := s.instances.ListByApplication(ctx, applicationID)
	if err != nil {
		return models.Projection{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workflow instances")
	}
	stages, err := s.stages.List(ctx, true)
	if err != nil {
		return models.Projection{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage catalog")
	}

	projection := models.ProjectApplication(instances, models.StageIndex(stages))

	params := repository.ProjectionParams{
		ID:           applicationID,
		Status:       projection.Status,
		CurrentStage: projection.CurrentStage,
		Progress:     projection.Progress,
	}
	now := time.Now().UTC()
	switch projection.Status {
	case models.ApplicationStatusApproved:
		params.ApprovedAt = &now
	case models.ApplicationStatusRejected:
		params.RejectedAt = &now
		params.RejectionReason = rejectionReason
	}

	if err := s.apps.UpdateProjection(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Projection{}, appErrors.ErrNotFound
		}
		return models.Projection{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}
	return projection, nil
}

func (s *WorkflowService) notifyOutcome(ctx context.Context, applicationID string, instanceStatus models.InstanceStatus, projection models.Projection) {
	if s.notify == nil {
		return
	}
	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		s.logger.Warn("failed to load application for notification", zap.String("application_id", applicationID), zap.Error(err))
		return
	}
	switch {
	case projection.Status == models.ApplicationStatusApproved:
		s.notify.Notify(app.ApplicantID, "Application approved",
			"Your license application has been approved.", models.NotificationTypeApproved, app.ID)
	case projection.Status == models.ApplicationStatusRejected:
		s.notify.Notify(app.ApplicantID, "Application rejected",
			"Your license application has been rejected.", models.NotificationTypeRejected, app.ID)
	case instanceStatus == models.InstanceStatusReturned:
		s.notify.Notify(app.ApplicantID, "Application returned",
			"A review stage returned your application for corrections.", models.NotificationTypeReturned, app.ID)
	}
}

func (s *WorkflowService) emitTransitionAudit(ctx context.Context, actor *models.JWTClaims, instance *models.WorkflowInstance, newStatus models.InstanceStatus) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(instance.Status)})
	newValues, _ := json.Marshal(map[string]string{"status": string(newStatus)})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionStageTransition,
		Resource:   "workflow_instance",
		ResourceID: &instance.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "workflow-service",
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *WorkflowService) loadApplication(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}
