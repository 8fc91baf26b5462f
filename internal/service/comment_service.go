package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

type commentStore interface {
	Create(ctx context.Context, comment *models.WorkflowComment) error
	GetByID(ctx context.Context, id string) (*models.WorkflowComment, error)
	List(ctx context.Context, filter models.CommentFilter) ([]models.WorkflowComment, error)
	Update(ctx context.Context, comment *models.WorkflowComment) error
	Delete(ctx context.Context, id string) error
}

type instanceReader interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
}

type applicationReader interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

// CommentService manages the comment trail on workflow instances. Internal
// comment visibility is enforced here, not in handlers, so every caller gets
// the same filtering.
type CommentService struct {
	repo      commentStore
	instances instanceReader
	apps      applicationReader
	audit     auditLogger
	logger    *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(repo commentStore, instances instanceReader, apps applicationReader, audit auditLogger, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, instances: instances, apps: apps, audit: audit, logger: logger}
}

// Create posts a comment on a workflow instance. Applicants may only comment
// on their own applications and cannot mark comments internal.
func (s *CommentService) Create(ctx context.Context, req dto.CreateCommentRequest, actor *models.JWTClaims) (*models.WorkflowComment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(req.Comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}
	if req.ApplicationID == "" || req.WorkflowID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "applicationId and workflowId are required")
	}
	if req.IsInternal && !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	instance, err := s.instances.GetByID(ctx, req.WorkflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "workflow instance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow instance")
	}
	if instance.ApplicationID != req.ApplicationID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workflow instance does not belong to the application")
	}
	if !actor.Role.IsStaff() {
		app, err := s.apps.GetByID(ctx, req.ApplicationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
		}
		if app.ApplicantID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
	}

	comment := &models.WorkflowComment{
		ApplicationID: req.ApplicationID,
		WorkflowID:    req.WorkflowID,
		UserID:        actor.UserID,
		Comment:       strings.TrimSpace(req.Comment),
		IsInternal:    req.IsInternal,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	s.emitAudit(ctx, actor, models.AuditActionCommentCreate, comment.ID, comment)
	return comment, nil
}

// List returns comments for an application or workflow instance. Internal
// comments are stripped for non-staff callers regardless of what was asked.
func (s *CommentService) List(ctx context.Context, filter models.CommentFilter, actor *models.JWTClaims) ([]models.WorkflowComment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if filter.ApplicationID == "" && filter.WorkflowID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "applicationId or workflowId is required")
	}
	if !actor.Role.IsStaff() {
		filter.IncludeInternal = false
		if filter.ApplicationID != "" {
			app, err := s.apps.GetByID(ctx, filter.ApplicationID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
			}
			if app.ApplicantID != actor.UserID {
				return nil, appErrors.ErrForbidden
			}
		}
	}

	comments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// Update edits a comment. Authors may edit their own; admins may edit any.
func (s *CommentService) Update(ctx context.Context, id string, req dto.UpdateCommentRequest, actor *models.JWTClaims) (*models.WorkflowComment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	comment, err := s.loadComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	previous := *comment
	if req.Comment != nil {
		if strings.TrimSpace(*req.Comment) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "comment text cannot be empty")
		}
		comment.Comment = strings.TrimSpace(*req.Comment)
	}
	if req.IsInternal != nil {
		if *req.IsInternal && !actor.Role.IsStaff() {
			return nil, appErrors.ErrForbidden
		}
		comment.IsInternal = *req.IsInternal
	}

	if err := s.repo.Update(ctx, comment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comment")
	}
	s.emitAuditWithOld(ctx, actor, models.AuditActionCommentUpdate, comment.ID, &previous, comment)
	return comment, nil
}

// Delete removes a comment. Authors may delete their own; admins may delete any.
func (s *CommentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	comment, err := s.loadComment(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != actor.UserID && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	s.emitAuditWithOld(ctx, actor, models.AuditActionCommentDelete, id, comment, nil)
	return nil
}

func (s *CommentService) loadComment(ctx context.Context, id string) (*models.WorkflowComment, error) {
	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	return comment, nil
}

func (s *CommentService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, newValue interface{}) {
	s.emitAuditWithOld(ctx, actor, action, resourceID, nil, newValue)
}

func (s *CommentService) emitAuditWithOld(ctx context.Context, actor *models.JWTClaims, action, resourceID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "workflow_comment",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "comment-service",
	}
	if oldValue != nil {
		log.OldValues, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		log.NewValues, _ = json.Marshal(newValue)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
