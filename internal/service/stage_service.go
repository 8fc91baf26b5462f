package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

const stageCacheKeyActive = "catalog:stages:active"

type stageStore interface {
	List(ctx context.Context, includeInactive bool) ([]models.StageDefinition, error)
	GetByID(ctx context.Context, id string) (*models.StageDefinition, error)
	CountByOrder(ctx context.Context, order int, excludeID string) (int, error)
	CountInstances(ctx context.Context, stageID string) (int, error)
	Create(ctx context.Context, stage *models.StageDefinition) error
	Update(ctx context.Context, stage *models.StageDefinition) error
	Delete(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, stages []models.StageDefinition) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// StagePolicy captures the configurable catalog rules.
type StagePolicy struct {
	// StrictStageOrder rejects order collisions instead of tolerating
	// duplicates tie-broken by insertion order.
	StrictStageOrder bool
	// ForbidDeleteInUse rejects deleting stages referenced by existing
	// workflow instances instead of leaving orphaned references behind.
	ForbidDeleteInUse bool
}

// StageService manages the workflow stage catalog.
type StageService struct {
	repo   stageStore
	cache  *CacheService
	audit  auditLogger
	logger *zap.Logger
	policy StagePolicy
}

// NewStageService constructs the service.
func NewStageService(repo stageStore, cache *CacheService, audit auditLogger, logger *zap.Logger, policy StagePolicy) *StageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageService{repo: repo, cache: cache, audit: audit, logger: logger, policy: policy}
}

// List returns catalog stages. Inactive stages are only visible to admins
// asking for them; workflow instantiation always consumes the active subset.
func (s *StageService) List(ctx context.Context, includeInactive bool, actor *models.JWTClaims) ([]models.StageDefinition, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if includeInactive && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if includeInactive {
		return s.listUncached(ctx, true)
	}
	return s.ListActive(ctx)
}

// ListActive returns active stages in catalog order, served from cache when
// available.
func (s *StageService) ListActive(ctx context.Context) ([]models.StageDefinition, error) {
	var cached []models.StageDefinition
	if hit, _ := s.cache.Get(ctx, stageCacheKeyActive, &cached); hit {
		return cached, nil
	}
	stages, err := s.listUncached(ctx, false)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, stageCacheKeyActive, stages, 0); err != nil {
		s.logger.Warn("failed to cache stage catalog", zap.Error(err))
	}
	return stages, nil
}

func (s *StageService) listUncached(ctx context.Context, includeInactive bool) ([]models.StageDefinition, error) {
	stages, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stages")
	}
	return stages, nil
}

// Get fetches a single stage definition.
func (s *StageService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.StageDefinition, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	stage, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage")
	}
	return stage, nil
}

// Create adds a catalog stage, applying the documented defaults for omitted
// fields.
func (s *StageService) Create(ctx context.Context, req dto.CreateStageRequest, actor *models.JWTClaims) (*models.StageDefinition, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stage name is required")
	}
	if req.StageOrder == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stageOrder is required")
	}
	if req.AssignedRole != "" && !req.AssignedRole.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported assigned role")
	}

	if s.policy.StrictStageOrder {
		count, err := s.repo.CountByOrder(ctx, *req.StageOrder, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check stage order")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("stage order %d is already in use", *req.StageOrder))
		}
	}

	stage := &models.StageDefinition{
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		StageOrder:        *req.StageOrder,
		EstimatedDuration: 1,
		RequiredDocuments: models.StringList{},
		AssignedRole:      models.StageRoleReviewer,
		CanApprove:        false,
		CanReject:         false,
		IsRequired:        true,
		IsActive:          true,
	}
	if req.EstimatedDuration != nil && *req.EstimatedDuration > 0 {
		stage.EstimatedDuration = *req.EstimatedDuration
	}
	if req.RequiredDocuments != nil {
		stage.RequiredDocuments = models.StringList(req.RequiredDocuments)
	}
	if req.AssignedRole != "" {
		stage.AssignedRole = req.AssignedRole
	}
	if req.CanApprove != nil {
		stage.CanApprove = *req.CanApprove
	}
	if req.CanReject != nil {
		stage.CanReject = *req.CanReject
	}
	if req.IsRequired != nil {
		stage.IsRequired = *req.IsRequired
	}
	if req.IsActive != nil {
		stage.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, stage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create stage")
	}
	s.invalidateCatalog(ctx)
	s.emitAudit(ctx, actor, models.AuditActionStageCreate, stage.ID, nil, stage)
	return stage, nil
}

// Update applies a partial stage edit.
func (s *StageService) Update(ctx context.Context, id string, req dto.UpdateStageRequest, actor *models.JWTClaims) (*models.StageDefinition, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	stage, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage")
	}
	previous := *stage

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "stage name cannot be empty")
		}
		stage.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		stage.Description = *req.Description
	}
	if req.StageOrder != nil {
		if s.policy.StrictStageOrder && *req.StageOrder != previous.StageOrder {
			count, err := s.repo.CountByOrder(ctx, *req.StageOrder, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check stage order")
			}
			if count > 0 {
				return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("stage order %d is already in use", *req.StageOrder))
			}
		}
		stage.StageOrder = *req.StageOrder
	}
	if req.EstimatedDuration != nil {
		if *req.EstimatedDuration <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "estimatedDuration must be positive")
		}
		stage.EstimatedDuration = *req.EstimatedDuration
	}
	if req.RequiredDocuments != nil {
		stage.RequiredDocuments = models.StringList(req.RequiredDocuments)
	}
	if req.AssignedRole != nil {
		if !req.AssignedRole.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported assigned role")
		}
		stage.AssignedRole = *req.AssignedRole
	}
	if req.CanApprove != nil {
		stage.CanApprove = *req.CanApprove
	}
	if req.CanReject != nil {
		stage.CanReject = *req.CanReject
	}
	if req.IsRequired != nil {
		stage.IsRequired = *req.IsRequired
	}
	if req.IsActive != nil {
		stage.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, stage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update stage")
	}
	s.invalidateCatalog(ctx)
	s.emitAudit(ctx, actor, models.AuditActionStageUpdate, stage.ID, &previous, stage)
	return stage, nil
}

// Delete removes a stage. Repeating a delete is a no-op; existing workflow
// instances keep their stage reference unless policy forbids it.
func (s *StageService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}

	if s.policy.ForbidDeleteInUse {
		count, err := s.repo.CountInstances(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check stage usage")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "stage is referenced by existing workflow instances")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete stage")
	}
	s.invalidateCatalog(ctx)
	s.emitAudit(ctx, actor, models.AuditActionStageDelete, id, nil, nil)
	return nil
}

func (s *StageService) invalidateCatalog(ctx context.Context) {
	s.cache.Invalidate(ctx, "catalog:stages:*")
}

func (s *StageService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "workflow_stage",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "stage-service",
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
