package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

// Built-in template names.
const (
	TemplateStandard  = "Standard License Application"
	TemplateFastTrack = "Fast Track Application"
)

// TemplateService bulk-seeds the stage catalog from named templates. Applying
// a template replaces the whole catalog atomically.
type TemplateService struct {
	repo   stageStore
	cache  *CacheService
	audit  auditLogger
	logger *zap.Logger
}

// NewTemplateService constructs the service.
func NewTemplateService(repo stageStore, cache *CacheService, audit auditLogger, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, cache: cache, audit: audit, logger: logger}
}

// Templates lists the built-in templates.
func (s *TemplateService) Templates() []models.StageTemplate {
	return []models.StageTemplate{
		{Name: TemplateStandard, Stages: standardStages()},
		{Name: TemplateFastTrack, Stages: fastTrackStages()},
	}
}

// Apply replaces the current catalog with the named template's stages. The
// swap is all-or-nothing: a failure leaves the previous catalog intact.
func (s *TemplateService) Apply(ctx context.Context, name string, actor *models.JWTClaims) ([]models.StageDefinition, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	var stages []models.StageDefinition
	switch name {
	case TemplateStandard:
		stages = standardStages()
	case TemplateFastTrack:
		stages = fastTrackStages()
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown workflow template")
	}

	if err := s.repo.ReplaceAll(ctx, stages); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply workflow template")
	}
	s.cache.Invalidate(ctx, "catalog:stages:*")

	if s.audit != nil {
		payload, _ := json.Marshal(map[string]interface{}{"template": name, "stages": len(stages)})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:    &actor.UserID,
			Action:    models.AuditActionTemplateApply,
			Resource:  "workflow_stage",
			NewValues: payload,
			IPAddress: "system",
			UserAgent: "template-service",
		}); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}

	return stages, nil
}

func standardStages() []models.StageDefinition {
	return []models.StageDefinition{
		{
			Name:              "Document Review",
			Description:       "Verify completeness and authenticity of submitted documents.",
			StageOrder:        1,
			EstimatedDuration: 3,
			RequiredDocuments: models.StringList{"Business registration", "Tax clearance"},
			AssignedRole:      models.StageRoleReviewer,
			CanReject:         true,
			IsRequired:        true,
			IsActive:          true,
		},
		{
			Name:              "Technical Assessment",
			Description:       "Evaluate transmitter specifications and frequency plan.",
			StageOrder:        2,
			EstimatedDuration: 7,
			RequiredDocuments: models.StringList{"Technical proposal", "Coverage map"},
			AssignedRole:      models.StageRoleInspector,
			CanReject:         true,
			IsRequired:        true,
			IsActive:          true,
		},
		{
			Name:              "Compliance Check",
			Description:       "Confirm regulatory and content compliance commitments.",
			StageOrder:        3,
			EstimatedDuration: 5,
			RequiredDocuments: models.StringList{"Compliance declaration"},
			AssignedRole:      models.StageRoleReviewer,
			CanReject:         true,
			IsRequired:        true,
			IsActive:          true,
		},
		{
			Name:              "Final Approval",
			Description:       "Commission decision on license issuance.",
			StageOrder:        4,
			EstimatedDuration: 5,
			RequiredDocuments: models.StringList{},
			AssignedRole:      models.StageRoleApprover,
			CanApprove:        true,
			CanReject:         true,
			IsRequired:        true,
			IsActive:          true,
		},
	}
}

func fastTrackStages() []models.StageDefinition {
	return []models.StageDefinition{
		{
			Name:              "Document Review",
			Description:       "Verify completeness of submitted documents.",
			StageOrder:        1,
			EstimatedDuration: 2,
			RequiredDocuments: models.StringList{"Business registration"},
			AssignedRole:      models.StageRoleReviewer,
			CanReject:         true,
			IsRequired:        true,
			IsActive:          true,
		},
		{
			Name:              "Final Approval",
			Description:       "Commission decision on license issuance.",
			StageOrder:        2,
			EstimatedDuration: 3,
			RequiredDocuments: models.StringList{},
			AssignedRole:      models.StageRoleApprover,
			CanApprove:        true,
			CanReject:         true,
			IsRequired:        true,
			IsActive:          true,
		},
	}
}
