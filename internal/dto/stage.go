package dto

import "github.com/broadcast-labs/license-portal-api/internal/models"

// CreateStageRequest payload for adding a catalog stage.
type CreateStageRequest struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	StageOrder        *int             `json:"stageOrder"`
	EstimatedDuration *int             `json:"estimatedDuration"`
	RequiredDocuments []string         `json:"requiredDocuments"`
	AssignedRole      models.StageRole `json:"assignedRole"`
	CanApprove        *bool            `json:"canApprove"`
	CanReject         *bool            `json:"canReject"`
	IsRequired        *bool            `json:"isRequired"`
	IsActive          *bool            `json:"isActive"`
}

// UpdateStageRequest carries a partial stage update; nil fields are untouched.
type UpdateStageRequest struct {
	Name              *string           `json:"name"`
	Description       *string           `json:"description"`
	StageOrder        *int              `json:"stageOrder"`
	EstimatedDuration *int              `json:"estimatedDuration"`
	RequiredDocuments []string          `json:"requiredDocuments"`
	AssignedRole      *models.StageRole `json:"assignedRole"`
	CanApprove        *bool             `json:"canApprove"`
	CanReject         *bool             `json:"canReject"`
	IsRequired        *bool             `json:"isRequired"`
	IsActive          *bool             `json:"isActive"`
}

// ApplyTemplateRequest names the built-in template to seed the catalog with.
type ApplyTemplateRequest struct {
	Template string `json:"template"`
}
