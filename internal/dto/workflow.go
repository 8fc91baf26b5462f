package dto

import "github.com/broadcast-labs/license-portal-api/internal/models"

// UpdateInstanceStatusRequest carries a reviewer decision for one instance.
type UpdateInstanceStatusRequest struct {
	Status models.InstanceStatus `json:"status"`
	// Reason is recorded as the rejection reason when the transition rejects
	// the application.
	Reason string `json:"reason"`
	// Version is the optimistic-locking token read by the client. Zero means
	// the client did not supply one and the current version is used.
	Version  int                     `json:"version"`
	Priority models.InstancePriority `json:"priority"`
	DueDate  *string                 `json:"dueDate"`
	AssignTo *string                 `json:"assignTo"`
}
