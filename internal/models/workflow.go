package models

import "time"

// InstanceStatus captures the per-stage progress state of an application.
type InstanceStatus string

const (
	InstanceStatusPending    InstanceStatus = "PENDING"
	InstanceStatusInProgress InstanceStatus = "IN_PROGRESS"
	InstanceStatusApproved   InstanceStatus = "APPROVED"
	InstanceStatusRejected   InstanceStatus = "REJECTED"
	InstanceStatusReturned   InstanceStatus = "RETURNED"
)

// Valid reports whether the status is one of the known instance states.
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstanceStatusPending, InstanceStatusInProgress, InstanceStatusApproved,
		InstanceStatusRejected, InstanceStatusReturned:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is expected from the status.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceStatusApproved || s == InstanceStatusRejected
}

// instanceTransitions is the allowed transition table. Terminal states have
// no outgoing edges; RETURNED must re-enter IN_PROGRESS before a decision.
var instanceTransitions = map[InstanceStatus][]InstanceStatus{
	InstanceStatusPending: {
		InstanceStatusInProgress,
		InstanceStatusApproved,
		InstanceStatusRejected,
		InstanceStatusReturned,
	},
	InstanceStatusInProgress: {
		InstanceStatusApproved,
		InstanceStatusRejected,
		InstanceStatusReturned,
	},
	InstanceStatusReturned: {
		InstanceStatusInProgress,
	},
}

// CanTransition reports whether moving from s to next is permitted.
func (s InstanceStatus) CanTransition(next InstanceStatus) bool {
	for _, allowed := range instanceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InstancePriority flags reviewer urgency on an instance.
type InstancePriority string

const (
	PriorityLow    InstancePriority = "LOW"
	PriorityNormal InstancePriority = "NORMAL"
	PriorityHigh   InstancePriority = "HIGH"
	PriorityUrgent InstancePriority = "URGENT"
)

// Valid reports whether the priority is a known value.
func (p InstancePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// WorkflowInstance is the per-application, per-stage progress record.
type WorkflowInstance struct {
	ID            string           `db:"id" json:"id"`
	ApplicationID string           `db:"application_id" json:"application_id"`
	StageID       string           `db:"stage_id" json:"stage_id"`
	Status        InstanceStatus   `db:"status" json:"status"`
	AssignedTo    *string          `db:"assigned_to" json:"assigned_to,omitempty"`
	ReviewedBy    *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	StartedAt     *time.Time       `db:"started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	DueDate       *time.Time       `db:"due_date" json:"due_date,omitempty"`
	Priority      InstancePriority `db:"priority" json:"priority"`
	Version       int              `db:"version" json:"version"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}
