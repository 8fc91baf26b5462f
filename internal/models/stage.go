package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StageRole enumerates the role required to work a review stage.
type StageRole string

const (
	StageRoleAdmin     StageRole = "ADMIN"
	StageRoleReviewer  StageRole = "REVIEWER"
	StageRoleApprover  StageRole = "APPROVER"
	StageRoleInspector StageRole = "INSPECTOR"
)

// Valid reports whether the role is a known stage role.
func (r StageRole) Valid() bool {
	switch r {
	case StageRoleAdmin, StageRoleReviewer, StageRoleApprover, StageRoleInspector:
		return true
	default:
		return false
	}
}

// StringList is a list of strings serialized as JSON in a text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported string list source type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	*l = out
	return nil
}

// StageDefinition is one configurable step in the review pipeline.
type StageDefinition struct {
	ID                string     `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Description       string     `db:"description" json:"description"`
	StageOrder        int        `db:"stage_order" json:"stage_order"`
	EstimatedDuration int        `db:"estimated_duration" json:"estimated_duration"`
	RequiredDocuments StringList `db:"required_documents" json:"required_documents"`
	AssignedRole      StageRole  `db:"assigned_role" json:"assigned_role"`
	CanApprove        bool       `db:"can_approve" json:"can_approve"`
	CanReject         bool       `db:"can_reject" json:"can_reject"`
	IsRequired        bool       `db:"is_required" json:"is_required"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// StageTemplate is a named, predefined ordered list of stage specs used to
// bulk-seed the catalog.
type StageTemplate struct {
	Name   string            `json:"name"`
	Stages []StageDefinition `json:"stages"`
}
