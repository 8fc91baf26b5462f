package models

import "time"

// WorkflowComment is an append-only note attached to a workflow instance.
// Internal comments are never returned to applicant callers.
type WorkflowComment struct {
	ID            string    `db:"id" json:"id"`
	ApplicationID string    `db:"application_id" json:"application_id"`
	WorkflowID    string    `db:"workflow_id" json:"workflow_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Comment       string    `db:"comment" json:"comment"`
	IsInternal    bool      `db:"is_internal" json:"is_internal"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CommentFilter constrains comment listing queries.
type CommentFilter struct {
	ApplicationID   string
	WorkflowID      string
	IncludeInternal bool
}
