package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/broadcast-labs/license-portal-api/internal/models"
)

const commentColumns = `id, application_id, workflow_id, user_id, comment, is_internal, created_at, updated_at`

// CommentRepository persists workflow comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a new comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.WorkflowComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	const query = `INSERT INTO workflow_comments
		(id, application_id, workflow_id, user_id, comment, is_internal, created_at, updated_at)
		VALUES (:id, :application_id, :workflow_id, :user_id, :comment, :is_internal, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetByID fetches a comment.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.WorkflowComment, error) {
	const query = `SELECT ` + commentColumns + ` FROM workflow_comments WHERE id = $1`
	var comment models.WorkflowComment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// List returns comments matching the filter, oldest first. Internal comments
// are excluded at this layer unless the filter explicitly includes them.
func (r *CommentRepository) List(ctx context.Context, filter models.CommentFilter) ([]models.WorkflowComment, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + commentColumns + ` FROM workflow_comments`)

	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)
	if filter.ApplicationID != "" {
		args = append(args, filter.ApplicationID)
		conditions = append(conditions, fmt.Sprintf("application_id = $%d", len(args)))
	}
	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		conditions = append(conditions, fmt.Sprintf("workflow_id = $%d", len(args)))
	}
	if !filter.IncludeInternal {
		conditions = append(conditions, "is_internal = FALSE")
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at ASC, id ASC")

	var comments []models.WorkflowComment
	if err := r.db.SelectContext(ctx, &comments, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Update edits comment text and visibility.
func (r *CommentRepository) Update(ctx context.Context, comment *models.WorkflowComment) error {
	comment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE workflow_comments SET comment = :comment, is_internal = :is_internal, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, comment)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check comment update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM workflow_comments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check comment delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
