package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/broadcast-labs/license-portal-api/internal/models"
)

const instanceColumns = `id, application_id, stage_id, status, assigned_to, reviewed_by,
       reviewed_at, started_at, completed_at, due_date, priority, version, created_at, updated_at`

// WorkflowRepository persists per-application workflow instances.
type WorkflowRepository struct {
	db *sqlx.DB
}

// NewWorkflowRepository constructs the repository.
func NewWorkflowRepository(db *sqlx.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// CreateBatch inserts the full fan-out of instances for an application inside
// one transaction; a failed insert rolls back every row.
func (r *WorkflowRepository) CreateBatch(ctx context.Context, instances []models.WorkflowInstance) (err error) {
	if len(instances) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin workflow fan-out: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO workflow_instances
		(id, application_id, stage_id, status, assigned_to, reviewed_by, reviewed_at,
		 started_at, completed_at, due_date, priority, version, created_at, updated_at)
		VALUES (:id, :application_id, :stage_id, :status, :assigned_to, :reviewed_by, :reviewed_at,
		 :started_at, :completed_at, :due_date, :priority, :version, :created_at, :updated_at)`

	now := time.Now().UTC()
	for i := range instances {
		if instances[i].ID == "" {
			instances[i].ID = uuid.NewString()
		}
		if instances[i].Status == "" {
			instances[i].Status = models.InstanceStatusPending
		}
		if instances[i].Priority == "" {
			instances[i].Priority = models.PriorityNormal
		}
		if instances[i].Version == 0 {
			instances[i].Version = 1
		}
		if instances[i].CreatedAt.IsZero() {
			instances[i].CreatedAt = now
		}
		instances[i].UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, query, &instances[i]); err != nil {
			return fmt.Errorf("insert workflow instance for stage %s: %w", instances[i].StageID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit workflow fan-out: %w", err)
	}
	return nil
}

// GetByID fetches one workflow instance.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	const query = `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = $1`
	var instance models.WorkflowInstance
	if err := r.db.GetContext(ctx, &instance, query, id); err != nil {
		return nil, err
	}
	return &instance, nil
}

// ListByApplication returns every instance belonging to the application.
func (r *WorkflowRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.WorkflowInstance, error) {
	const query = `SELECT ` + instanceColumns + ` FROM workflow_instances
		WHERE application_id = $1 ORDER BY created_at ASC, id ASC`
	var instances []models.WorkflowInstance
	if err := r.db.SelectContext(ctx, &instances, query, applicationID); err != nil {
		return nil, fmt.Errorf("list workflow instances: %w", err)
	}
	return instances, nil
}

// UpdateInstanceParams groups the mutable columns of a status update.
type UpdateInstanceParams struct {
	ID          string
	Status      models.InstanceStatus
	ReviewedBy  string
	ReviewedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	AssignedTo  *string
	Priority    models.InstancePriority
	DueDate     *time.Time
	// ExpectedVersion is the version the caller read; the update only lands
	// when it still matches, making concurrent edits detectable.
	ExpectedVersion int
}

// ErrStaleInstance signals a compare-and-swap miss on the version column.
var ErrStaleInstance = fmt.Errorf("workflow instance version mismatch")

// UpdateStatus applies a reviewer decision with an optimistic version check.
func (r *WorkflowRepository) UpdateStatus(ctx context.Context, params UpdateInstanceParams) error {
	const updateQuery = `UPDATE workflow_instances SET
		status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at,
		started_at = COALESCE(started_at, :started_at), completed_at = :completed_at,
		assigned_to = COALESCE(:assigned_to, assigned_to), priority = :priority,
		due_date = COALESCE(:due_date, due_date),
		version = version + 1, updated_at = :updated_at
		WHERE id = :id AND version = :expected_version`

	result, err := r.db.NamedExecContext(ctx, updateQuery, map[string]interface{}{
		"id":               params.ID,
		"status":           params.Status,
		"reviewed_by":      params.ReviewedBy,
		"reviewed_at":      params.ReviewedAt,
		"started_at":       params.StartedAt,
		"completed_at":     params.CompletedAt,
		"assigned_to":      params.AssignedTo,
		"priority":         params.Priority,
		"due_date":         params.DueDate,
		"updated_at":       time.Now().UTC(),
		"expected_version": params.ExpectedVersion,
	})
	if err != nil {
		return fmt.Errorf("update workflow instance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check workflow update rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleInstance
	}
	return nil
}
