package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/broadcast-labs/license-portal-api/internal/models"
)

const stageColumns = `id, name, description, stage_order, estimated_duration, required_documents,
       assigned_role, can_approve, can_reject, is_required, is_active, created_at, updated_at`

// StageRepository persists the workflow stage catalog.
type StageRepository struct {
	db *sqlx.DB
}

// NewStageRepository constructs the repository.
func NewStageRepository(db *sqlx.DB) *StageRepository {
	return &StageRepository{db: db}
}

// List returns catalog stages ordered by stage_order. Duplicate orders are
// tie-broken by creation time and id so listing stays deterministic.
func (r *StageRepository) List(ctx context.Context, includeInactive bool) ([]models.StageDefinition, error) {
	query := `SELECT ` + stageColumns + ` FROM workflow_stages`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY stage_order ASC, created_at ASC, id ASC`

	var stages []models.StageDefinition
	if err := r.db.SelectContext(ctx, &stages, query); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}

// GetByID fetches a single stage definition.
func (r *StageRepository) GetByID(ctx context.Context, id string) (*models.StageDefinition, error) {
	const query = `SELECT ` + stageColumns + ` FROM workflow_stages WHERE id = $1`
	var stage models.StageDefinition
	if err := r.db.GetContext(ctx, &stage, query, id); err != nil {
		return nil, err
	}
	return &stage, nil
}

// CountByOrder returns how many stages occupy the given order, excluding the
// optional stage id (used when updating a stage in place).
func (r *StageRepository) CountByOrder(ctx context.Context, order int, excludeID string) (int, error) {
	var count int
	if excludeID == "" {
		const query = `SELECT COUNT(*) FROM workflow_stages WHERE stage_order = $1`
		if err := r.db.GetContext(ctx, &count, query, order); err != nil {
			return 0, fmt.Errorf("count stages by order: %w", err)
		}
		return count, nil
	}
	const query = `SELECT COUNT(*) FROM workflow_stages WHERE stage_order = $1 AND id <> $2`
	if err := r.db.GetContext(ctx, &count, query, order, excludeID); err != nil {
		return 0, fmt.Errorf("count stages by order: %w", err)
	}
	return count, nil
}

// CountInstances reports how many workflow instances reference the stage.
func (r *StageRepository) CountInstances(ctx context.Context, stageID string) (int, error) {
	const query = `SELECT COUNT(*) FROM workflow_instances WHERE stage_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, stageID); err != nil {
		return 0, fmt.Errorf("count stage instances: %w", err)
	}
	return count, nil
}

const insertStageQuery = `INSERT INTO workflow_stages
	(id, name, description, stage_order, estimated_duration, required_documents, assigned_role,
	 can_approve, can_reject, is_required, is_active, created_at, updated_at)
	VALUES (:id, :name, :description, :stage_order, :estimated_duration, :required_documents, :assigned_role,
	 :can_approve, :can_reject, :is_required, :is_active, :created_at, :updated_at)`

// Create inserts a new stage definition.
func (r *StageRepository) Create(ctx context.Context, stage *models.StageDefinition) error {
	prepareStageRow(stage)
	if _, err := r.db.NamedExecContext(ctx, insertStageQuery, stage); err != nil {
		return fmt.Errorf("create stage: %w", err)
	}
	return nil
}

// Update persists a full stage row.
func (r *StageRepository) Update(ctx context.Context, stage *models.StageDefinition) error {
	stage.UpdatedAt = time.Now().UTC()
	const query = `UPDATE workflow_stages SET
		name = :name, description = :description, stage_order = :stage_order,
		estimated_duration = :estimated_duration, required_documents = :required_documents,
		assigned_role = :assigned_role, can_approve = :can_approve, can_reject = :can_reject,
		is_required = :is_required, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, stage)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check stage update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a stage. Deleting an absent id is a no-op so the operation
// stays idempotent.
func (r *StageRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM workflow_stages WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete stage: %w", err)
	}
	return nil
}

// ReplaceAll swaps the whole catalog for the provided stages inside one
// transaction, so a failure leaves the previous catalog untouched.
func (r *StageRepository) ReplaceAll(ctx context.Context, stages []models.StageDefinition) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM workflow_stages`); err != nil {
		return fmt.Errorf("clear stage catalog: %w", err)
	}

	for i := range stages {
		prepareStageRow(&stages[i])
		if _, err = tx.NamedExecContext(ctx, insertStageQuery, &stages[i]); err != nil {
			return fmt.Errorf("insert template stage %q: %w", stages[i].Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog replace: %w", err)
	}
	return nil
}

func prepareStageRow(stage *models.StageDefinition) {
	if stage.ID == "" {
		stage.ID = uuid.NewString()
	}
	if stage.RequiredDocuments == nil {
		stage.RequiredDocuments = models.StringList{}
	}
	now := time.Now().UTC()
	if stage.CreatedAt.IsZero() {
		stage.CreatedAt = now
	}
	stage.UpdatedAt = now
}
