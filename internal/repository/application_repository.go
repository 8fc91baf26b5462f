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

const applicationColumns = `id, applicant_id, license_type, status, current_stage, progress,
       payment_status, submitted_at, approved_at, rejected_at, rejection_reason, paid_at,
       created_at, updated_at`

// ApplicationRepository persists license applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a newly submitted application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.ApplicationStatusSubmitted
	}
	if app.PaymentStatus == "" {
		app.PaymentStatus = models.PaymentStatusUnpaid
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now
	const query = `INSERT INTO applications
		(id, applicant_id, license_type, status, current_stage, progress, payment_status,
		 submitted_at, approved_at, rejected_at, rejection_reason, paid_at, created_at, updated_at)
		VALUES (:id, :applicant_id, :license_type, :status, :current_stage, :progress, :payment_status,
		 :submitted_at, :approved_at, :rejected_at, :rejection_reason, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID fetches an application.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	const query = `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// ProjectionParams carries the derived aggregate written after every instance
// mutation.
type ProjectionParams struct {
	ID              string
	Status          models.ApplicationStatus
	CurrentStage    *string
	Progress        int
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
}

// UpdateProjection stores the projected status, stage pointer and progress.
func (r *ApplicationRepository) UpdateProjection(ctx context.Context, params ProjectionParams) error {
	const query = `UPDATE applications SET
		status = :status, current_stage = :current_stage, progress = :progress,
		approved_at = COALESCE(:approved_at, approved_at),
		rejected_at = COALESCE(:rejected_at, rejected_at),
		rejection_reason = COALESCE(:rejection_reason, rejection_reason),
		updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               params.ID,
		"status":           params.Status,
		"current_stage":    params.CurrentStage,
		"progress":         params.Progress,
		"approved_at":      params.ApprovedAt,
		"rejected_at":      params.RejectedAt,
		"rejection_reason": params.RejectionReason,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update application projection: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check projection update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkPaid records a confirmed license-fee payment.
func (r *ApplicationRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	const query = `UPDATE applications SET payment_status = $1, paid_at = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, models.PaymentStatusPaid, paidAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark application paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check payment update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
