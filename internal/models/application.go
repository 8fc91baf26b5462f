package models

import "time"

// ApplicationStatus is the aggregate review state of a license application.
type ApplicationStatus string

const (
	ApplicationStatusSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusApproved    ApplicationStatus = "APPROVED"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
)

// PaymentStatus tracks whether the license fee has been settled.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// Application is the owning entity of a set of workflow instances. Status,
// current stage and progress are projections maintained from the instances.
type Application struct {
	ID              string            `db:"id" json:"id"`
	ApplicantID     string            `db:"applicant_id" json:"applicant_id"`
	LicenseType     string            `db:"license_type" json:"license_type"`
	Status          ApplicationStatus `db:"status" json:"status"`
	CurrentStage    *string           `db:"current_stage" json:"current_stage,omitempty"`
	Progress        int               `db:"progress" json:"progress"`
	PaymentStatus   PaymentStatus     `db:"payment_status" json:"payment_status"`
	SubmittedAt     *time.Time        `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time        `db:"approved_at" json:"approved_at,omitempty"`
	RejectedAt      *time.Time        `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	PaidAt          *time.Time        `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}
