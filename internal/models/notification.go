package models

import "time"

// NotificationType labels the event a notification describes.
type NotificationType string

const (
	NotificationTypeSubmitted        NotificationType = "APPLICATION_SUBMITTED"
	NotificationTypeApproved         NotificationType = "APPLICATION_APPROVED"
	NotificationTypeRejected         NotificationType = "APPLICATION_REJECTED"
	NotificationTypeReturned         NotificationType = "APPLICATION_RETURNED"
	NotificationTypePaymentConfirmed NotificationType = "PAYMENT_CONFIRMED"
)

// Notification is a fire-and-forget message delivered to a portal user.
type Notification struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"user_id"`
	Title         string           `db:"title" json:"title"`
	Message       string           `db:"message" json:"message"`
	Type          NotificationType `db:"type" json:"type"`
	ApplicationID *string          `db:"application_id" json:"application_id,omitempty"`
	Read          bool             `db:"read" json:"read"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}
