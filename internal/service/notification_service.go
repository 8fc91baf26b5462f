package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
	"github.com/broadcast-labs/license-portal-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService delivers portal notifications. Sends are fire and
// forget: callers enqueue and move on, a worker pool persists the rows.
type NotificationService struct {
	repo   notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(repo notificationStore, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handleJob, cfg)
	return svc
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a notification without awaiting delivery.
func (s *NotificationService) Notify(userID, title, message string, notificationType models.NotificationType, applicationID string) {
	notification := models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notificationType,
	}
	if applicationID != "" {
		notification.ApplicationID = &applicationID
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      notification.ID,
		Type:    string(notificationType),
		Payload: notification,
	}); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("user_id", userID),
			zap.String("type", string(notificationType)),
			zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &notification)
}

// ListForUser returns the caller's notifications.
func (s *NotificationService) ListForUser(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.Notification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	notifications, err := s.repo.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags one of the caller's notifications as seen.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
