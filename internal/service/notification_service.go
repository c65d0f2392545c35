package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.AdminNotification) error
	List(ctx context.Context, unreadOnly bool, limit int) ([]models.AdminNotification, error)
	MarkRead(ctx context.Context, id string) error
}

// NotificationService persists operator notifications through a background
// queue so scheduling runs never block on the write.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NotificationConfig tunes the delivery queue.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NewNotificationService constructs the service and its delivery queue. Call
// Start before enqueuing and Stop on shutdown.
func NewNotificationService(repo notificationRepository, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("admin-notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// GenerationCompleted notifies operators about a finished generation run.
// Runs with conflicts are flagged as warnings.
func (s *NotificationService) GenerationCompleted(batchID, batchName string, totalSlots, conflictCount int) {
	severity := models.SeverityInfo
	message := fmt.Sprintf("timetable for %s generated with %d slots", batchName, totalSlots)
	if conflictCount > 0 {
		severity = models.SeverityWarning
		message = fmt.Sprintf("timetable for %s generated with %d slots and %d unresolved conflicts", batchName, totalSlots, conflictCount)
	}
	s.push(models.AdminNotification{
		ID:       uuid.NewString(),
		Title:    "Timetable generation finished",
		Message:  message,
		Severity: severity,
	})
}

func (s *NotificationService) push(notification models.AdminNotification) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      notification.ID,
		Type:    "admin-notification",
		Payload: notification,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("id", notification.ID), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.AdminNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &notification)
}

// List returns recent notifications, newest first.
func (s *NotificationService) List(ctx context.Context, unreadOnly bool, limit int) ([]models.AdminNotification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.repo.List(ctx, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "notification id is required")
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
