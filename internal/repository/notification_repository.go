package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

// NotificationRepository provides persistence for operator notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.AdminNotification) error {
	const query = `
INSERT INTO admin_notifications (id, title, message, severity, read, created_at)
VALUES (:id, :title, :message, :severity, :read, :created_at)`
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns notifications newest first, optionally unread only.
func (r *NotificationRepository) List(ctx context.Context, unreadOnly bool, limit int) ([]models.AdminNotification, error) {
	query := "SELECT id, title, message, severity, read, created_at FROM admin_notifications"
	if unreadOnly {
		query += " WHERE read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT $1"
	var notifications []models.AdminNotification
	if err := r.db.SelectContext(ctx, &notifications, query, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags one notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE admin_notifications SET read = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("mark notification read: notification %s not found", id)
	}
	return nil
}
