package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

// AuditRepository provides persistence for audit log entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts one audit entry.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	const query = `
INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, log); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	const query = `SELECT id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at
FROM audit_logs ORDER BY created_at DESC LIMIT $1`
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("list recent audit logs: %w", err)
	}
	return logs, nil
}
