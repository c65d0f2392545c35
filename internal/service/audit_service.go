package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
)

type auditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// AuditService is the fire-and-forget audit sink used across the engine and
// admin surface. Write failures are logged and swallowed; an audit outage
// must never fail the operation being audited.
type AuditService struct {
	repo   auditLogRepository
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditLogRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record persists one audit entry, best effort.
func (s *AuditService) Record(ctx context.Context, action, table, recordID, details string) {
	payload, err := json.Marshal(map[string]string{"details": details})
	if err != nil {
		payload = nil
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  table,
		NewValues: payload,
	}
	if recordID != "" {
		entry.ResourceID = &recordID
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", action),
			zap.String("resource", table),
			zap.Error(err))
	}
}

// Recent returns the newest audit entries.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListRecent(ctx, limit)
}
