package models

import "time"

// NotificationSeverity grades admin notifications.
type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "INFO"
	SeverityWarning NotificationSeverity = "WARNING"
	SeverityError   NotificationSeverity = "ERROR"
)

// AdminNotification is a best-effort operator message, e.g. a generation
// run that finished with unresolved conflicts.
type AdminNotification struct {
	ID        string               `db:"id" json:"id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Severity  NotificationSeverity `db:"severity" json:"severity"`
	Read      bool                 `db:"read" json:"read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
