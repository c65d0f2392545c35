package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type notificationRepoStub struct {
	mu       sync.Mutex
	stored   []models.AdminNotification
	marked   []string
	listing  []models.AdminNotification
	gotLimit int
}

func (n *notificationRepoStub) Create(_ context.Context, notification *models.AdminNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stored = append(n.stored, *notification)
	return nil
}

func (n *notificationRepoStub) List(_ context.Context, _ bool, limit int) ([]models.AdminNotification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gotLimit = limit
	return n.listing, nil
}

func (n *notificationRepoStub) MarkRead(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.marked = append(n.marked, id)
	return nil
}

func (n *notificationRepoStub) snapshot() []models.AdminNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.AdminNotification, len(n.stored))
	copy(out, n.stored)
	return out
}

func TestNotificationServiceGenerationCompleted(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, NotificationConfig{Workers: 1}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.GenerationCompleted("batch-1", "CSE Y1 S1", 24, 0)

	require.Eventually(t, func() bool {
		return len(repo.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	stored := repo.snapshot()[0]
	assert.Equal(t, models.SeverityInfo, stored.Severity)
	assert.Contains(t, stored.Message, "24 slots")
}

func TestNotificationServiceGenerationWithConflictsWarns(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, NotificationConfig{Workers: 1}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.GenerationCompleted("batch-1", "CSE Y1 S1", 20, 3)

	require.Eventually(t, func() bool {
		return len(repo.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	stored := repo.snapshot()[0]
	assert.Equal(t, models.SeverityWarning, stored.Severity)
	assert.Contains(t, stored.Message, "3 unresolved conflicts")
}

func TestNotificationServicePushBeforeStartDoesNotPanic(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, NotificationConfig{}, nil)

	assert.NotPanics(t, func() {
		svc.GenerationCompleted("batch-1", "CSE Y1 S1", 10, 0)
	})
	assert.Empty(t, repo.snapshot())
}

func TestNotificationServiceListClampsLimit(t *testing.T) {
	repo := &notificationRepoStub{listing: []models.AdminNotification{{ID: "n-1"}}}
	svc := NewNotificationService(repo, NotificationConfig{}, nil)

	items, err := svc.List(context.Background(), false, 1000)

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 50, repo.gotLimit)
}

func TestNotificationServiceMarkReadRequiresID(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, NotificationConfig{}, nil)

	err := svc.MarkRead(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.marked)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, NotificationConfig{}, nil)

	err := svc.MarkRead(context.Background(), "n-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"n-1"}, repo.marked)
}
