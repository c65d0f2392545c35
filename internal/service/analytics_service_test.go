package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
)

type analyticsRepoStub struct {
	overview    dto.AnalyticsOverview
	batchSlots  []dto.BatchSlotCount
	utilization []dto.StaffUtilization
	batchIDs    []string
}

func (a *analyticsRepoStub) EntityCounts(_ context.Context) (*dto.AnalyticsOverview, error) {
	overview := a.overview
	return &overview, nil
}

func (a *analyticsRepoStub) BatchSlotCounts(_ context.Context) ([]dto.BatchSlotCount, error) {
	return a.batchSlots, nil
}

func (a *analyticsRepoStub) StaffUtilization(_ context.Context) ([]dto.StaffUtilization, error) {
	return a.utilization, nil
}

func (a *analyticsRepoStub) ListActiveBatchIDs(_ context.Context) ([]string, error) {
	return a.batchIDs, nil
}

type conflictDetectorStub struct {
	byBatch map[string][]models.Conflict
	calls   []string
}

func (d *conflictDetectorStub) Detect(_ context.Context, batchID string) ([]models.Conflict, error) {
	d.calls = append(d.calls, batchID)
	return d.byBatch[batchID], nil
}

type auditReaderStub struct {
	logs []models.AuditLog
}

func (a *auditReaderStub) Recent(_ context.Context, _ int) ([]models.AuditLog, error) {
	return a.logs, nil
}

func TestAnalyticsServiceDashboard(t *testing.T) {
	repo := &analyticsRepoStub{
		overview: dto.AnalyticsOverview{TotalBatches: 2, TotalSubjects: 8, TotalRooms: 3},
		batchSlots: []dto.BatchSlotCount{
			{BatchID: "batch-1", BatchName: "CSE Y1 S1", SlotCount: 12},
		},
		utilization: []dto.StaffUtilization{
			{StaffID: "staff-1", StaffName: "Jordan Lee", TotalClasses: 6, TotalHours: 6},
		},
		batchIDs: []string{"batch-1", "batch-2"},
	}
	detector := &conflictDetectorStub{byBatch: map[string][]models.Conflict{
		"batch-1": {
			{Type: models.ConflictTimeOverlap},
			{Type: models.ConflictStaff},
		},
	}}
	audits := &auditReaderStub{logs: []models.AuditLog{{Action: models.AuditActionGenerate}}}
	svc := NewAnalyticsService(repo, detector, audits, nil, 0, nil)

	resp, err := svc.Dashboard(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Overview.TotalBatches)
	assert.Equal(t, []string{"batch-1", "batch-2"}, detector.calls, "every active batch is swept")
	assert.Equal(t, 2, resp.Conflicts.TotalConflicts)
	assert.Equal(t, 1, resp.Conflicts.ConflictTypes[string(models.ConflictTimeOverlap)])
	require.Len(t, resp.BatchSlots, 1)
	assert.Equal(t, 12, resp.BatchSlots[0].SlotCount)
	require.Len(t, resp.StaffUtilization, 1)
	assert.InDelta(t, 6.0, resp.StaffUtilization[0].TotalHours, 0.001)
	require.Len(t, resp.RecentActivities, 1)
}

func TestAnalyticsServiceDashboardCached(t *testing.T) {
	cache := newViewCacheStub()
	repo := &analyticsRepoStub{batchIDs: []string{"batch-1"}}
	detector := &conflictDetectorStub{}
	svc := NewAnalyticsService(repo, detector, &auditReaderStub{}, cache, time.Minute, nil)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Contains(t, cache.sets, analyticsCacheKey)

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, detector.calls, 1, "second read skips the conflict sweep")
}
