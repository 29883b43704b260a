package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

func TestActivityLogRepositoryFiltersComplaintHistory(t *testing.T) {
	repo := NewActivityLogRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UTC()
	entries := []models.ActivityLog{
		{ActorID: "ravi", ActorRole: "student", Action: "complaint.submitted", EntityType: "complaint", EntityID: "c-1", CreatedAt: base},
		{ActorID: "rao", ActorRole: "hod", Action: "complaint.resolved", EntityType: "complaint", EntityID: "c-1", CreatedAt: base.Add(10 * time.Minute)},
		{ActorID: "asha", ActorRole: "student", Action: "complaint.submitted", EntityType: "complaint", EntityID: "c-2", CreatedAt: base.Add(20 * time.Minute)},
		{ActorID: "admin", ActorRole: "admin", Action: "user.role_changed", EntityType: "user", EntityID: "ravi", CreatedAt: base.Add(30 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	history, total, err := repo.List(ctx, ActivityLogFilter{EntityType: "complaint", EntityID: "c-1"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "complaint.resolved", history[0].Action)
	require.Equal(t, "complaint.submitted", history[1].Action)

	recent, total, err := repo.List(ctx, ActivityLogFilter{Since: base.Add(15 * time.Minute)})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "user", recent[0].EntityType)

	page, total, err := repo.List(ctx, ActivityLogFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Len(t, page, 1)
	require.Equal(t, "c-1", page[0].EntityID)
	require.Equal(t, "complaint.submitted", page[0].Action)

	byActor, _, err := repo.List(ctx, ActivityLogFilter{ActorID: "rao", Action: "complaint.resolved"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
}
