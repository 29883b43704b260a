package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/ids"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

func TestComplaintRepositoryScopingAndOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewComplaintRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UTC()
	first := newComplaint("a@campus.edu", "Computer Science", base)
	second := newComplaint("b@campus.edu", "Electronics", base.Add(time.Minute))
	third := newComplaint("a@campus.edu", "Computer Science", base.Add(2*time.Minute))
	for _, complaint := range []*models.Complaint{first, second, third} {
		require.NoError(t, repo.Create(ctx, complaint))
	}

	studentA, err := repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeOwn, Email: "a@campus.edu"}})
	require.NoError(t, err)
	require.Equal(t, []string{third.ID, first.ID}, complaintIDs(studentA))

	studentB, err := repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeOwn, Email: "b@campus.edu"}})
	require.NoError(t, err)
	require.Equal(t, []string{second.ID}, complaintIDs(studentB))

	hodCS, err := repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeBranch, Branch: "Computer Science"}})
	require.NoError(t, err)
	require.Equal(t, []string{third.ID, first.ID}, complaintIDs(hodCS))

	hodEE, err := repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeBranch, Branch: "Electronics"}})
	require.NoError(t, err)
	require.Equal(t, []string{second.ID}, complaintIDs(hodEE))

	all, err := repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeAll}})
	require.NoError(t, err)
	require.Equal(t, []string{third.ID, second.ID, first.ID}, complaintIDs(all))

	limited, err := repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeAll}, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, []string{third.ID}, complaintIDs(limited))

	none, err := repo.List(ctx, ComplaintFilter{})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestComplaintRepositoryFiltersNarrowScope(t *testing.T) {
	db := setupTestDB(t)
	repo := NewComplaintRepository(db)
	ctx := context.Background()

	hostel := newComplaint("a@campus.edu", "Civil", time.Now().UTC())
	library := newComplaint("b@campus.edu", "Electronics", time.Now().UTC())
	library.Category = models.CategoryLibrary
	require.NoError(t, repo.Create(ctx, hostel))
	require.NoError(t, repo.Create(ctx, library))

	found, err := repo.List(ctx, ComplaintFilter{
		Scope:    access.Scope{Kind: access.ScopeBranch, Branch: "Civil"},
		Category: models.CategoryLibrary,
	})
	require.NoError(t, err)
	require.Empty(t, found, "filters must not widen the scope")

	found, err = repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeAll}, Category: models.CategoryLibrary})
	require.NoError(t, err)
	require.Equal(t, []string{library.ID}, complaintIDs(found))

	found, err = repo.List(ctx, ComplaintFilter{Scope: access.Scope{Kind: access.ScopeAll}, Status: models.ComplaintStatusResolved})
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestComplaintRepositoryResolveIsConditional(t *testing.T) {
	db := setupTestDB(t)
	repo := NewComplaintRepository(db)
	ctx := context.Background()

	complaint := newComplaint("a@campus.edu", "Civil", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, complaint))

	resolvedAt := time.Now().UTC().Truncate(time.Second)
	resolved, err := repo.Resolve(ctx, complaint.ID, resolvedAt, "Dr. Rao")
	require.NoError(t, err)
	require.Equal(t, models.ComplaintStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.True(t, resolved.ResolvedAt.Equal(resolvedAt))
	require.Equal(t, "Dr. Rao", *resolved.ResolvedBy)

	again, err := repo.Resolve(ctx, complaint.ID, time.Now().UTC(), "Someone Else")
	require.ErrorIs(t, err, ErrComplaintResolved)
	require.Empty(t, again.ID)

	stored, err := repo.GetByID(ctx, complaint.ID)
	require.NoError(t, err)
	require.Equal(t, "Dr. Rao", *stored.ResolvedBy)

	_, err = repo.Resolve(ctx, ids.New(), time.Now(), "Nobody")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestComplaintRepositoryStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewComplaintRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newComplaint("a@campus.edu", "Civil", time.Now().UTC())))
	}
	escalated := newComplaint("b@campus.edu", "Electronics", time.Now().UTC())
	escalated.Status = models.ComplaintStatusEscalated
	require.NoError(t, repo.Create(ctx, escalated))

	done := newComplaint("b@campus.edu", "Electronics", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, done))
	_, err := repo.Resolve(ctx, done.ID, time.Now().UTC(), "Admin")
	require.NoError(t, err)

	stats, err := repo.Stats(ctx, access.Scope{Kind: access.ScopeAll})
	require.NoError(t, err)
	require.Equal(t, ComplaintStats{Total: 5, Pending: 3, Resolved: 1, Escalated: 1}, stats)

	stats, err = repo.Stats(ctx, access.Scope{Kind: access.ScopeBranch, Branch: "Electronics"})
	require.NoError(t, err)
	require.Equal(t, ComplaintStats{Total: 2, Resolved: 1, Escalated: 1}, stats)
}

func newComplaint(email, branch string, createdAt time.Time) *models.Complaint {
	return &models.Complaint{
		ID:          ids.NewAt(createdAt),
		AuthorEmail: email,
		AuthorName:  "Author",
		Category:    models.CategoryHostel,
		Description: "The hostel water supply has been broken for days.",
		Status:      models.ComplaintStatusPending,
		Branch:      branch,
		CreatedAt:   createdAt,
	}
}

func complaintIDs(complaints []models.Complaint) []string {
	result := make([]string, 0, len(complaints))
	for _, complaint := range complaints {
		result = append(result, complaint.ID)
	}
	return result
}
