package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

func TestAdminUserServiceListAndCounts(t *testing.T) {
	db := setupServiceDB(t)
	accounts := repository.NewAccountRepository(db)
	admin := seedIdentity(t, accounts, "admin@campus.edu", "Admin", "Other", models.RoleAdmin)
	seedIdentity(t, accounts, "asha@campus.edu", "Asha", "Computer Science", models.RoleStudent)
	seedIdentity(t, accounts, "ravi@campus.edu", "Ravi", "Civil", models.RoleStudent)
	hod := seedIdentity(t, accounts, "hod@campus.edu", "Dr. Rao", "Civil", models.RoleHOD)

	svc := NewAdminUserService(accounts, nil, testValidator(), testLogger())
	ctx := context.Background()

	resp, err := svc.List(ctx, admin, dto.AdminUserListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 4)
	require.Equal(t, 1, resp.Pagination.Page)
	require.Equal(t, defaultAdminPageSize, resp.Pagination.PageSize)
	require.Equal(t, int64(2), resp.RoleCounts["student"])
	require.Equal(t, int64(0), resp.RoleCounts["principal"])

	filtered, err := svc.List(ctx, admin, dto.AdminUserListRequest{Role: " HOD ", PageSize: 500})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, maxAdminPageSize, filtered.Pagination.PageSize)

	_, err = svc.List(ctx, admin, dto.AdminUserListRequest{Role: "dean"})
	require.Error(t, err)

	_, err = svc.List(ctx, hod, dto.AdminUserListRequest{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAdminUserServiceUpdateRoleAndDelete(t *testing.T) {
	db := setupServiceDB(t)
	accounts := repository.NewAccountRepository(db)
	admin := seedIdentity(t, accounts, "admin@campus.edu", "Admin", "Other", models.RoleAdmin)
	student := seedIdentity(t, accounts, "asha@campus.edu", "Asha", "Computer Science", models.RoleStudent)

	activity := &memoryActivityRepo{}
	notifier := &recordingAccountNotifier{}
	svc := NewAdminUserService(accounts, NewActivityService(activity, testLogger()), testValidator(), testLogger(), notifier)
	ctx := context.Background()

	updated, err := svc.UpdateRole(ctx, admin, student.UserID, dto.AdminUserRoleUpdateRequest{Role: "hod"})
	require.NoError(t, err)
	require.Equal(t, models.RoleHOD, updated.Role)
	require.Equal(t, student.Email, updated.Email)

	identity, err := accounts.GetIdentity(ctx, student.UserID)
	require.NoError(t, err)
	require.Equal(t, models.RoleHOD, identity.Role)

	_, err = svc.UpdateRole(ctx, admin, admin.UserID, dto.AdminUserRoleUpdateRequest{Role: "student"})
	require.ErrorIs(t, err, ErrCannotModifySelf)

	_, err = svc.UpdateRole(ctx, admin, "missing", dto.AdminUserRoleUpdateRequest{Role: "student"})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.UpdateRole(ctx, admin, student.UserID, dto.AdminUserRoleUpdateRequest{Role: "dean"})
	require.Error(t, err)

	_, err = svc.UpdateRole(ctx, identity, admin.UserID, dto.AdminUserRoleUpdateRequest{Role: "student"})
	require.ErrorIs(t, err, ErrForbidden)

	require.ErrorIs(t, svc.Delete(ctx, admin, admin.UserID), ErrCannotModifySelf)
	require.NoError(t, svc.Delete(ctx, admin, student.UserID))
	require.ErrorIs(t, svc.Delete(ctx, admin, student.UserID), ErrUserNotFound)

	require.Equal(t, []string{student.UserID, student.UserID}, notifier.userIDs)
	require.Len(t, activity.entries, 2)
	require.Equal(t, "user.role_changed", activity.entries[0].Action)
	require.Equal(t, "user.deleted", activity.entries[1].Action)
}
