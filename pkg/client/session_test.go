package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

func storedSnapshot(t *testing.T, store SnapshotStore) snapshot {
	t.Helper()
	raw, err := store.Load(SnapshotKey)
	require.NoError(t, err)
	var saved snapshot
	require.NoError(t, json.Unmarshal(raw, &saved))
	return saved
}

func TestSessionLoginPersistsAndRestores(t *testing.T) {
	server := newFakeServer(t)
	store := NewMemoryStore()
	ctx := context.Background()

	first := server.newClient(t, store)
	identity, err := first.Session().Login(ctx, "  ASHA@campus.edu ", "secret1")
	require.NoError(t, err)
	require.Equal(t, asha.ID, identity.UserID)
	require.Equal(t, "access-1", first.Session().AccessToken())
	require.Equal(t, "access-1", storedSnapshot(t, store).AccessToken)

	second := server.newClient(t, store)
	require.True(t, second.Session().Loading())
	require.Equal(t, access.Loading, second.Session().Guard())

	require.NoError(t, second.Session().Restore(ctx))
	require.False(t, second.Session().Loading())
	require.Equal(t, asha.Email, second.Session().Current().Email)
	require.Equal(t, access.Render, second.Session().GuardPath(access.PathLodgeComplaint))
	require.Equal(t, access.RedirectDefault, second.Session().GuardPath(access.PathAdminPanel))
}

func TestSessionRestoreRefreshesExpiredToken(t *testing.T) {
	server := newFakeServer(t)
	store := NewMemoryStore()
	raw, err := json.Marshal(snapshot{User: asha, AccessToken: "expired", RefreshToken: "refresh-1"})
	require.NoError(t, err)
	require.NoError(t, store.Save(SnapshotKey, raw))

	c := server.newClient(t, store)
	require.NoError(t, c.Session().Restore(context.Background()))

	require.Equal(t, "access-2", c.Session().AccessToken())
	require.Equal(t, "refresh-2", storedSnapshot(t, store).RefreshToken)
	require.Equal(t, 1, server.count("POST /api/v1/auth/refresh"))
}

func TestSessionRestoreClearsRejectedSnapshot(t *testing.T) {
	server := newFakeServer(t)
	store := NewMemoryStore()
	raw, err := json.Marshal(snapshot{User: asha, AccessToken: "forged", RefreshToken: "forged"})
	require.NoError(t, err)
	require.NoError(t, store.Save(SnapshotKey, raw))

	c := server.newClient(t, store)
	err = c.Session().Restore(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	require.False(t, c.Session().Loading())
	require.Nil(t, c.Session().Current())
	_, err = store.Load(SnapshotKey)
	require.ErrorIs(t, err, ErrSnapshotNotFound)
	require.Equal(t, access.RedirectSignIn, c.Session().Guard())
}

func TestSessionRestoreWithoutSnapshot(t *testing.T) {
	server := newFakeServer(t)
	c := server.newClient(t, nil)

	require.NoError(t, c.Session().Restore(context.Background()))
	require.False(t, c.Session().Loading())
	require.Nil(t, c.Session().Current())
	require.Zero(t, server.count("GET /api/v1/auth/me"))
}

func TestSessionRestoreKeepsSnapshotWhenOffline(t *testing.T) {
	server := newFakeServer(t)
	store := NewMemoryStore()
	raw, err := json.Marshal(snapshot{User: asha, AccessToken: "access-1", RefreshToken: "refresh-1"})
	require.NoError(t, err)
	require.NoError(t, store.Save(SnapshotKey, raw))

	c := server.newClient(t, store)
	server.srv.Close()

	err = c.Session().Restore(context.Background())
	require.ErrorIs(t, err, ErrConnectivity)
	require.False(t, c.Session().Loading())
	require.Nil(t, c.Session().Current())

	_, err = store.Load(SnapshotKey)
	require.NoError(t, err)
}

func TestSessionLoginFailures(t *testing.T) {
	server := newFakeServer(t)
	c := server.newClient(t, nil)
	ctx := context.Background()

	_, err := c.Session().Login(ctx, "asha@campus.edu", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, "Invalid email or password.", FailureMessage(err))

	_, err = c.Session().Login(ctx, "orphan@campus.edu", "secret1")
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.Equal(t, "User not found. Please contact the administrator.", FailureMessage(err))

	calls := server.count("POST /api/v1/auth/login")
	_, err = c.Session().Login(ctx, "not-an-email", "secret1")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "email")
	require.Equal(t, calls, server.count("POST /api/v1/auth/login"))

	server.srv.Close()
	_, err = c.Session().Login(ctx, "asha@campus.edu", "secret1")
	require.ErrorIs(t, err, ErrConnectivity)
	require.Equal(t, ConnectivityMessage, FailureMessage(err))
	require.Nil(t, c.Session().Current())
}

func TestSessionRegisterDoesNotSignIn(t *testing.T) {
	server := newFakeServer(t)
	c := server.newClient(t, nil)
	ctx := context.Background()

	user, err := c.Session().Register(ctx, dto.RegisterRequest{Email: "new@campus.edu", Password: "secret1", Name: " New ", Branch: "Civil"})
	require.NoError(t, err)
	require.Equal(t, "New", user.Name)
	require.Nil(t, c.Session().Current())

	_, err = c.Session().Register(ctx, dto.RegisterRequest{Email: "taken@campus.edu", Password: "secret1", Name: "Taken", Branch: "Civil"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = c.Session().Register(ctx, dto.RegisterRequest{Email: "short@campus.edu", Password: "123", Name: "Short", Branch: "Civil"})
	require.Equal(t, "password must be at least 6 characters", FailureMessage(err))

	_, err = c.Session().Register(ctx, dto.RegisterRequest{Email: "ravi@campus.edu", Password: "secret1", Name: "Ravi", Branch: "Astrology"})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "branch must be a listed department", validationErr.Fields["branch"])
	require.Equal(t, 2, server.count("POST /api/v1/auth/register"))
}

func TestSessionSubscribeDeliversLatestState(t *testing.T) {
	server := newFakeServer(t)
	c := server.newClient(t, nil)
	ctx := context.Background()

	events, release := c.Session().Subscribe()
	initial := <-events
	require.True(t, initial.Loading)
	require.Nil(t, initial.Identity)

	_, err := c.Session().Login(ctx, "asha@campus.edu", "secret1")
	require.NoError(t, err)
	signedIn := <-events
	require.False(t, signedIn.Loading)
	require.Equal(t, models.RoleStudent, signedIn.Identity.Role)

	// Two changes without a read collapse into the newest.
	require.NoError(t, c.Session().Logout(ctx))
	_, err = c.Session().Login(ctx, "asha@campus.edu", "secret1")
	require.NoError(t, err)

	latest := <-events
	require.NotNil(t, latest.Identity)
	require.Greater(t, latest.Sequence, signedIn.Sequence+1)
	require.Empty(t, events)

	release()
	_, open := <-events
	require.False(t, open)
	release()
}

func TestSessionLogoutRevokesAndClears(t *testing.T) {
	server := newFakeServer(t)
	store := NewMemoryStore()
	c := server.newClient(t, store)
	ctx := context.Background()

	_, err := c.Session().Login(ctx, "asha@campus.edu", "secret1")
	require.NoError(t, err)

	require.NoError(t, c.Session().Logout(ctx))
	require.Nil(t, c.Session().Current())
	require.Empty(t, c.Session().AccessToken())
	require.Equal(t, []string{"refresh-1"}, server.revokedTokens())
	_, err = store.Load(SnapshotKey)
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = c.Session().Login(ctx, "asha@campus.edu", "secret1")
	require.NoError(t, err)
	server.srv.Close()

	err = c.Session().Logout(ctx)
	require.ErrorIs(t, err, ErrConnectivity)
	require.Nil(t, c.Session().Current())
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "localhost:8080", Logger: zerolog.Nop()})
	require.Error(t, err)
}
