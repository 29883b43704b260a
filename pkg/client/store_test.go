package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(SnapshotKey)
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, store.Save(SnapshotKey, []byte(`{"access_token":"a"}`)))
	require.NoError(t, store.Save(SnapshotKey, []byte(`{"access_token":"b"}`)))

	data, err := store.Load(SnapshotKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"b"}`, string(data))

	require.NoError(t, store.Delete(SnapshotKey))
	require.NoError(t, store.Delete(SnapshotKey))
}

func TestFailureMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("login: %w", ErrInvalidCredentials), "Invalid email or password."},
		{ErrEmailTaken, "An account with this email already exists."},
		{&APIError{Status: 403, Message: "insufficient permissions"}, "You do not have permission to perform this action."},
		{&APIError{Status: 409, Message: "complaint already resolved"}, "complaint already resolved"},
		{&ValidationError{Fields: map[string]string{"b": "second", "a": "first"}}, "first; second"},
		{errors.New("boom"), ConnectivityMessage},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, FailureMessage(tc.err))
	}
}
