package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConnectRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	ctx := context.Background()

	client, err := ConnectRedis(ctx, "redis://"+mini.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis(ctx, "")
	require.Error(t, err)

	_, err = ConnectRedis(ctx, "mysql://"+mini.Addr())
	require.Error(t, err)
}

func TestConnectRedisHonoursContext(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ConnectRedis(ctx, "redis://"+mini.Addr())
	require.ErrorIs(t, err, context.Canceled)
}

func TestConnectRejectsEmptyURLs(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)

	_, err = ConnectNATS("", "test", zerolog.Nop())
	require.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	for _, table := range []string{"users", "profiles", "user_roles", "refresh_sessions", "complaints", "activity_logs", "attachments"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}
