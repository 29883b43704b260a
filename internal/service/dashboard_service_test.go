package service

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestDashboardServiceAggregatesAndCaches(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	f := newComplaintFixture(t)
	dashboard := NewDashboardService(f.repo, redisClient, 0, testLogger())
	f.svc = NewComplaintService(f.repo, nil, testValidator(), testLogger(), dashboard)
	ctx := context.Background()

	first := f.submit(t, f.asha, "Academic")
	f.submit(t, f.ravi, "Hostel")
	f.submit(t, f.neha, "Canteen")

	resp, err := dashboard.Get(ctx, f.hodCS)
	require.NoError(t, err)
	require.Equal(t, "branch", resp.Scope)
	require.Equal(t, int64(2), resp.Total)
	require.Equal(t, int64(2), resp.Pending)
	require.Equal(t, 0, resp.ResolutionRate)
	require.Len(t, resp.Recent, 2)
	require.False(t, resp.CacheHit)

	cached, err := dashboard.Get(ctx, f.hodCS)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, resp.Total, cached.Total)

	_, err = f.svc.Resolve(ctx, f.hodCS, first.ID)
	require.NoError(t, err)

	fresh, err := dashboard.Get(ctx, f.hodCS)
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.Equal(t, int64(1), fresh.Resolved)
	require.Equal(t, 50, fresh.ResolutionRate)

	own, err := dashboard.Get(ctx, f.neha)
	require.NoError(t, err)
	require.Equal(t, "own", own.Scope)
	require.Equal(t, int64(1), own.Total)

	all, err := dashboard.Get(ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, int64(3), all.Total)
	require.Equal(t, 33, all.ResolutionRate)
}

func TestDashboardServiceCacheIsPerExactBranch(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	f := newComplaintFixture(t)
	dashboard := NewDashboardService(f.repo, redis.NewClient(&redis.Options{Addr: mini.Addr()}), 0, testLogger())
	ctx := context.Background()

	f.submit(t, f.asha, "Academic")

	cs, err := dashboard.Get(ctx, f.hodCS)
	require.NoError(t, err)
	require.Equal(t, int64(1), cs.Total)

	lookalike := f.hodCS
	lookalike.UserID = "hod-lookalike"
	lookalike.Branch = "computer_science"

	other, err := dashboard.Get(ctx, lookalike)
	require.NoError(t, err)
	require.False(t, other.CacheHit)
	require.Equal(t, int64(0), other.Total)
	require.Empty(t, other.Recent)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	f := newComplaintFixture(t)
	dashboard := NewDashboardService(f.repo, nil, 0, testLogger())
	f.submit(t, f.asha, "Academic")

	resp, err := dashboard.Get(context.Background(), f.asha)
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Total)
	require.False(t, resp.CacheHit)
}

func TestResolutionRate(t *testing.T) {
	require.Equal(t, 0, ResolutionRate(0, 0))
	require.Equal(t, 67, ResolutionRate(2, 3))
	require.Equal(t, 100, ResolutionRate(4, 4))
}
