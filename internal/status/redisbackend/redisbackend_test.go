package redisbackend

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/status"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skipping test - could not reach redis: %v", err)
	}
	return client
}

func TestPublishAndFetchRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	m := New(client)
	ctx := context.Background()

	snap := status.Snapshot{
		Name:         "orders",
		PID:          123,
		State:        model.StateSyncing,
		Stage:        model.StageChangeDataCapture,
		SnapshotMode: model.SnapshotInitial,
	}
	require.NoError(t, m.Publish(ctx, snap))
	defer client.Del(ctx, keyPrefix+snap.Name)

	got, err := m.Fetch(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, snap.Name, got.Name)
	require.Equal(t, snap.PID, got.PID)
	require.Equal(t, snap.State, got.State)
	require.Equal(t, snap.Stage, got.Stage)
	require.Equal(t, snap.SnapshotMode, got.SnapshotMode)
}

func TestFetchUnknownConnectorErrors(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	m := New(client)
	_, err := m.Fetch(context.Background(), "never-published")
	require.Error(t, err)
}
