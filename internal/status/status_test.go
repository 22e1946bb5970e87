package status

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hornetlabs/synchdb/internal/model"
)

func TestGetStatusUnknownConnector(t *testing.T) {
	s := New()
	_, ok := s.GetStatus("nope")
	require.False(t, ok)
}

func TestClaimAndRelease(t *testing.T) {
	s := New()
	require.NoError(t, s.Claim("orders", 100))

	snap, ok := s.GetStatus("orders")
	require.True(t, ok)
	require.Equal(t, 100, snap.PID)

	s.Release("orders", 100)
	snap, ok = s.GetStatus("orders")
	require.True(t, ok)
	require.Equal(t, 0, snap.PID)
	require.Equal(t, model.StateStopped, snap.State)
}

func TestClaimRejectsDifferentLivePID(t *testing.T) {
	s := New()
	require.NoError(t, s.Claim("orders", 100))
	err := s.Claim("orders", 200)
	require.Error(t, err)
}

func TestClaimIsIdempotentForSamePID(t *testing.T) {
	s := New()
	require.NoError(t, s.Claim("orders", 100))
	require.NoError(t, s.Claim("orders", 100))
}

func TestReleaseNoopIfPIDMismatch(t *testing.T) {
	s := New()
	require.NoError(t, s.Claim("orders", 100))
	s.Release("orders", 999)

	snap, ok := s.GetStatus("orders")
	require.True(t, ok)
	require.Equal(t, 100, snap.PID)
	require.NotEqual(t, model.StateStopped, snap.State)
}

func TestReleaseUnknownConnectorIsNoop(t *testing.T) {
	s := New()
	require.NotPanics(t, func() { s.Release("nope", 1) })
}

func TestSetters(t *testing.T) {
	s := New()
	s.SetState("orders", model.StateSyncing)
	s.SetStage("orders", model.StageChangeDataCapture)
	s.SetError("orders", "boom")
	s.SetOffset("orders", "offset-123")
	s.SetSnapshotMode("orders", model.SnapshotInitial)

	snap, ok := s.GetStatus("orders")
	require.True(t, ok)
	require.Equal(t, model.StateSyncing, snap.State)
	require.Equal(t, model.StageChangeDataCapture, snap.Stage)
	require.Equal(t, "boom", snap.LastErrorMsg)
	require.Equal(t, "offset-123", snap.LastOffsetString)
	require.Equal(t, model.SnapshotInitial, snap.SnapshotMode)

	s.ClearError("orders")
	snap, _ = s.GetStatus("orders")
	require.Equal(t, "", snap.LastErrorMsg)
}

func TestMutateStats(t *testing.T) {
	s := New()
	s.MutateStats("orders", func(st *Stats) { st.DMLOps++ })
	s.MutateStats("orders", func(st *Stats) { st.DMLOps++; st.BadEvents++ })

	snap, ok := s.GetStatus("orders")
	require.True(t, ok)
	require.Equal(t, int64(2), snap.Stats.DMLOps)
	require.Equal(t, int64(1), snap.Stats.BadEvents)
}

func TestPostRequestRejectsWhenOccupied(t *testing.T) {
	s := New()
	require.True(t, s.PostRequest("orders", model.RequestPause, ""))
	require.False(t, s.PostRequest("orders", model.RequestStop, ""))
}

func TestDrainRequestClearsSlot(t *testing.T) {
	s := New()
	require.True(t, s.PostRequest("orders", model.RequestSetOffset, "offset-42"))

	requested, data := s.DrainRequest("orders")
	require.Equal(t, model.RequestSetOffset, requested)
	require.Equal(t, "offset-42", data)

	requested, data = s.DrainRequest("orders")
	require.Equal(t, model.RequestNone, requested)
	require.Equal(t, "", data)

	require.True(t, s.PostRequest("orders", model.RequestResume, ""))
}

func TestDrainRequestUnknownConnectorReturnsNone(t *testing.T) {
	s := New()
	requested, data := s.DrainRequest("nope")
	require.Equal(t, model.RequestNone, requested)
	require.Equal(t, "", data)
}
