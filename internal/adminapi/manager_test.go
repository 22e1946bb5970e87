package adminapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
	"github.com/hornetlabs/synchdb/internal/status"
)

func testConfig(name string) model.ConnectorConfig {
	return model.ConnectorConfig{
		Name:                name,
		SourceFlavor:        model.MySQL,
		DestinationDatabase: "inv",
	}
}

func TestAddDeleteConnInfo(t *testing.T) {
	m := NewManager(status.New(), nil)

	require.Equal(t, StatusOK, m.AddConnInfo(testConfig("c1"), ""))
	require.Equal(t, StatusAlreadyExists, m.AddConnInfo(testConfig("c1"), ""))
	require.Equal(t, StatusOK, m.DeleteConnInfo("c1"))
	require.Equal(t, StatusNotFound, m.DeleteConnInfo("c1"))
}

func TestAddConnInfoRejectsInvalidConfig(t *testing.T) {
	m := NewManager(status.New(), nil)
	require.Equal(t, StatusError, m.AddConnInfo(model.ConnectorConfig{}, ""))
}

func TestExtraConnInfo(t *testing.T) {
	m := NewManager(status.New(), nil)
	require.Equal(t, StatusOK, m.AddConnInfo(testConfig("c1"), ""))

	require.Equal(t, StatusOK, m.AddExtraConnInfo("c1", "sslmode", "require"))
	require.Equal(t, StatusNotFound, m.AddExtraConnInfo("missing", "k", "v"))
	require.Equal(t, StatusOK, m.DeleteExtraConnInfo("c1", "sslmode"))
}

func TestObjMap(t *testing.T) {
	m := NewManager(status.New(), nil)
	require.Equal(t, StatusOK, m.AddConnInfo(testConfig("c1"), ""))

	require.Equal(t, StatusOK, m.AddObjMap("c1", rulestore.KindTable, "inv.orders", "orders_v2"))
	e := m.entries["c1"]
	require.Equal(t, "orders_v2", e.rules.ResolveName(rulestore.KindTable, "inv.orders"))

	require.Equal(t, StatusOK, m.DeleteObjMap("c1", rulestore.KindTable, "inv.orders"))
	require.Equal(t, "inv.orders", e.rules.ResolveName(rulestore.KindTable, "inv.orders"))

	require.Equal(t, StatusNotFound, m.AddObjMap("missing", rulestore.KindTable, "a", "b"))
}

// TestPauseResumeSetOffsetSequence walks the pause -> Paused ->
// set_offset -> OffsetUpdate -> Paused sequence (spec §8 worked
// example 6), driving the status surface directly the way a running
// supervisor's handleRequest loop would.
func TestPauseResumeSetOffsetSequence(t *testing.T) {
	st := status.New()
	m := NewManager(st, nil)
	require.Equal(t, StatusOK, m.AddConnInfo(testConfig("c1"), ""))

	require.NoError(t, st.Claim("c1", 1))
	st.SetState("c1", model.StateSyncing)

	require.Equal(t, StatusOK, m.Pause("c1"))
	requested, _ := st.DrainRequest("c1")
	require.Equal(t, model.RequestPause, requested)
	st.SetState("c1", model.StatePaused)

	require.Equal(t, StatusOK, m.SetOffset("c1", "file=bin.1,pos=42"))
	requested, data := st.DrainRequest("c1")
	require.Equal(t, model.RequestSetOffset, requested)
	require.Equal(t, "file=bin.1,pos=42", data)

	st.SetState("c1", model.StateOffsetUpdate)
	st.SetOffset("c1", data)
	st.SetState("c1", model.StatePaused)

	snap, _ := st.GetStatus("c1")
	require.Equal(t, model.StatePaused, snap.State)
	require.Equal(t, "file=bin.1,pos=42", snap.LastOffsetString)

	require.Equal(t, StatusOK, m.Resume("c1"))
	requested, _ = st.DrainRequest("c1")
	require.Equal(t, model.RequestResume, requested)
}

func TestSetOffsetRejectedWhenNotPaused(t *testing.T) {
	st := status.New()
	m := NewManager(st, nil)
	require.NoError(t, st.Claim("c1", 1))
	st.SetState("c1", model.StateSyncing)

	require.Equal(t, StatusInvalidState, m.SetOffset("c1", "x"))
}

func TestSetOffsetUnknownConnector(t *testing.T) {
	m := NewManager(status.New(), nil)
	require.Equal(t, StatusNotFound, m.SetOffset("nope", "x"))
}

func TestStartWithoutLauncherFails(t *testing.T) {
	m := NewManager(status.New(), nil)
	require.Equal(t, StatusOK, m.AddConnInfo(testConfig("c1"), ""))
	require.Equal(t, StatusError, m.Start(context.Background(), "c1"))
}

func TestStartUnknownConnector(t *testing.T) {
	m := NewManager(status.New(), nil)
	require.Equal(t, StatusNotFound, m.Start(context.Background(), "nope"))
}
