package synclog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesLogEntries(t *testing.T) {
	l := New("orders")
	l.DisableConsoleOutput()

	ch := l.Subscribe()
	l.Info("snapshot complete, %d rows", 42)

	select {
	case entry := <-ch:
		require.Equal(t, "INFO", entry.Level)
		require.Equal(t, "snapshot complete, 42 rows", entry.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log entry")
	}
}

func TestSubscribeDeliversToAllSubscribers(t *testing.T) {
	l := New("orders")
	l.DisableConsoleOutput()

	chA := l.Subscribe()
	chB := l.Subscribe()
	l.Warn("retrying")

	for _, ch := range []<-chan LogEntry{chA, chB} {
		select {
		case entry := <-ch:
			require.Equal(t, "WARN", entry.Level)
			require.Equal(t, "retrying", entry.Message)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for log entry")
		}
	}
}

func TestWithFieldsTagsEntries(t *testing.T) {
	l := New("orders")
	l.DisableConsoleOutput()
	ch := l.Subscribe()

	c := l.WithFields(map[string]string{"table": "orders"})
	c.Error("apply failed")

	select {
	case entry := <-ch:
		require.Equal(t, "ERROR", entry.Level)
		require.Equal(t, "apply failed", entry.Message)
		require.Equal(t, "orders", entry.Fields["table"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log entry")
	}
}

func TestSubscriberChannelDoesNotBlockWhenFull(t *testing.T) {
	l := New("orders")
	l.DisableConsoleOutput()
	l.Subscribe()

	require.NotPanics(t, func() {
		for i := 0; i < 200; i++ {
			l.Debug("tick %d", i)
		}
	})
}
