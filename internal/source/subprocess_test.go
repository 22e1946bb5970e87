package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubprocessStartAndFetchEvents(t *testing.T) {
	p := NewSubprocess(SubprocessConfig{
		Executable: "sh",
		Args:       []string{"-c", `printf '{"op":"r"}\n{"op":"c"}\n'`},
	})

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	require.Eventually(t, func() bool {
		events, err := p.FetchEvents(ctx)
		require.NoError(t, err)
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubprocessStartTwiceErrors(t *testing.T) {
	p := NewSubprocess(SubprocessConfig{Executable: "sh", Args: []string{"-c", "sleep 1"}})
	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	err := p.Start(ctx)
	require.Error(t, err)
}

func TestSubprocessGetOffsetMissingFileReturnsEmpty(t *testing.T) {
	p := NewSubprocess(SubprocessConfig{OffsetFile: filepath.Join(t.TempDir(), "nope.dat")})
	offset, err := p.GetOffset(context.Background(), "inventory")
	require.NoError(t, err)
	require.Equal(t, "", offset)
}

func TestSubprocessSetAndGetOffsetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offsets.dat")
	p := NewSubprocess(SubprocessConfig{OffsetFile: path})

	ctx := context.Background()
	require.NoError(t, p.SetOffset(ctx, "inventory", "binlog-pos-42", ""))

	offset, err := p.GetOffset(ctx, "inventory")
	require.NoError(t, err)
	require.Equal(t, "binlog-pos-42", offset)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "binlog-pos-42", string(b))
}

func TestSubprocessSetOffsetNoFileConfiguredErrors(t *testing.T) {
	p := NewSubprocess(SubprocessConfig{})
	err := p.SetOffset(context.Background(), "inventory", "pos", "")
	require.Error(t, err)
}

func TestSubprocessStopKillsProcess(t *testing.T) {
	p := NewSubprocess(SubprocessConfig{
		Executable:  "sh",
		Args:        []string{"-c", "sleep 30"},
		StopTimeout: 200 * time.Millisecond,
	})
	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop(ctx))
}
