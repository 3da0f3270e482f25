package node

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synctext/config"
	"synctext/datamodel/document"
	"synctext/datamodel/update"
	"synctext/net/fifo"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.NewEmptyConfig("")
	cfg.Paths.PipeDir = dir
	cfg.Paths.RegistryPath = filepath.Join(dir, "registry")
	cfg.Paths.DocumentDir = filepath.Join(dir, "docs")
	return cfg
}

func TestThresholdTriggersBroadcastAndMerge(t *testing.T) {
	cfg := newTestConfig(t)

	// A peer with its read end open, so non-blocking writes to it land.
	bobCh, err := fifo.Create(cfg.Paths.PipeDir, "bob")
	require.NoError(t, err)
	bobR, err := bobCh.OpenReader()
	require.NoError(t, err)
	defer bobR.Close()

	n, err := New(cfg, "alice")
	require.NoError(t, err)
	defer n.Close()
	require.NoError(t, n.Registry.Register("bob"))

	base := []string{"one", "two", "three", "four", "five"}
	require.NoError(t, n.Docs.Store("alice", document.New(base)))
	n.baseline = base

	edited := []string{"one!", "two!", "three!", "four!", "five!"}
	n.detectChanges(edited)

	// The pending buffer was flushed by the broadcast.
	assert.Zero(t, n.pending.Len())
	assert.Zero(t, n.received.Len())

	// Broadcast fired once per update: bob's channel holds 5 records.
	for i := 0; i < 5; i++ {
		rec := make([]byte, update.RecordSize)
		_, err := io.ReadFull(bobR, rec)
		require.NoError(t, err, "record %d", i)

		var u update.Update
		require.NoError(t, u.UnmarshalBinary(rec))
		assert.Equal(t, "alice", u.UserID)
		assert.Equal(t, int32(i), u.Line)
	}

	// The merge applied the full batch to the document.
	doc, err := n.Docs.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, edited, doc.Lines)
}

func TestBelowThresholdKeepsPending(t *testing.T) {
	cfg := newTestConfig(t)

	n, err := New(cfg, "alice")
	require.NoError(t, err)
	defer n.Close()

	base := []string{"hello"}
	require.NoError(t, n.Docs.Store("alice", document.New(base)))
	n.baseline = base

	n.detectChanges([]string{"hullo"})

	assert.Equal(t, 1, n.pending.Len())
	doc, err := n.Docs.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, doc.Lines, "document must not change below threshold")
}

func TestBroadcastSkipsAbsentPeer(t *testing.T) {
	cfg := newTestConfig(t)

	n, err := New(cfg, "alice")
	require.NoError(t, err)
	defer n.Close()

	// carol is registered but has no pipe reader; the write is dropped,
	// never blocked on.
	require.NoError(t, n.Registry.Register("carol"))

	u := update.NewReplace(0, 0, 1, "a", "b", "alice", time.Unix(100, 0))
	done := make(chan struct{})
	go func() {
		n.broadcast(&u)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on an absent peer")
	}
}
