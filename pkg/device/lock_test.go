package device

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	l := NewLock(t.TempDir(), "mic")
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, 0))
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, l.Owner(), markerOwner(data))

	require.NoError(t, l.Release())
	_, err = os.Stat(l.Path())
	assert.True(t, os.IsNotExist(err), "marker should be removed")
}

func TestLockBusyWhileFresh(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	first := NewLock(dir, "mic")
	second := NewLock(dir, "mic", WithPollInterval(5*time.Millisecond))

	require.NoError(t, first.Acquire(ctx, 0))
	defer first.Release()

	start := time.Now()
	err := second.Acquire(ctx, 40*time.Millisecond)
	assert.ErrorIs(t, err, ErrBusy)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLockWaitsForRelease(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	first := NewLock(dir, "mic")
	second := NewLock(dir, "mic", WithPollInterval(5*time.Millisecond))

	require.NoError(t, first.Acquire(ctx, 0))
	go func() {
		time.Sleep(30 * time.Millisecond)
		first.Release()
	}()

	require.NoError(t, second.Acquire(ctx, time.Second))
	assert.NoError(t, second.Release())
}

func TestLockEvictsStaleMarker(t *testing.T) {
	dir := t.TempDir()
	l := NewLock(dir, "mic")

	old := time.Now().Add(-31 * time.Second).UTC().Format(time.RFC3339Nano)
	require.NoError(t, os.WriteFile(l.Path(), []byte(fmt.Sprintf("someone-else\n%s\n", old)), 0o644))

	require.NoError(t, l.Acquire(context.Background(), 0))
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, l.Owner(), markerOwner(data))
}

func TestLockKeepsFreshForeignMarker(t *testing.T) {
	dir := t.TempDir()
	l := NewLock(dir, "mic")

	now := time.Now().UTC().Format(time.RFC3339Nano)
	require.NoError(t, os.WriteFile(l.Path(), []byte("someone-else\n"+now+"\n"), 0o644))

	assert.ErrorIs(t, l.Acquire(context.Background(), 0), ErrBusy)
	require.NoError(t, l.Close())

	_, err := os.Stat(l.Path())
	assert.NoError(t, err, "foreign marker must survive Close")
}

func TestLockHonoursContext(t *testing.T) {
	dir := t.TempDir()
	holder := NewLock(dir, "mic")
	require.NoError(t, holder.Acquire(context.Background(), 0))
	defer holder.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewLock(dir, "mic").Acquire(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
