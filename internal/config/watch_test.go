package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferLog struct {
	mu   sync.Mutex
	seen []int
}

func (b *bufferLog) add(c *Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, c.Availability.DefaultBufferMinutes)
}

func (b *bufferLog) values() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.seen...)
}

func writeConfig(t *testing.T, path, availability string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("availability:\n"+availability), 0o600))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "  default_buffer_minutes: 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got bufferLog
	w := &Watcher{Path: path, Interval: 10 * time.Millisecond, OnChange: got.add}
	require.NoError(t, w.Start(ctx))
	assert.Equal(t, []int{5}, got.values())

	writeConfig(t, path, "  default_buffer_minutes: 15\n")
	assert.Eventually(t, func() bool {
		v := got.values()
		return len(v) == 2 && v[1] == 15
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_KeepsLastGoodConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "  default_buffer_minutes: 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got bufferLog
	w := &Watcher{Path: path, Interval: time.Hour, OnChange: got.add}
	require.NoError(t, w.Start(ctx))

	writeConfig(t, path, "  default_buffer_minutes: -1\n")
	w.reload()
	assert.Equal(t, []int{5}, got.values())

	// unchanged content is not reported again
	writeConfig(t, path, "  default_buffer_minutes: 5\n")
	w.reload()
	w.reload()
	assert.Equal(t, []int{5, 5}, got.values())
}

func TestWatcher_InitialLoadError(t *testing.T) {
	w := &Watcher{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	assert.Error(t, w.Start(context.Background()))
}
