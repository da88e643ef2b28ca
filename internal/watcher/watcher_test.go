package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dirs []string, pattern string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	w, err := New(dirs, pattern, func() { calls.Add(1) }, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(t.Context()))
	}()
	t.Cleanup(func() { <-done })
	return &calls
}

func TestWatcherResetsOnMatchingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	calls := startWatcher(t, []string{dir}, "**/*.scripted-completions")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "js.scripted-completions"), []byte("{}"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	calls := startWatcher(t, []string{dir}, "**/*.scripted-completions")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	calls := startWatcher(t, []string{dir}, "**/*.scripted-completions")

	sub := filepath.Join(dir, "web")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "css.scripted-completions"), []byte("{}"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherSkipsMissingDirs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "missing"), dir}, "*", func() {})
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, w.Roots())
	w.close()
}
