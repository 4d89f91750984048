package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, opts Options) <-chan Event {
	t.Helper()
	w, err := New(opts)
	require.NoError(t, err)

	events := make(chan Event, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, ev Event) error {
			events <- ev
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return events
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
		return Event{}
	}
}

func TestWatcher_CoalescesContentChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "posts"), 0o750))
	events := startWatcher(t, Options{ContentDir: dir, Debounce: 200 * time.Millisecond})

	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "posts", "b.md")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o600))

	ev := next(t, events)
	assert.False(t, ev.ConfigChanged)
	assert.Contains(t, ev.Paths, a)
	assert.Contains(t, ev.Paths, b)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, Options{ContentDir: dir, Debounce: 100 * time.Millisecond})

	sub := filepath.Join(dir, "new")
	require.NoError(t, os.Mkdir(sub, 0o750))
	next(t, events)

	f := filepath.Join(sub, "c.md")
	require.NoError(t, os.WriteFile(f, []byte("c"), 0o600))
	assert.Contains(t, next(t, events).Paths, f)
}

func TestWatcher_ConfigChange(t *testing.T) {
	contentDir := t.TempDir()
	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "sitelinks.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("site: {}\n"), 0o600))
	events := startWatcher(t, Options{ContentDir: contentDir, ConfigPath: cfgPath, Debounce: 100 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "unrelated.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(cfgPath, []byte("site: {title: x}\n"), 0o600))

	ev := next(t, events)
	assert.True(t, ev.ConfigChanged)
	assert.Equal(t, []string{cfgPath}, ev.Paths)
}

func TestWatcher_IgnoresOutputAndHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(out, 0o750))
	w, err := New(Options{ContentDir: dir, Ignore: []string{out}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	assert.True(t, w.ignored(out))
	assert.True(t, w.ignored(filepath.Join(out, "index.html")))
	assert.False(t, w.ignored(filepath.Join(dir, "publications.md")))
	assert.NotContains(t, w.watcher.WatchList(), out)
}
