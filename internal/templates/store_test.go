package templates

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	mu        sync.Mutex
	templates map[string][]Template
	err       error
	calls     atomic.Int32
	resets    atomic.Int32
	release   chan struct{}
}

func (f *fakeLoader) LoadRawTemplates(ctx context.Context, scope, root string) ([]Template, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.templates[scope], nil
}

func (f *fakeLoader) Reset() {
	f.resets.Add(1)
}

func jsTemplates() map[string][]Template {
	return map[string][]Template{
		"js": {
			{Trigger: "for", Proposal: "for (;;) {}", Description: "for loop"},
			{Trigger: "if", Proposal: "if () {}", Description: "if statement", IsTemplate: true},
		},
	}
}

func TestStoreEnsureLoadedCachesPerScope(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{templates: jsTemplates()}
	store := NewStore(loader)

	first, err := store.EnsureLoaded(t.Context(), "js", "/project")
	require.NoError(t, err)
	second, err := store.EnsureLoaded(t.Context(), "js", "/other")
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, loader.calls.Load())

	cached, ok := store.Templates("js")
	assert.True(t, ok)
	assert.Len(t, cached, 2)
	_, ok = store.Templates("css")
	assert.False(t, ok)
}

func TestStoreReset(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{templates: jsTemplates()}
	store := NewStore(loader)

	_, err := store.EnsureLoaded(t.Context(), "js", "")
	require.NoError(t, err)
	require.Len(t, store.All(), 1)

	store.Reset()
	assert.Empty(t, store.All())
	assert.EqualValues(t, 1, loader.resets.Load())

	_, err = store.EnsureLoaded(t.Context(), "js", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, loader.calls.Load())
}

func TestStoreResetDuringLoadDiscardsStaleResult(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{templates: jsTemplates(), release: make(chan struct{})}
	store := NewStore(loader)

	done := make(chan error, 1)
	go func() {
		list, err := store.EnsureLoaded(context.Background(), "js", "")
		assert.Len(t, list, 2)
		done <- err
	}()
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	store.Reset()
	close(loader.release)
	require.NoError(t, <-done)

	_, ok := store.Templates("js")
	assert.False(t, ok)

	_, err := store.EnsureLoaded(t.Context(), "js", "")
	require.NoError(t, err)
	_, ok = store.Templates("js")
	assert.True(t, ok)
	assert.EqualValues(t, 2, loader.calls.Load())
}

func TestStoreResetStartsNewDeduplicatedLoad(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{templates: jsTemplates(), release: make(chan struct{})}
	store := NewStore(loader, WithDeduplication())

	var wg sync.WaitGroup
	load := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.EnsureLoaded(context.Background(), "js", "")
			assert.NoError(t, err)
		}()
	}
	load()
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)
	store.Reset()
	load()
	require.Eventually(t, func() bool { return loader.calls.Load() == 2 }, time.Second, time.Millisecond)
	close(loader.release)
	wg.Wait()

	list, ok := store.Templates("js")
	assert.True(t, ok)
	assert.Len(t, list, 2)
}

func TestStoreLoadFailureIsNotCached(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk on fire")
	loader := &fakeLoader{templates: jsTemplates(), err: boom}
	store := NewStore(loader)

	_, err := store.EnsureLoaded(t.Context(), "js", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	_, ok := store.Templates("js")
	assert.False(t, ok)

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()

	list, err := store.EnsureLoaded(t.Context(), "js", "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.EqualValues(t, 2, loader.calls.Load())
}

func TestStoreRejectsMalformedTemplates(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{templates: map[string][]Template{
		"js": {{Trigger: "for", Proposal: "for (;;) {}"}, {Trigger: "empty"}},
	}}
	store := NewStore(loader)

	_, err := store.EnsureLoaded(t.Context(), "js", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTemplate)
	assert.Contains(t, err.Error(), `"empty"`)
	assert.Empty(t, store.All())
}

func TestStoreConcurrentLoadsWithoutDeduplication(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{templates: jsTemplates(), release: make(chan struct{})}
	store := NewStore(loader)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.EnsureLoaded(context.Background(), "js", "")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return loader.calls.Load() == 2 }, time.Second, time.Millisecond)
	close(loader.release)
	wg.Wait()

	list, ok := store.Templates("js")
	assert.True(t, ok)
	assert.Len(t, list, 2)
}

func TestStoreConcurrentLoadsWithDeduplication(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{templates: jsTemplates(), release: make(chan struct{})}
	store := NewStore(loader, WithDeduplication())

	var wg sync.WaitGroup
	start := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := store.EnsureLoaded(context.Background(), "js", "")
			assert.NoError(t, err)
			assert.Len(t, list, 2)
		}()
	}
	start()
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)
	start()
	time.Sleep(10 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	assert.EqualValues(t, 1, loader.calls.Load())
}

func TestStoreEvents(t *testing.T) {
	t.Parallel()
	store := NewStore(&fakeLoader{templates: jsTemplates()})
	defer store.Shutdown()
	events := store.Subscribe(t.Context())

	_, err := store.EnsureLoaded(t.Context(), "js", "")
	require.NoError(t, err)
	store.Reset()

	select {
	case ev := <-events:
		assert.Equal(t, EventScopeLoaded, ev.Type)
		assert.Equal(t, ScopeEvent{Scope: "js", Count: 2}, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for load event")
	}
	select {
	case ev := <-events:
		assert.Equal(t, EventCacheReset, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for reset event")
	}
}
