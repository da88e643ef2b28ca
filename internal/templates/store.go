package templates

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/sst/templateassist/internal/pubsub"
	"golang.org/x/sync/singleflight"
)

const (
	EventScopeLoaded pubsub.EventType = "scope_loaded"
	EventCacheReset  pubsub.EventType = "cache_reset"
)

// Loader supplies template definitions from persistent storage.
type Loader interface {
	LoadRawTemplates(ctx context.Context, scope, root string) ([]Template, error)
	// Reset drops anything the loader cached itself.
	Reset()
}

// ScopeEvent is published when a scope is loaded or the cache is reset.
type ScopeEvent struct {
	Scope string
	Count int
}

// Store caches templates per scope for the lifetime of the process. It is
// shared by every engine bound to the same template source.
type Store struct {
	loader Loader
	log    *slog.Logger
	broker *pubsub.Broker[ScopeEvent]

	mu        sync.RWMutex
	templates map[string][]Template
	// gen counts resets; a load only caches if no reset happened meanwhile.
	gen uint64

	dedupe bool
	group  singleflight.Group
}

var _ pubsub.Subscriber[ScopeEvent] = (*Store)(nil)

type StoreOption func(*Store)

// WithDeduplication collapses concurrent loads of the same uncached scope
// into one loader call. Without it every caller fetches and the last write
// wins.
func WithDeduplication() StoreOption {
	return func(s *Store) {
		s.dedupe = true
	}
}

func WithStoreLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

func NewStore(loader Loader, opts ...StoreOption) *Store {
	s := &Store{
		loader:    loader,
		log:       slog.With("service", "templates"),
		broker:    pubsub.NewBroker[ScopeEvent](),
		templates: make(map[string][]Template),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureLoaded returns the cached templates for scope, loading them through
// the loader on first use. Failed or invalid loads are not cached, so a later
// call retries.
func (s *Store) EnsureLoaded(ctx context.Context, scope, root string) ([]Template, error) {
	if list, ok := s.Templates(scope); ok {
		return list, nil
	}
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()
	if !s.dedupe {
		return s.load(ctx, scope, root, gen)
	}
	key := fmt.Sprintf("%s\x00%s\x00%d", scope, root, gen)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.load(ctx, scope, root, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Template), nil
}

func (s *Store) load(ctx context.Context, scope, root string, gen uint64) ([]Template, error) {
	s.log.Debug("loading templates", "scope", scope, "root", root)
	list, err := s.loader.LoadRawTemplates(ctx, scope, root)
	if err != nil {
		return nil, fmt.Errorf("load templates for scope %q: %w", scope, err)
	}
	if err := Validate(list); err != nil {
		return nil, fmt.Errorf("load templates for scope %q: %w", scope, err)
	}

	s.mu.Lock()
	stale := s.gen != gen
	if !stale {
		s.templates[scope] = list
	}
	s.mu.Unlock()
	if stale {
		s.log.Debug("discarding templates loaded before reset", "scope", scope)
		return list, nil
	}

	s.log.Info("templates loaded", "scope", scope, "count", len(list))
	s.broker.Publish(EventScopeLoaded, ScopeEvent{Scope: scope, Count: len(list)})
	return list, nil
}

// Templates returns the cached templates for scope without loading. The
// returned slice is shared and must not be modified.
func (s *Store) Templates(scope string) ([]Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.templates[scope]
	return list, ok
}

// All returns a copy of the scope mapping.
func (s *Store) All() map[string][]Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.templates)
}

// Reset clears the cache and asks the loader to drop its own cache, forcing
// the next EnsureLoaded to reload from storage.
func (s *Store) Reset() {
	s.mu.Lock()
	s.templates = make(map[string][]Template)
	s.gen++
	s.mu.Unlock()

	s.loader.Reset()
	s.log.Info("template cache reset")
	s.broker.Publish(EventCacheReset, ScopeEvent{})
}

func (s *Store) Subscribe(ctx context.Context) <-chan pubsub.Event[ScopeEvent] {
	return s.broker.Subscribe(ctx)
}

// Shutdown closes event subscriptions.
func (s *Store) Shutdown() {
	s.broker.Shutdown()
}
