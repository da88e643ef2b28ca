// Package assist computes template completion proposals for an editor
// binding.
package assist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/sst/templateassist/internal/matcher"
	"github.com/sst/templateassist/internal/resolver"
	"github.com/sst/templateassist/internal/templates"
	"github.com/sst/templateassist/internal/textscan"
)

// Context describes what the user typed or selected at the invocation point.
type Context struct {
	Prefix    string
	Selection *Selection
}

// Selection is a selected buffer range. Start may exceed End for backward
// selections.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the selection covers no text.
func (s Selection) Empty() bool {
	return s.Start == s.End
}

// Engine is the content assist state of a single editor binding.
type Engine struct {
	store     *templates.Store
	resolvers resolver.Factory
	matcher   matcher.Matcher
	id        string
	log       *slog.Logger

	mu       sync.RWMutex
	scope    string
	replacer resolver.Resolver
}

type Option func(*Engine)

// WithResolverFactory sets how editors are bound to parameter resolvers.
// The default is resolver.ForEditor.
func WithResolverFactory(f resolver.Factory) Option {
	return func(e *Engine) {
		e.resolvers = f
	}
}

func WithMatcher(m matcher.Matcher) Option {
	return func(e *Engine) {
		e.matcher = m
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

func New(store *templates.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		resolvers: resolver.ForEditor,
		matcher:   matcher.Loose,
		id:        uuid.NewString(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("service", "assist", "binding", e.id)
	return e
}

// ID identifies the binding in logs.
func (e *Engine) ID() string {
	return e.id
}

// Scope returns the scope bound by the last Install.
func (e *Engine) Scope() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scope
}

// Install binds the engine to an editor and scope and makes sure the scope's
// templates are loaded. A nil editor binds resolver.Identity. A load error is
// returned to the caller; the engine stays usable and proposes nothing for
// the scope until a later Install succeeds.
func (e *Engine) Install(ctx context.Context, editor resolver.Editor, scope, root string) ([]templates.Template, error) {
	replacer := resolver.Identity
	if editor != nil {
		replacer = e.resolvers(editor)
	}

	e.mu.Lock()
	e.replacer = replacer
	e.scope = scope
	e.mu.Unlock()

	list, err := e.store.EnsureLoaded(ctx, scope, root)
	if err != nil {
		e.log.Warn("template load failed", "scope", scope, "error", err)
		return nil, err
	}
	e.log.Debug("installed", "scope", scope, "templates", len(list))
	return list, nil
}

// ComputeProposals returns a deferred builder for every template that
// applies at invocationOffset. It never loads templates and never fails: an
// uninstalled engine, an unloaded scope or a preceding '.' give an empty
// result.
func (e *Engine) ComputeProposals(buffer string, invocationOffset int, c Context) []Builder {
	e.mu.RLock()
	scope, replacer := e.scope, e.replacer
	e.mu.RUnlock()
	if replacer == nil {
		return nil
	}

	templatesOnly := c.Selection != nil && !c.Selection.Empty()
	if c.Selection != nil {
		invocationOffset = min(c.Selection.Start, c.Selection.End)
	}

	list, ok := e.store.Templates(scope)
	if !ok {
		return nil
	}

	if textscan.PreviousNonWhitespace(buffer, invocationOffset) == '.' {
		return nil
	}

	replaceStart := invocationOffset
	if !templatesOnly {
		replaceStart -= len(c.Prefix)
	}
	implicitPrefix, _ := textscan.RuneBefore(buffer, replaceStart)

	var builders []Builder
	for _, tmpl := range list {
		if templatesOnly {
			if !tmpl.IsTemplate {
				continue
			}
		} else if !e.matcher.LooselyMatches(c.Prefix, tmpl.Trigger) {
			continue
		}
		builders = append(builders, Builder{
			Description: tmpl.Description,
			Trigger:     tmpl.Trigger,
			input: Input{
				Template:       tmpl,
				ReplaceStart:   replaceStart,
				ImplicitPrefix: implicitPrefix,
				Resolver:       replacer,
			},
		})
	}
	return builders
}
