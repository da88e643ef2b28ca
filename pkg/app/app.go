package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"github.com/sst/templateassist/internal/assist"
	"github.com/sst/templateassist/internal/config"
	"github.com/sst/templateassist/internal/loader"
	"github.com/sst/templateassist/internal/logging"
	"github.com/sst/templateassist/internal/matcher"
	"github.com/sst/templateassist/internal/resolver"
	"github.com/sst/templateassist/internal/templates"
	"github.com/sst/templateassist/internal/watcher"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoSuchProposal = errors.New("no such proposal")
)

// App holds the template cache shared by every request for a project.
type App struct {
	directory string
	config    *config.Config
	log       *slog.Logger

	Loader *loader.FileLoader
	Store  *templates.Store
	Logs   *logging.Recorder
}

type Option func(*App)

// WithLogs exposes recent log records through the app.
func WithLogs(r *logging.Recorder) Option {
	return func(a *App) {
		a.Logs = r
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{
		directory: cfg.WorkingDir,
		config:    cfg,
		log:       slog.With("service", "app"),
	}
	for _, opt := range opts {
		opt(app)
	}

	var err error
	app.Loader, err = loader.New(
		loader.WithDirs(cfg.Templates.Dirs...),
		loader.WithPattern(cfg.Templates.Pattern),
	)
	if err != nil {
		return nil, err
	}

	var storeOpts []templates.StoreOption
	if cfg.Templates.Dedupe {
		storeOpts = append(storeOpts, templates.WithDeduplication())
	}
	app.Store = templates.NewStore(app.Loader, storeOpts...)
	app.log.Debug("app created", "directory", app.directory, "dirs", app.Loader.Dirs(app.directory))
	return app, nil
}

// Directory is the project root used when a request names none.
func (a *App) Directory() string {
	return a.directory
}

// NewEngine returns an engine whose resolvers add vars to the editor's own
// variables.
func (a *App) NewEngine(vars map[string]string) *assist.Engine {
	factory := resolver.NewFactory(vars)
	if a.config.Templates.Resolver == config.ResolverDiff {
		factory = func(ed resolver.Editor) resolver.Resolver {
			return resolver.Diffing(resolver.NewFactory(vars)(ed).ReplaceParams)
		}
	}
	return assist.New(a.Store, assist.WithResolverFactory(factory))
}

// Document is an editor buffer sent with a request.
type Document struct {
	Path      string            `json:"path"`
	Root      string            `json:"root,omitempty"`
	Text      string            `json:"text"`
	Selection *assist.Selection `json:"selection,omitempty"`
}

// ProposalRequest asks for the proposals at Offset in Document.
type ProposalRequest struct {
	Scope     string            `json:"scope"`
	Document  Document          `json:"document"`
	Offset    int               `json:"offset"`
	Prefix    string            `json:"prefix"`
	Variables map[string]string `json:"variables,omitempty"`
	// Rank orders proposals by fuzzy distance to Prefix instead of template
	// order.
	Rank bool `json:"rank,omitempty"`
}

// Candidate is a computed proposal, materialized on request.
type Candidate struct {
	Index       int              `json:"index"`
	Trigger     string           `json:"trigger"`
	Description string           `json:"description"`
	Proposal    *assist.Proposal `json:"proposal,omitempty"`
}

// Propose installs a fresh engine for the request's document and returns the
// builders that apply at the request offset.
func (a *App) Propose(ctx context.Context, req ProposalRequest) ([]assist.Builder, error) {
	if req.Scope == "" {
		return nil, fmt.Errorf("%w: scope is required", ErrInvalidRequest)
	}
	if req.Offset < 0 || req.Offset > len(req.Document.Text) {
		return nil, fmt.Errorf("%w: offset %d outside buffer of length %d", ErrInvalidRequest, req.Offset, len(req.Document.Text))
	}
	doc := req.Document
	if doc.Root == "" {
		doc.Root = a.directory
	}

	engine := a.NewEngine(req.Variables)
	if _, err := engine.Install(ctx, editor{doc}, req.Scope, doc.Root); err != nil {
		return nil, err
	}

	builders := engine.ComputeProposals(doc.Text, req.Offset, assist.Context{
		Prefix:    req.Prefix,
		Selection: doc.Selection,
	})
	if req.Rank && req.Prefix != "" {
		builders = rank(req.Prefix, builders)
	}
	a.log.Debug("proposals computed", "scope", req.Scope, "binding", engine.ID(), "count", len(builders))
	return builders, nil
}

// Candidates lists builders without materializing them, or materializes them
// all when build is set.
func Candidates(builders []assist.Builder, build bool) []Candidate {
	out := make([]Candidate, len(builders))
	for i, b := range builders {
		out[i] = Candidate{Index: i, Trigger: b.Trigger, Description: b.Description}
		if build {
			p := b.Build()
			out[i].Proposal = &p
		}
	}
	return out
}

// Accept materializes the builder at index.
func Accept(builders []assist.Builder, index int) (assist.Proposal, error) {
	if index < 0 || index >= len(builders) {
		return assist.Proposal{}, fmt.Errorf("%w: %d of %d", ErrNoSuchProposal, index, len(builders))
	}
	return builders[index].Build(), nil
}

func rank(prefix string, builders []assist.Builder) []assist.Builder {
	triggers := make([]string, len(builders))
	for i, b := range builders {
		triggers[i] = b.Trigger
	}
	order := matcher.Rank(prefix, triggers)
	seen := make([]bool, len(builders))
	out := make([]assist.Builder, 0, len(builders))
	for _, i := range order {
		seen[i] = true
		out = append(out, builders[i])
	}
	for i, b := range builders {
		if !seen[i] {
			out = append(out, b)
		}
	}
	return out
}

// Warm loads scopes concurrently for root. Every scope is attempted; the
// first error is returned.
func (a *App) Warm(ctx context.Context, root string, scopes []string) error {
	if root == "" {
		root = a.directory
	}
	var g errgroup.Group
	for _, scope := range scopes {
		g.Go(func() error {
			_, err := a.Store.EnsureLoaded(ctx, scope, root)
			return err
		})
	}
	return g.Wait()
}

// ScopeInfo summarizes a cached scope.
type ScopeInfo struct {
	Scope     string   `json:"scope"`
	Templates int      `json:"templates"`
	Triggers  []string `json:"triggers"`
}

// Inventory lists the cached scopes in name order.
func (a *App) Inventory() []ScopeInfo {
	all := a.Store.All()
	scopes := slices.Collect(maps.Keys(all))
	sort.Strings(scopes)
	out := make([]ScopeInfo, 0, len(scopes))
	for _, scope := range scopes {
		list := all[scope]
		info := ScopeInfo{Scope: scope, Templates: len(list), Triggers: make([]string, len(list))}
		for i, t := range list {
			info.Triggers[i] = t.Trigger
		}
		out = append(out, info)
	}
	return out
}

// Reset empties the template cache.
func (a *App) Reset() {
	a.Store.Reset()
}

// Watch resets the cache whenever completion files change below the
// template directories of the app's project. It blocks until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	w, err := watcher.New(a.Loader.Dirs(a.directory), a.Loader.Pattern(), func() {
		a.log.Info("completion files changed, resetting cache")
		a.Reset()
	})
	if err != nil {
		return fmt.Errorf("watch template dirs: %w", err)
	}
	return w.Run(ctx)
}

// Shutdown closes subscriptions.
func (a *App) Shutdown() {
	a.Store.Shutdown()
	if a.Logs != nil {
		a.Logs.Shutdown()
	}
}

type editor struct {
	doc Document
}

func (e editor) Path() string { return e.doc.Path }
func (e editor) Root() string { return e.doc.Root }
func (e editor) Text() string { return e.doc.Text }

func (e editor) Selection() (int, int) {
	if e.doc.Selection == nil {
		return 0, 0
	}
	return e.doc.Selection.Start, e.doc.Selection.End
}
