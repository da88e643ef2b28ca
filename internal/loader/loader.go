// Package loader reads completion files from template directories.
//
// A completion file is a JSON document, comments allowed, of the form
//
//	{
//	  "scope": "js",
//	  "completions": [
//	    {"trigger": "for", "proposal": "for (;;) {}", "description": "for loop"}
//	  ]
//	}
//
// Files are looked up in the project's template directory first and then in
// every configured global directory.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/marcozac/go-jsonc"
	"github.com/sst/templateassist/internal/templates"
	"github.com/sst/templateassist/pkg/app/paths"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// DefaultPattern selects completion files inside a template directory.
const DefaultPattern = "**/*.scripted-completions"

// ErrInvalidTemplateFile wraps a decoding failure with the offending file.
type ErrInvalidTemplateFile struct {
	Path   string
	source error
}

func (e ErrInvalidTemplateFile) Error() string {
	return fmt.Sprintf("invalid template file %s: %v", e.Path, e.source)
}

func (e ErrInvalidTemplateFile) Unwrap() error {
	return e.source
}

// CompletionFile is the on-disk shape of a completion file.
type CompletionFile struct {
	Scope       string               `json:"scope"`
	Completions []templates.Template `json:"completions"`
}

// FileLoader loads templates from directories. Parsed directories are kept
// until Reset.
type FileLoader struct {
	dirs    []string
	pattern string
	log     *slog.Logger

	mu    sync.Mutex
	cache map[string][]CompletionFile
}

type Option func(*FileLoader)

// WithDirs adds global template directories searched after the project's.
func WithDirs(dirs ...string) Option {
	return func(l *FileLoader) {
		l.dirs = append(l.dirs, dirs...)
	}
}

// WithPattern overrides DefaultPattern.
func WithPattern(pattern string) Option {
	return func(l *FileLoader) {
		if pattern != "" {
			l.pattern = pattern
		}
	}
}

func New(opts ...Option) (*FileLoader, error) {
	l := &FileLoader{
		pattern: DefaultPattern,
		log:     slog.With("service", "loader"),
		cache:   make(map[string][]CompletionFile),
	}
	for _, opt := range opts {
		opt(l)
	}
	if !doublestar.ValidatePattern(l.pattern) {
		return nil, fmt.Errorf("invalid template pattern %q", l.pattern)
	}
	return l, nil
}

// Dirs returns the directories searched for root, project first.
func (l *FileLoader) Dirs(root string) []string {
	var dirs []string
	if root != "" {
		dirs = append(dirs, paths.Completions(root))
	}
	return append(dirs, l.dirs...)
}

// Pattern returns the glob completion files must match.
func (l *FileLoader) Pattern() string {
	return l.pattern
}

// LoadRawTemplates returns the templates of every completion file for scope,
// in directory order and then key order. Missing directories are skipped.
func (l *FileLoader) LoadRawTemplates(ctx context.Context, scope, root string) ([]templates.Template, error) {
	var out []templates.Template
	for _, dir := range l.Dirs(root) {
		files, err := l.dir(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.Scope == scope {
				out = append(out, f.Completions...)
			}
		}
	}
	l.log.Debug("templates read", "scope", scope, "root", root, "count", len(out))
	return out, nil
}

// Reset forgets every parsed directory.
func (l *FileLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}

func (l *FileLoader) dir(ctx context.Context, dir string) ([]CompletionFile, error) {
	l.mu.Lock()
	files, ok := l.cache[dir]
	l.mu.Unlock()
	if ok {
		return files, nil
	}

	files, err := l.readDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[dir] = files
	l.mu.Unlock()
	return files, nil
}

func (l *FileLoader) readDir(ctx context.Context, dir string) ([]CompletionFile, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat template dir: %w", err)
		}
		return nil, nil
	}

	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{NoTempDir: true})
	if err != nil {
		return nil, fmt.Errorf("open template dir %s: %w", dir, err)
	}
	defer bucket.Close()

	var files []CompletionFile
	iter := bucket.List(nil)
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list template dir %s: %w", dir, err)
		}
		if obj.IsDir {
			continue
		}
		match, err := doublestar.Match(l.pattern, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", obj.Key, err)
		}
		if !match {
			continue
		}
		f, err := readFile(ctx, bucket, obj.Key)
		if err != nil {
			return nil, ErrInvalidTemplateFile{Path: dir + "/" + obj.Key, source: err}
		}
		files = append(files, f)
	}
	l.log.Debug("template dir read", "dir", dir, "files", len(files))
	return files, nil
}

func readFile(ctx context.Context, bucket *blob.Bucket, key string) (CompletionFile, error) {
	var f CompletionFile
	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		return f, err
	}
	if err := jsonc.Unmarshal(data, &f); err != nil {
		return f, err
	}
	return f, nil
}
