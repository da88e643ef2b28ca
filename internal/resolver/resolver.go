// Package resolver substitutes template parameters and reports the edits the
// substitution made so positions can be remapped afterwards.
package resolver

import (
	"github.com/sst/templateassist/internal/position"
)

// Resolver performs parameter substitution on template text.
// FindReplacements must describe exactly the edits ReplaceParams makes to
// the same input, ordered by ascending start.
type Resolver interface {
	ReplaceParams(text string) string
	FindReplacements(text string) []position.Replacement
}

// Editor is the editor state a resolver reads parameter values from.
type Editor interface {
	// Path is the file being edited, empty for unsaved buffers.
	Path() string
	// Root is the project directory containing Path.
	Root() string
	Text() string
	// Selection returns the selected byte range; start == end when empty.
	Selection() (start, end int)
}

// Factory binds a resolver to an editor.
type Factory func(Editor) Resolver

type identity struct{}

func (identity) ReplaceParams(text string) string { return text }

func (identity) FindReplacements(string) []position.Replacement { return nil }

// Identity leaves text untouched. Engines without an editor use it.
var Identity Resolver = identity{}
