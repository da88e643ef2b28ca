package resolver

import (
	"maps"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sst/templateassist/internal/position"
)

var paramPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Variables replaces ${name} placeholders with fixed values. Placeholders
// without a value are left as typed.
type Variables struct {
	values map[string]string
}

func NewVariables(values map[string]string) *Variables {
	return &Variables{values: maps.Clone(values)}
}

func (v *Variables) ReplaceParams(text string) string {
	return paramPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := v.values[name]; ok {
			return val
		}
		return match
	})
}

func (v *Variables) FindReplacements(text string) []position.Replacement {
	var out []position.Replacement
	for _, loc := range paramPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		val, ok := v.values[name]
		if !ok || len(val) == loc[1]-loc[0] {
			continue
		}
		out = append(out, position.Replacement{
			Start:       loc[0],
			LengthAdded: len(val) - (loc[1] - loc[0]),
		})
	}
	return out
}

// Lookup returns the value bound to name.
func (v *Variables) Lookup(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

// EditorVariables computes the variables available from an editor:
// file, fileName, fileBase, dir, projectDir, selection, lineNumber and
// lineText.
func EditorVariables(ed Editor) map[string]string {
	vars := map[string]string{
		"projectDir": ed.Root(),
	}
	if path := ed.Path(); path != "" {
		base := filepath.Base(path)
		vars["file"] = path
		vars["fileName"] = base
		vars["fileBase"] = strings.TrimSuffix(base, filepath.Ext(base))
		vars["dir"] = filepath.Dir(path)
	}

	text := ed.Text()
	start, end := ed.Selection()
	if start > end {
		start, end = end, start
	}
	start = clamp(start, 0, len(text))
	end = clamp(end, 0, len(text))
	vars["selection"] = text[start:end]

	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := strings.IndexByte(text[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += start
	}
	vars["lineNumber"] = strconv.Itoa(strings.Count(text[:start], "\n") + 1)
	vars["lineText"] = strings.TrimRight(text[lineStart:lineEnd], "\r")
	return vars
}

// ForEditor returns a resolver over the editor's variables.
func ForEditor(ed Editor) Resolver {
	return NewVariables(EditorVariables(ed))
}

// NewFactory returns a Factory binding editor variables plus extra values.
// Extra values win over editor variables with the same name.
func NewFactory(extra map[string]string) Factory {
	return func(ed Editor) Resolver {
		vars := EditorVariables(ed)
		maps.Copy(vars, extra)
		return NewVariables(vars)
	}
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
