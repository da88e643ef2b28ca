package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sst/templateassist/internal/position"
	"github.com/sst/templateassist/internal/templates"
	"github.com/sst/templateassist/pkg/app/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectFile = `{
	// project templates
	"scope": "js",
	"completions": [
		{
			"trigger": "for",
			"proposal": "for (${i};;) {}",
			"description": "for loop",
			"escapePosition": 14,
			"positions": [{"offset": 5, "length": 4}]
		}
	]
}`

const globalFile = `{
	"scope": "js",
	"completions": [
		/* selection wrappers */
		{"trigger": "try", "proposal": "try {${selection}} catch (e) {}", "isTemplate": true}
	]
}`

const cssFile = `{"scope": "css", "completions": [{"trigger": "bg", "proposal": "background: ;"}]}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadRawTemplates(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	global := t.TempDir()

	writeFile(t, filepath.Join(paths.Completions(root), "js.scripted-completions"), projectFile)
	writeFile(t, filepath.Join(global, "web", "js-extra.scripted-completions"), globalFile)
	writeFile(t, filepath.Join(global, "css.scripted-completions"), cssFile)
	writeFile(t, filepath.Join(global, "notes.txt"), "not a completion file")

	l, err := New(WithDirs(global, filepath.Join(root, "missing")))
	require.NoError(t, err)

	list, err := l.LoadRawTemplates(t.Context(), "js", root)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "for", list[0].Trigger)
	require.NotNil(t, list[0].EscapePosition)
	assert.Equal(t, 14, *list[0].EscapePosition)
	assert.Equal(t, position.Group{position.Position{Offset: 5, Length: 4}}, list[0].Positions)
	assert.Equal(t, "try", list[1].Trigger)
	assert.True(t, list[1].IsTemplate)

	css, err := l.LoadRawTemplates(t.Context(), "css", "")
	require.NoError(t, err)
	assert.Equal(t, []templates.Template{{Trigger: "bg", Proposal: "background: ;"}}, css)

	none, err := l.LoadRawTemplates(t.Context(), "python", root)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLoaderCachesUntilReset(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.scripted-completions")
	writeFile(t, path, cssFile)

	l, err := New(WithDirs(dir))
	require.NoError(t, err)

	list, err := l.LoadRawTemplates(t.Context(), "css", "")
	require.NoError(t, err)
	require.Len(t, list, 1)

	writeFile(t, path, `{"scope": "css", "completions": []}`)
	list, err = l.LoadRawTemplates(t.Context(), "css", "")
	require.NoError(t, err)
	assert.Len(t, list, 1, "directory contents are cached")

	l.Reset()
	list, err = l.LoadRawTemplates(t.Context(), "css", "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLoaderInvalidFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.scripted-completions"), `{"scope": "js", "completions": [`)

	l, err := New(WithDirs(dir))
	require.NoError(t, err)

	_, err = l.LoadRawTemplates(t.Context(), "js", "")
	require.Error(t, err)
	var invalid ErrInvalidTemplateFile
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Path, "bad.scripted-completions")
}

func TestLoaderPattern(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), cssFile)
	writeFile(t, filepath.Join(dir, "b.scripted-completions"), cssFile)

	l, err := New(WithDirs(dir), WithPattern("*.json"))
	require.NoError(t, err)
	assert.Equal(t, "*.json", l.Pattern())

	list, err := l.LoadRawTemplates(t.Context(), "css", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = New(WithPattern("[unclosed"))
	assert.Error(t, err)
}

func TestLoaderDirs(t *testing.T) {
	t.Parallel()
	l, err := New(WithDirs("/global"))
	require.NoError(t, err)

	assert.Equal(t, []string{paths.Completions("/proj"), "/global"}, l.Dirs("/proj"))
	assert.Equal(t, []string{"/global"}, l.Dirs(""))
}
