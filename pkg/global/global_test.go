package global

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletions(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	assert.Equal(t, filepath.Join(xdg, "templateassist"), ConfigDir())
	assert.Equal(t, filepath.Join(xdg, "templateassist", "completions"), Completions())
}
