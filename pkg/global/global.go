// Package global locates per-user directories shared by every project.
package global

import (
	"os"
	"path/filepath"
)

const appName = "templateassist"

// ConfigDir is the per-user configuration directory, or "" when the
// platform has none.
func ConfigDir() string {
	home, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, appName)
}

// Completions is the per-user template directory searched after the
// project's own.
func Completions() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "completions")
}
