package paths

import "path/filepath"

func Data(project string) string {
	return filepath.Join(project, ".templateassist")
}

func Completions(project string) string {
	return filepath.Join(Data(project), "completions")
}

func Log(project string) string {
	return filepath.Join(Data(project), "log")
}
