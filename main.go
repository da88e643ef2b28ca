package main

import (
	"github.com/sst/templateassist/cmd"
	"github.com/sst/templateassist/internal/logging"
)

func main() {
	defer logging.RecoverPanic("main", nil)

	cmd.Execute()
}
