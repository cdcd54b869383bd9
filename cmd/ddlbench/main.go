package main

import (
	"os"

	"github.com/armadaproject/ddlbench/cmd/ddlbench/cmd"
	"github.com/armadaproject/ddlbench/internal/common/logging"
)

func main() {
	logging.ConfigureCommandLineLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
