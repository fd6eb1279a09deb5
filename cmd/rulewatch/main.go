package main

import (
	"os"

	"github.com/Dicklesworthstone/rulewatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
