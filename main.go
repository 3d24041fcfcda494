package main

import (
	"os"

	"github.com/pnode-analytics/pnodelogger/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
