package main

import (
	"os"

	"github.com/bgdnvk/wpdeploy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
