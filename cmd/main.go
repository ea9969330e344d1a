package main

import (
	"os"

	"github.com/Maf1ck/kahoot-beck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
