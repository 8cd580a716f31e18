package main

import (
	"os"

	"github.com/workbenchdata/twitter-fetch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
