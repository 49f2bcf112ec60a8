package main

import (
	"os"

	"github.com/dendrite-md/dendrite/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
