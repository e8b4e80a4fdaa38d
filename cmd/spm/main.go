package main

import (
	"os"

	"github.com/rustyeddy/positions/cmd/spm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
