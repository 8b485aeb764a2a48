package main

import (
	"os"

	"github.com/bnema/rotorpool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
