package main

import (
	"os"

	"github.com/psantana5/timerguard/cmd/timerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
