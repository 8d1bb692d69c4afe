package main

import (
	"os"

	"github.com/mdubois44/chargeplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
