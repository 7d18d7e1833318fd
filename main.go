package main

import (
	"os"

	"github.com/zsprackett/timestream/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
