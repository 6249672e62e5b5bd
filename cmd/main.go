package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/quantrove/tradescope/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, cli.ErrNoAction) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
