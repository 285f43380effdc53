// Command casm-monte runs resumable canonical Monte Carlo campaigns.
package main

import (
	"fmt"
	"os"

	"github.com/LonxunQuantum/CASMcode/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
