// Command rtmsg inspects, encodes and decodes messages against schemas
// loaded at runtime, and runs message exchange scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rtmsg/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
