// Command statecore runs scenarios and manages action logs for the demo
// reducers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/statecore/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
