package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/tetricoins/tetripin/internal/cli"
	"github.com/tetricoins/tetripin/internal/util"
)

var version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(util.ExitError)
		}
	}()

	cli.Version = version

	// Ctrl-C ends a pending clipboard wait and clears the clipboard.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()

	util.HandleError(err, "")
}
