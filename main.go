// rconsole - an interactive RCON console with live server log tailing.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rconsole/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := cmd.Execute(ctx, os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Interrupted by the operator.
		fmt.Println("\n[*] Closing...")
	default:
		fmt.Fprintf(os.Stderr, "rconsole: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
