// Sweep is the command line companion to sweepd. It works directly against
// the database, so it can be used with the daemon stopped.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	_ "golang.org/x/crypto/x509roots/fallback"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		// Already printed by the parser
		os.Exit(1)
	}
}
