// Command relay runs the socket.io relay the generator and the simulator
// services connect to.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/specialistvlad/scenegrid/internal/app"
	"github.com/specialistvlad/scenegrid/internal/bus"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("relay", flag.ContinueOnError)
	addr := flagSet.String("addr", ":3000", "Address to listen on.")
	logFormat := flagSet.String("log-format", "text", "Set the log output format. Options: 'text', 'json'.")
	logLevel := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	logger := app.NewLogger(strings.ToLower(*logLevel), strings.ToLower(*logFormat), os.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	return bus.NewRelay(ctx, *addr).ListenAndServe(ctx)
}
