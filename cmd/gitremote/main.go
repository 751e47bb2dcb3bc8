// Command gitremote links the current git repository to
// its forge: it prints, opens or copies URLs of branches,
// commits and files, and, once connected, looks up pull
// requests, issues and commit authors.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)

	cli := CLI{Globals: Globals{out: os.Stdout}}

	parser, err := newParser(ctx, &cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogging(cli.Verbose)

	err = kctx.Run(&cli.Globals)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newParser(ctx context.Context, cli *CLI) (*kong.Kong, error) {
	parser, err := kong.New(
		cli,
		kong.Name("gitremote"),
		kong.Description("Link a git repository to its forge."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("building cli: %w", err)
	}

	return parser, nil
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		os.Stderr, &slog.HandlerOptions{Level: level},
	)))
}
