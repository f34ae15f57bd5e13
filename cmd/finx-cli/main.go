package main

import (
	"context"
	"log/slog"
	"os"

	"finx/cmd/finx-cli/cmd"
	"finx/internal/cli"
)

func main() {
	ctx, cancel := cli.ShutdownContext(context.Background(), slog.Default())
	defer cancel()

	if err := cmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
