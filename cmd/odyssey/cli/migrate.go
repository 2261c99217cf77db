package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-hotel/migrations"
)

// MigrateOptions configures the migrate command.
type MigrateOptions struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// MigrateCommand applies pending schema migrations and returns the exit code.
func MigrateCommand(ctx context.Context, pool *pgxpool.Pool, opts MigrateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	applied, err := migrations.Apply(ctx, pool, opts.Logger)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: %v\n", err)
		return 1
	}
	if len(applied) == 0 {
		_, _ = fmt.Fprintln(opts.Stdout, "schema is up to date")
		return 0
	}
	for _, name := range applied {
		_, _ = fmt.Fprintf(opts.Stdout, "applied %s\n", name)
	}
	return 0
}
