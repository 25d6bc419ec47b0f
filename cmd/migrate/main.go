// Command migrate applies or rolls back mcadmin's Postgres schema, using
// spf13/cobra for the flag surface (the teacher's libs/go/migrate/cli.go
// RunCLI uses stdlib flag instead; cobra is adopted here since it is
// already the pack's chosen CLI library and gives subcommands a cleaner
// home than repeated -flag checks).
package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/xyqyear/mcadmin/internal/config"
	"github.com/xyqyear/mcadmin/libs/go/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back the mcadmin database schema",
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "run every pending migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(cmd.Context(), func(r *migrate.Runner) error { return r.Up() })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "roll back every applied migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(cmd.Context(), func(r *migrate.Runner) error { return r.Down() })
			},
		},
		newStepsCmd(),
		newVersionCmd(),
		newForceCmd(),
	)
	return root
}

func newStepsCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "run N migrations (positive = up, negative = down)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(r *migrate.Runner) error { return r.Steps(steps) })
		},
	}
	cmd.Flags().IntVar(&steps, "n", 1, "number of migrations to run")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(r *migrate.Runner) error {
				v, dirty, err := r.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version: %d (dirty: %v)\n", v, dirty)
				return nil
			})
		},
	}
}

func newForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force [version]",
		Short: "force the migration version without running any migration, for recovering a dirty state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v int
			if _, err := fmt.Sscanf(args[0], "%d", &v); err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withRunner(cmd.Context(), func(r *migrate.Runner) error { return r.Force(v) })
		},
	}
}

func withRunner(ctx context.Context, fn func(*migrate.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	runner := migrate.NewRunner(db, migrations, "migrations")
	return fn(runner)
}
