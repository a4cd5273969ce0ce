package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"booklibrary/db/migrations"
	"booklibrary/internal/config"
	"booklibrary/internal/store"

	"github.com/pressly/goose/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	command := fs.String("command", "up", "Migration command: up, down, reset, status, version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := storeConfig()
	if err != nil {
		return err
	}
	db, closer, err := store.OpenSQL(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	provider, err := migrations.NewProvider(cfg.Driver, db)
	if err != nil {
		return err
	}
	return execute(ctx, provider, *command, cfg, out)
}

func execute(ctx context.Context, p *goose.Provider, command string, cfg config.StoreConfig, out io.Writer) error {
	switch command {
	case "up":
		results, err := p.Up(ctx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		printResults(out, results)
		fmt.Fprintf(out, "%s migrations applied successfully\n", cfg.Driver)
	case "down":
		result, err := p.Down(ctx)
		if err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				fmt.Fprintln(out, "nothing to roll back")
				return nil
			}
			return fmt.Errorf("roll back migration: %w", err)
		}
		printResults(out, []*goose.MigrationResult{result})
	case "reset":
		results, err := p.DownTo(ctx, 0)
		if err != nil {
			return fmt.Errorf("reset migrations: %w", err)
		}
		printResults(out, results)
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, s := range statuses {
			fmt.Fprintf(out, "%05d %-8s %s\n", s.Source.Version, s.State, s.Source.Path)
		}
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("db version: %w", err)
		}
		fmt.Fprintf(out, "version %d\n", v)
	default:
		return fmt.Errorf("unknown command %q; use up, down, reset, status, version", command)
	}
	return nil
}

func printResults(out io.Writer, results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil {
			continue
		}
		fmt.Fprintf(out, "%s %05d %s (%s)\n", r.Direction, r.Source.Version, r.Source.Path, r.Duration)
	}
}
