package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tagimport/internal/importer"
	"github.com/JonMunkholm/tagimport/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Parse an export and store its tracks (needs DATABASE_URL)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) runImport(ctx context.Context, stdout io.Writer, path string) error {
	if a.cfg.Database.URL == "" {
		return importer.ErrNoStore
	}

	if d := a.cfg.Parse.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	poolConfig, err := pgxpool.ParseConfig(a.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(a.cfg.Database.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	tracks := store.New(pool, a.logger)
	if err := tracks.EnsureSchema(ctx); err != nil {
		return err
	}

	svc := importer.New(a.parser(), tracks, nil, a.logger)
	res, err := svc.Import(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "import %s: %d inserted, %d duplicates, %d skipped, %d failed (%s, %s)\n",
		res.ImportID, res.Store.Inserted, res.Store.Duplicates, res.Store.Skipped,
		len(res.Store.Failed), res.Encoding, res.Strategy)
	for _, f := range res.Store.Failed {
		fmt.Fprintf(stdout, "  record %d (%s): %s\n", f.Record, f.Key, f.Reason)
	}
	return nil
}
