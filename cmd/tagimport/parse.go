package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tagimport/internal/export"
	"github.com/JonMunkholm/tagimport/internal/importer"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

type parseFlags struct {
	format     string
	out        string
	encoding   string
	delimiter  string
	jsonObject bool
}

func newParseCmd(a *app) *cobra.Command {
	var f parseFlags

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse an export and print a summary or convert it",
		Long: `Parse reads a tag export with the fallback cascade.

Without --format or --out it prints what was detected. With either, the
records are written in the chosen format to --out, or to stdout. The format
defaults to the extension of --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd.Context(), cmd.OutOrStdout(), args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: csv, json, xml, xlsx, sqlite")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "csv output encoding: utf-8-sig, utf-16-le, utf-8")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "csv output delimiter")
	cmd.Flags().BoolVar(&f.jsonObject, "json-object", false, "write json as an object keyed item_<n>")
	return cmd
}

func (a *app) runParse(ctx context.Context, stdout io.Writer, path string, f parseFlags) error {
	svc := importer.New(a.parser(), nil, nil, a.logger)
	t, err := svc.Parse(ctx, path)
	if err != nil {
		return err
	}

	if f.format == "" && f.out == "" {
		printSummary(stdout, path, t)
		return nil
	}

	format, err := outputFormat(f)
	if err != nil {
		return err
	}
	opts, err := a.exportOptions(f)
	if err != nil {
		return err
	}

	if f.out == "" {
		return export.WriteTable(format, stdout, t, opts)
	}

	if format == export.SQLite {
		n, err := export.WriteSQLiteFile(f.out, t.Header, t.Rows())
		if err != nil {
			return err
		}
		a.logger.Info("database snapshot written", "path", f.out, "tracks", n)
		return nil
	}

	out, err := os.Create(f.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.WriteTable(format, out, t, opts); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func outputFormat(f parseFlags) (export.Format, error) {
	if f.format != "" {
		return export.ParseFormat(f.format)
	}
	return export.FormatFromName(f.out)
}

func (a *app) exportOptions(f parseFlags) (export.Options, error) {
	opts := export.Options{
		Delimiter:  a.cfg.Export.DelimiterRune(),
		JSONObject: f.jsonObject,
		Logger:     a.logger,
	}

	name := a.cfg.Export.Encoding
	if f.encoding != "" {
		name = f.encoding
	}
	enc, err := tagcsv.ParseEncoding(name)
	if err != nil {
		return opts, err
	}
	opts.Encoding = enc

	if f.delimiter != "" {
		rs := []rune(f.delimiter)
		if len(rs) != 1 {
			return opts, fmt.Errorf("delimiter must be one character, got %q", f.delimiter)
		}
		opts.Delimiter = rs[0]
	}
	return opts, nil
}

func printSummary(w io.Writer, path string, t *tagcsv.Table) {
	fmt.Fprintf(w, "file:      %s\n", path)
	fmt.Fprintf(w, "encoding:  %s\n", t.Encoding)
	fmt.Fprintf(w, "delimiter: %q\n", t.Delimiter.String())
	fmt.Fprintf(w, "strategy:  %s\n", t.Strategy)
	if t.Degraded {
		fmt.Fprintln(w, "degraded:  yes (header assumed, columns may be misaligned)")
	}
	fmt.Fprintf(w, "records:   %d\n", t.Len())
	fmt.Fprintf(w, "columns:   %d\n", len(t.Header))
	fmt.Fprintf(w, "header:    %s\n", strings.Join(t.Header, ", "))
}
