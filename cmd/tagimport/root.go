package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tagimport/internal/config"
	"github.com/JonMunkholm/tagimport/internal/logging"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// app holds what every subcommand needs once flags and environment are read.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	verbose bool
	strict  bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tagimport",
		Short:         "Read MP3 tag exports, however they were encoded.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadLocal()
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := cfg.Logging.Level
			if a.verbose {
				level = "debug"
			}
			a.logger = logging.New(cmd.ErrOrStderr(), level, cfg.Logging.Format)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every cascade step")
	root.PersistentFlags().BoolVar(&a.strict, "strict-headers", false, "reject files whose header needs repair")

	root.AddCommand(newParseCmd(a), newImportCmd(a))
	return root
}

// parser builds the cascade from configuration and flags.
func (a *app) parser() *tagcsv.Cascade {
	mode := a.cfg.Parse.Mode()
	if a.strict {
		mode = tagcsv.StrictHeaders
	}
	return tagcsv.New(
		tagcsv.WithLogger(a.logger),
		tagcsv.WithHeaderMode(mode),
		tagcsv.WithMaxFileSize(a.cfg.Parse.MaxFileSize),
	)
}
