package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	checkcmd "github.com/walteh/markols/cmd/markols/check"
	extractcmd "github.com/walteh/markols/cmd/markols/extract"
	serve_lsp "github.com/walteh/markols/cmd/markols/serve-lsp"
	mdebug "github.com/walteh/markols/pkg/debug"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		logLevel string
		verbose  bool
	)

	rootCmd := &cobra.Command{
		Use:           "markols",
		Short:         "language tooling for marko templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for stderr")
	rootCmd.PersistentFlags().BoolVar(&verbose, "debug", false, "shorthand for --log-level=debug")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return errors.Errorf("parsing --log-level: %w", err)
		}
		if verbose {
			level = zerolog.DebugLevel
		}
		pretty := isatty.IsTerminal(os.Stderr.Fd())
		logger := mdebug.NewLogger(os.Stderr, level, pretty)
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand())
	rootCmd.AddCommand(checkcmd.NewCheckCommand())
	rootCmd.AddCommand(extractcmd.NewExtractCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("markols: %w", err)
	}

	return nil
}
