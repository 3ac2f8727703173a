package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"zsembells/pkg/config"
	"zsembells/pkg/launcher"
	"zsembells/pkg/logging"
	"zsembells/pkg/runner"
	"zsembells/pkg/version"
)

const defaultConfigPath = "configs/zsembells.yaml"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := 0
	root := newRootCmd(&code)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	var configPath, dialog string

	root := &cobra.Command{
		Use:   "zsembells <language_code>",
		Short: "ZSEM school bell service",
		Long: `Rings the school bells on the timetable scraped from the school website.

The single argument is the interface language (e.g. "pl" or "en").`,
		Version: version.Version,
		// The launcher owns argument validation and prints its own usage
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := &launcher.Launcher{
				Program: cmd.Root().Name(),
				Stdout:  cmd.OutOrStdout(),
				Prepare: prepare(configPath, dialog),
			}
			*code = l.Launch(cmd.Context(), args)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the configuration file")
	root.Flags().StringVar(&dialog, "dialog", "", "dialog utility path (overrides launcher.dialog)")

	root.AddCommand(
		newInitConfigCmd(&configPath),
		newScheduleCmd(&configPath),
		newRingCmd(&configPath),
	)
	return root
}

// prepare loads the configuration, starts logging and picks the runner.
func prepare(configPath, dialog string) func(ctx context.Context) (*launcher.Setup, error) {
	return func(ctx context.Context) (*launcher.Setup, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		cleanupLogs, err := logging.Init(&cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}

		if dialog == "" {
			dialog = cfg.Launcher.Dialog
		}

		var r launcher.Runner = runner.New(cfg)
		if cmd := cfg.Launcher.ExternalCommand; len(cmd) > 0 {
			slog.Info("Using external runner", "command", cmd)
			r = launcher.NewExecRunner(cmd)
		}

		return &launcher.Setup{Runner: r, Dialog: dialog, Cleanup: cleanupLogs}, nil
	}
}
