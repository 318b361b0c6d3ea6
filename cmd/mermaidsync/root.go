package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/mermaidsync/internal/logging"
)

// app is the per-invocation state shared by every command.
type app struct {
	cfg        Config
	configPath string
	level      *slog.LevelVar
	logger     *slog.Logger
}

type ctxKey int

const appKey ctxKey = 0

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey, a)
}

// appFrom returns the app attached by the root command. Commands run
// outside the root (tests) get the defaults.
func appFrom(ctx context.Context) *app {
	if a, ok := ctx.Value(appKey).(*app); ok {
		return a
	}
	return &app{cfg: defaultConfig(), level: &slog.LevelVar{}, logger: slog.Default()}
}

func execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		verbose    bool
	)

	root := &cobra.Command{
		Use:          "mermaidsync",
		Short:        "Keep Mermaid text and a structured diagram model in sync",
		Long:         `mermaidsync translates between a structured diagram model and Mermaid text for flowcharts, sequence, class, ER, gantt and journey diagrams, renders previews, and serves an editor panel and MCP tools.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if verbose {
				cfg.LogLevel = "debug"
			}

			lvl, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			level := &slog.LevelVar{}
			level.Set(lvl)
			h, err := logging.NewLevelHandler(cmd.ErrOrStderr(), cfg.LogFormat, level)
			if err != nil {
				return err
			}

			a := &app{cfg: cfg, configPath: configPath, level: level, logger: slog.New(h)}
			cmd.SetContext(withApp(cmd.Context(), a))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("mermaidsync %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newDetectCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMCPCmd())
	root.AddCommand(newInstallCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// readInput reads the named file, or stdin when path is empty or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
