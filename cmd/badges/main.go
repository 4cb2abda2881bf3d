// v0
// cmd/badges/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacobtread/Committers/internal/app"
	"github.com/jacobtread/Committers/internal/config"
)

func main() {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(bootstrap).ExecuteContext(ctx); err != nil {
		bootstrap.Error("command_failed", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd(bootstrap *slog.Logger) *cobra.Command {
	var configPath string

	// withApp loads configuration and runs fn against a fresh application.
	withApp := func(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config load: %w", err)
		}
		application, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("app init: %w", err)
		}
		defer func() {
			if cerr := application.Close(); cerr != nil {
				bootstrap.Error("app_close_failed", slog.Any("err", cerr))
			}
		}()
		application.Logger().Info("service_boot",
			slog.String("command", cmd.Name()),
			slog.String("listen_address", cfg.ListenAddress),
			slog.String("log_path", cfg.LogFilePath),
			slog.String("properties_path", cfg.PropertiesPath),
			slog.String("dataset_source", cfg.DatasetSource),
		)
		return fn(cmd.Context(), application)
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve rank badges over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Serve(ctx); err != nil {
					return err
				}
				a.Logger().Info("service_stopped")
				return nil
			})
		},
	}

	root := &cobra.Command{
		Use:          "badges",
		Short:        "Rank badges for the committers leaderboard",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "properties file (default $BADGES_PROPERTIES_PATH or badges.properties)")
	root.AddCommand(serve, generateCmd(withApp), blacklistCmd(withApp))
	return root
}

type appRunner func(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error

func generateCmd(withApp appRunner) *cobra.Command {
	var outDir string
	var top int

	c := &cobra.Command{
		Use:   "generate",
		Short: "Render the top ranked badges to static SVG files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Generate(ctx, outDir, top)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "written=%d skipped=%d\n", report.Written, len(report.Skipped))
				return nil
			})
		},
	}
	c.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default output_dir)")
	c.Flags().IntVarP(&top, "top", "n", 0, "number of top ranks to render (default eager_count)")
	return c
}

func blacklistCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "blacklist",
		Short: "Remove blacklisted logins from the dataset file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				removed, err := a.PurgeBlacklist(ctx)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "removed=%d\n", removed)
				return nil
			})
		},
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
