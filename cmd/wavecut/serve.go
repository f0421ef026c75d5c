package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/limPage/wavecut/internal/config"
	"github.com/limPage/wavecut/internal/export"
	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/server"
	"github.com/limPage/wavecut/internal/session"
	"github.com/limPage/wavecut/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the wavecut HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			log := slog.Default()

			lib, err := library.Open(cfg.Paths.AudioRoot, log)
			if err != nil {
				return err
			}

			st := store.New(cfg.Paths.StateDir, log)
			exp := export.New(cfg.Paths.ExportDir, log)
			sess := session.New(lib, st, exp, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Library.Watch {
				if err := lib.Watch(ctx); err != nil {
					return err
				}
			}

			srv := server.New(cfg, sess, lib, st).
				WithShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeout) * time.Second)

			err = srv.Start(ctx)

			// Persist the open session before the process exits.
			sess.Close()

			return err
		},
	}

	defaults := config.DefaultConfig()
	config.RegisterFlags(cmd.Flags(), defaults)

	return cmd
}
