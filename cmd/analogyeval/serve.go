package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/server"
)

func serveCmd(g *globalOptions) *cobra.Command {
	var (
		db, host string
		port     int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over HTTP",
		Long: `Starts a read-only JSON API over the run database:
  GET    /health
  GET    /api/v1/runs?limit=&offset=
  GET    /api/v1/runs/{id}
  GET    /api/v1/runs/{id}/results?category=
  GET    /api/v1/runs/{id}/summary
  GET    /api/v1/runs/{id}/centroids
  DELETE /api/v1/runs/{id}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setupService()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			store, err := openStorage(cmd, cfg, db)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.NewServer(store, &cfg.Server, logger)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sigChan:
			case err := <-errCh:
				return err
			}

			logger.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("server shutdown failed", zap.Error(err))
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&db, "db", "", "run database (default storage.database_path)")
	fl.StringVar(&host, "host", "localhost", "listen host")
	fl.IntVar(&port, "port", 8080, "listen port")
	return cmd
}
