package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/server"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the school search API",
	Long:  "Serves the school list, filtered search, GeoJSON, route links and the directions proxy over HTTP, and streams transit times over /ws/transit.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		catalog, err := model.DefaultCatalog()
		if err != nil {
			return err
		}

		deps := server.Deps{
			Schools:    newLoader(cfg, newGSIClient(cfg)),
			Catalog:    catalog,
			BrowserKey: cfg.Google.BrowserKey,
		}
		if client := newGoogleClient(cfg); client != nil {
			deps.Directions = client
			agg, err := newAggregator(cfg, client)
			if err != nil {
				return err
			}
			deps.Aggregator = agg
		}
		if deps.BrowserKey == "" {
			deps.BrowserKey = cfg.GoogleKey()
		}

		return startServer(ctx, server.New(cfg.Server, deps))
	},
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer runs srv until ctx is cancelled, then shuts it down gracefully.
func startServer(ctx context.Context, srv *server.Server) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		return nil
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
