package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fruitsalade/memfs/internal/api"
	"github.com/fruitsalade/memfs/internal/config"
	"github.com/fruitsalade/memfs/internal/events"
	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/internal/metrics"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/snapshot"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the namespace over HTTP with a Prometheus metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	logging.Info("memfs server starting",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("snapshot_store", cfg.SnapshotStore))

	store, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer closeStore(closeFn)

	broadcaster := events.NewBroadcaster()
	ns := a.newManager(broadcaster.Observer())

	if err := loadOnStart(ctx, cfg, ns, store); err != nil {
		return err
	}

	var opts []api.Option
	if store != nil {
		opts = append(opts, api.WithStore(store))
	}
	srv := api.NewServer(ns, broadcaster, opts...)

	g, gctx := errgroup.WithContext(ctx)
	baseContext := func(net.Listener) context.Context { return gctx }

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       baseContext,
	}
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logging.Info("API server listening", zap.String("addr", cfg.ListenAddr))
		return listen(httpServer)
	})
	g.Go(func() error {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		return listen(metricsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := multierr.Combine(
			httpServer.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
		if cfg.SaveOnShutdown && store != nil {
			if serr := ns.SaveToDisk(shutdownCtx, store); serr != nil {
				err = multierr.Append(err, fmt.Errorf("save snapshot on shutdown: %w", serr))
			} else {
				logging.Info("snapshot saved on shutdown", zap.Int("entities", ns.Len()))
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logging.Error("server stopped with error", zap.Error(err))
		return err
	}
	logging.Info("server stopped")
	return nil
}

func listen(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.Addr, err)
	}
	return nil
}

// loadOnStart restores the last snapshot when configured. A store with no
// snapshot yet is not an error.
func loadOnStart(ctx context.Context, cfg *config.Config, ns *namespace.Manager, store namespace.Store) error {
	if !cfg.LoadOnStart || store == nil {
		return nil
	}
	err := ns.LoadFromDisk(ctx, store)
	switch {
	case err == nil:
		logging.Info("snapshot loaded", zap.Int("entities", ns.Len()))
		return nil
	case errors.Is(err, snapshot.ErrNoSnapshot):
		logging.Warn("no snapshot to load, starting empty")
		return nil
	default:
		return fmt.Errorf("load snapshot on start: %w", err)
	}
}
