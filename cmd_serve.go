package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fapagri/console/internal/db"
	"github.com/fapagri/console/internal/handlers"
)

const purgeInterval = time.Hour

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web console",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (or FAPAGRI_ADDR)")
	return cmd
}

// serve runs the console until ctx is cancelled, then drains in-flight
// requests.
func (a *app) serve(ctx context.Context) error {
	store, err := db.Open(a.cfg.DataDir, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := a.client()
	if err != nil {
		return err
	}

	go store.RunPurge(ctx, a.cfg.StorageTTL, purgeInterval)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handlers.New(a.cfg, store, client, a.logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("console listening",
			zap.String("addr", a.cfg.Addr), zap.String("api", a.cfg.APIURL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
