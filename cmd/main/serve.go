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
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the corpus and generation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.config.ApiAddr = addr
			}
			return a.serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides api_addr from the config")
	return cmd
}

// serve runs the API until an OS signal or the shutdown endpoint stops it.
func (a *app) serve() error {
	actionChan := make(chan string, 1)

	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignalChan)
	go func() {
		<-osSignalChan
		a.logger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	server := NewServer(a.config, a.logger, a.db, a.store, actionChan)
	httpServer := &http.Server{
		Addr:              a.config.ApiAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting api server", "address", httpServer.Addr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case action := <-actionChan:
		a.logger.Info("Stopping server for " + action + "...")
	case err := <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}
	a.logger.Info("vomarkov has shut down.")
	return nil
}
