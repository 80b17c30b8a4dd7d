// Package serve runs the HTTP API
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fjacquet/teamkasse/cmd/root"
	"fjacquet/teamkasse/internal/api"
	"fjacquet/teamkasse/internal/logging"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger over HTTP",
	Long:  `Start the JSON API for members, ledger entries, dues, imports and fine suggestions.`,
	RunE:  serveFunc,
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from api.addr)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	cfg := app.GetConfig()
	if addr == "" {
		addr = cfg.API.Addr
	}

	srv := api.NewServer(app.GetService(), app.GetLogger())
	if cfg.API.MetricsEnabled {
		srv.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		root.Log.Info("HTTP server listening", logging.F("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	root.Log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}
