package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abczzz13/forwardedheaders"
	fwdprom "github.com/abczzz13/forwardedheaders/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the echo server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bindLocal(cmd.Flags(), map[string]string{"listen": "listen"}); err != nil {
				return err
			}

			logger, err := a.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			registry := prom.NewRegistry()
			resolver, err := a.newResolver(logger, fwdprom.WithRegisterer(registry))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", a.v.GetString("listen"))
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}

			handler := newRouter(resolver, a.headerNames(), registry, logger)
			return serve(ctx, ln, handler, logger, resolver.ForwardedHeaders())
		},
	}

	cmd.Flags().String("listen", ":8080", "address to listen on")

	return cmd
}

// headerNames returns the forwarded and original header names in effect.
func (a *app) headerNames() []string {
	names := make([]string, 0, len(headerNameDefaults))
	for key := range headerNameDefaults {
		names = append(names, a.v.GetString(key))
	}
	return echoedHeaders(names...)
}

// serve runs handler on ln until ctx is cancelled, then shuts down
// gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger, honored forwardedheaders.ForwardedHeaders) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fwdecho listening", "addr", ln.Addr().String(), "forwarded_headers", honored.String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
