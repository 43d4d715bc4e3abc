package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/bucketgate/binding"
	"github.com/sagarc03/bucketgate/config"
	gatehttp "github.com/sagarc03/bucketgate/http"
	"github.com/sagarc03/bucketgate/metrics"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the bucketgate HTTP gateway for the binding named by bucket.binding
(env: BUCKETGATE_BUCKET_BINDING). With metrics enabled, Prometheus metrics are
served on a separate listener.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8787, "HTTP server port (env: BUCKETGATE_SERVER_PORT)")
	serveCmd.Flags().Bool("metrics", false, "serve Prometheus metrics (env: BUCKETGATE_METRICS_ENABLED)")
	serveCmd.Flags().String("metrics-addr", ":9090", "metrics listen address (env: BUCKETGATE_METRICS_ADDR)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		bindingOpts []binding.Option
		handlerOpts []gatehttp.HandlerOption
		m           *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		bindingOpts = append(bindingOpts, binding.WithMetrics(m))
		handlerOpts = append(handlerOpts, gatehttp.WithMetrics(m.Middleware))
	}

	set, err := binding.Open(ctx, cfg, bindingOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := set.Close(); err != nil {
			slog.Error("close bindings", "err", err)
		}
	}()

	if cfg.Bucket.Binding == "" {
		slog.Warn("no binding selected, every request will fail", "env", gatehttp.BindingEnvVar)
	} else if _, ok := set.Buckets()[cfg.Bucket.Binding]; !ok {
		slog.Warn("selected binding is not configured, every request will fail", "binding", cfg.Bucket.Binding)
	}

	env := gatehttp.Env{Binding: cfg.Bucket.Binding, Buckets: set.Buckets()}
	handler := gatehttp.NewHandler(gatehttp.StaticEnv(env), handlerOpts...)

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}}
	if m != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
