package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/config"
	"github.com/MrEthical07/authgate/internal/httpapi"
	"github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/MrEthical07/authgate/revocation"
	"github.com/MrEthical07/authgate/userstore/memory"
)

const janitorInterval = time.Minute

func newServeCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg.LogVerbosity))
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Optional env file; environment variables take precedence.")
	return cmd
}

func newLogger(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.LUTC)).WithName("authgate")
}

// serve runs until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return err
	}

	b := authgate.New().
		WithConfig(engineCfg).
		WithUserProvider(memory.New()).
		WithLogger(log.WithName("engine")).
		WithAuditSink(auditSink(cfg.AuditSink, log))

	closeStore, err := withRevocationStore(ctx, b, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	engine, err := b.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := httpapi.Options{SecureCookies: cfg.SecureCookies}
	if cfg.RefreshCookie {
		opts.RefreshCookieTTL = engineCfg.JWT.RefreshTTL
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.New(engine, log, opts))
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", prometheus.New(engine).Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "signing_method", engineCfg.JWT.SigningMethod)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// withRevocationStore picks Redis, embedded miniredis, or the in-process
// store, in that order. The returned func releases it.
func withRevocationStore(ctx context.Context, b *authgate.Builder, cfg *config.Config, log logr.Logger) (func(), error) {
	switch {
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		timeout := cfg.RevocationTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		log.Info("revocation store", "kind", "redis", "addr", cfg.RedisAddr)
		b.WithRedis(client)
		return func() { _ = client.Close() }, nil

	case cfg.EmbeddedRedis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("embedded redis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		log.Info("revocation store", "kind", "embedded-redis", "addr", mr.Addr())
		b.WithRedis(client)
		return func() {
			_ = client.Close()
			mr.Close()
		}, nil

	default:
		store := revocation.NewMemoryStore(nil)
		janitorCtx, cancel := context.WithCancel(ctx)
		go store.RunJanitor(janitorCtx, janitorInterval)
		log.Info("revocation store", "kind", "memory")
		b.WithRevocationStore(store)
		return cancel, nil
	}
}

func auditSink(kind string, log logr.Logger) authgate.AuditSink {
	switch kind {
	case "json":
		return authgate.NewJSONWriterSink(os.Stdout)
	case "log":
		return authgate.NewLogSink(log.WithName("audit"))
	default:
		return authgate.NoOpSink{}
	}
}
