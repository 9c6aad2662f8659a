package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"

	"host-bridge/config"
	"host-bridge/hostinfo"
	"host-bridge/middleware"
	"host-bridge/registry"
	"host-bridge/server"
)

// newRegistry picks etcd when endpoints are configured, the in-memory registry otherwise.
func newRegistry(cfg *config.Config) (registry.Registry, func(), error) {
	if len(cfg.EtcdEndpoints) == 0 {
		return registry.NewStaticRegistry(), func() {}, nil
	}
	reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
	if err != nil {
		return nil, nil, err
	}
	return reg, func() {
		if err := reg.Close(); err != nil {
			zlog.Warn().Err(err).Msg("close etcd registry")
		}
	}, nil
}

func newServer(cfg *config.Config, metrics *middleware.Metrics) *server.Server {
	svr := server.NewServer(
		server.WithIdleTimeout(cfg.IdleTimeout),
		server.WithRegistryTTL(cfg.RegistryTTL),
	)
	svr.Use(middleware.RecoveryMiddleware())
	svr.Use(middleware.LoggingMiddleware())
	svr.Use(middleware.MetricsMiddleware(metrics))
	if cfg.RateLimit > 0 {
		svr.Use(middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	}
	svr.Use(middleware.TimeOutMiddleware(cfg.RequestTimeout))

	hostinfo.NewEndpoint(cfg.Namespace, hostinfo.NewSystem(cfg.TimeZoneFallback)).Attach(svr)
	return svr
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
		}
	}()
	zlog.Info().Str("addr", addr).Msg("serving metrics")
	return hs
}

func serve(cfg *config.Config) error {
	metrics, err := middleware.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return errors.Wrap(err, "register metrics")
	}

	reg, closeRegistry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	svr := newServer(cfg, metrics)

	if cfg.MetricsListen != "" {
		hs := serveMetrics(cfg.MetricsListen)
		defer hs.Close()
	}

	errc := make(chan error, 1)
	go func() {
		errc <- svr.Serve(cfg.Network, cfg.Listen, cfg.Advertise, reg)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		zlog.Info().Str("signal", sig.String()).Msg("Received shutdown signal...")
	case err := <-errc:
		return err
	}

	if err := svr.Shutdown(cfg.ShutdownTimeout); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return <-errc
}
