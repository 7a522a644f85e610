package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/d2oracle/oracle/core/catalog"
	"github.com/d2oracle/oracle/core/engine"
	"github.com/d2oracle/oracle/core/infra/bus"
	"github.com/d2oracle/oracle/core/infra/config"
	"github.com/d2oracle/oracle/core/infra/logging"
	"github.com/d2oracle/oracle/core/infra/metrics"
	"github.com/d2oracle/oracle/core/oracle"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	metricsNamespace = "oracle"
	shutdownTimeout  = 5 * time.Second
)

// Run starts every configured listener and blocks until ctx ends or a listener fails.
func Run(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	logging.Info("server", "catalog loaded", "revision", cat.Revision(), "weapons", cat.Len())

	mode, err := oracle.ParseValidationMode(cfg.Validation)
	if err != nil {
		return err
	}
	gateway := newGateway(cfg.Engine, cat, metrics.NewEngineProm(metricsNamespace))

	var natsBus *bus.NatsBus
	var publisher oracle.Publisher
	if cfg.NatsURL != "" {
		natsBus, err = bus.NewNatsBus(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer natsBus.Close()
		publisher = NewBusPublisher(natsBus)
	}

	svc := oracle.NewService(oracle.NewValidator(mode), gateway, publisher)
	s := New(Options{
		Service:        svc,
		Gateway:        gateway,
		Catalog:        cat,
		Bus:            natsBus,
		Metrics:        metrics.NewGatewayProm(metricsNamespace),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	if natsBus != nil {
		if err := natsBus.ServeRequests(bus.SubjectScore, bus.QueueOracle, s.HandleNATS); err != nil {
			return fmt.Errorf("subscribe %s: %w", bus.SubjectScore, err)
		}
		logging.Info("server", "nats serving", "subject", bus.SubjectScore, "queue", bus.QueueOracle)
	}

	errCh := make(chan error, 3)

	if cfg.GRPCAddr != "" {
		grpcServer, err := newGRPCServer()
		if err != nil {
			return err
		}
		RegisterOracleServer(grpcServer, NewGRPCServer(svc))
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc (%s): %w", cfg.GRPCAddr, err)
		}
		go func() {
			logging.Info("server", "grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		defer grpcServer.GracefulStop()
	}

	if cfg.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info("server", "metrics listening", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("server", "metrics server error", "error", err)
			}
		}()
		defer shutdown(metricsSrv)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logging.Info("server", "http listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	defer shutdown(httpSrv)

	select {
	case <-ctx.Done():
		logging.Info("server", "shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("server", "shutdown incomplete", "addr", srv.Addr, "error", err)
	}
}

func newGateway(cfg config.EngineConfig, cat *catalog.Catalog, m metrics.EngineMetrics) *oracle.Gateway {
	opts := oracle.GatewayOptions{
		MaxWaiters:  cfg.MaxWaiters,
		WaitTimeout: cfg.WaitTimeout,
		Metrics:     m,
	}
	engineOpts := engine.Options{Strict: cfg.Strict}
	if cfg.Mode == config.EngineIsolated {
		return oracle.NewIsolatedGateway(func() oracle.Engine {
			return engine.New(cat, engineOpts)
		}, opts)
	}
	return oracle.NewSharedGateway(engine.New(cat, engineOpts), opts)
}

func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	switch {
	case cfg.Catalog.Redis:
		store, err := catalog.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect catalog store: %w", err)
		}
		defer store.Close()
		cat, err := store.Load(ctx)
		if errors.Is(err, catalog.ErrNotFound) {
			logging.Warn("server", "no catalog in redis, using bundled catalog")
			return catalog.Default(), nil
		}
		if err != nil {
			return nil, err
		}
		return cat, nil
	case cfg.Catalog.Path != "":
		return catalog.LoadFile(cfg.Catalog.Path)
	default:
		return catalog.Default(), nil
	}
}

func newGRPCServer() (*grpc.Server, error) {
	creds := insecure.NewCredentials()
	if certFile := os.Getenv("ORACLE_GRPC_TLS_CERT"); certFile != "" {
		keyFile := os.Getenv("ORACLE_GRPC_TLS_KEY")
		if keyFile == "" {
			return nil, fmt.Errorf("grpc tls key missing for cert %s", certFile)
		}
		tlsCreds, err := credentials.NewServerTLSFromFile(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("grpc tls setup: %w", err)
		}
		creds = tlsCreds
	}
	return grpc.NewServer(grpc.Creds(creds)), nil
}
