// Package commands implements the inkwell command-line interface
package commands

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/api"
	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/metrics"
	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
	"github.com/inkwell-cms/inkwell/internal/web/server"
)

// loadConfig wraps config.Load failures so they are reported as configuration errors
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

// loadRegistry builds the registry from the configured definition file, or
// from the built-in definitions when none is set.
func loadRegistry(cfg *config.Config, logger *zap.Logger) (*resource.Registry, error) {
	defs := resource.DefaultDefinitions()
	if cfg.Resources.File != "" {
		loaded, err := resource.LoadDefinitions(cfg.Resources.File)
		if err != nil {
			return nil, &configError{err: err}
		}
		defs = loaded
	}

	registry, err := resource.NewRegistry(defs, resource.WithLogger(logger))
	if err != nil {
		return nil, &configError{err: fmt.Errorf("invalid resource definitions: %w", err)}
	}
	return registry, nil
}

// newAPI assembles the HTTP handler over the given collections
func newAPI(cfg *config.Config, registry *resource.Registry, collections api.Collections, m *metrics.Metrics, logger *zap.Logger) *api.API {
	return api.New(api.Options{
		Registry:       registry,
		Store:          collections,
		Logger:         logger,
		Metrics:        m,
		Prefix:         cfg.Server.APIPrefix,
		TrustProxy:     cfg.Server.TrustProxy,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})
}

// runServer connects the store, serves the API and shuts down when ctx is done
func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry, err := loadRegistry(cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	driver, err := store.OpenDriver(ctx, cfg.Store.ToStoreConfig(), logger)
	if err != nil {
		return err
	}
	gateway := store.NewGateway(driver, store.WithGatewayLogger(logger), store.WithMetrics(m))
	closeStore := sync.OnceValue(gateway.Close)
	defer closeStore()

	srvCfg := server.DefaultConfig(newAPI(cfg, registry, gateway, m, logger))
	srvCfg.Address = cfg.Server.Address()
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.IdleTimeout = cfg.Server.IdleTimeout

	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}

	shutdown := server.NewGracefulShutdown(srv, cfg.Server.ShutdownTimeout, logger)
	shutdown.RegisterHook("store", func(context.Context) error {
		return closeStore()
	})

	logger.Info("starting inkwell",
		zap.String("version", Version),
		zap.String("driver", cfg.Store.Driver),
		zap.String("api_prefix", cfg.Server.APIPrefix),
		zap.Strings("types", registry.Types()),
	)
	return shutdown.Run(ctx)
}
