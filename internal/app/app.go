// Package app assembles the screening service from configuration. The HTTP
// server and the screen CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"quickfi/internal/notify"
	"quickfi/internal/notify/email"
	kafkanotify "quickfi/internal/notify/kafka"
	"quickfi/internal/platform/config"
	"quickfi/internal/platform/database"
	"quickfi/internal/platform/health"
	"quickfi/internal/platform/kafka/producer"
	"quickfi/internal/platform/redis"
	"quickfi/internal/screening/checks"
	"quickfi/internal/screening/extractor"
	"quickfi/internal/screening/metrics"
	"quickfi/internal/screening/pipeline"
	"quickfi/internal/screening/service"
	"quickfi/internal/screening/sources/cache"
	"quickfi/internal/screening/sources/dnb"
	"quickfi/internal/screening/sources/geocode"
	"quickfi/internal/screening/sources/sanctions"
	"quickfi/internal/screening/sources/scraper"
	"quickfi/internal/screening/sources/statelink"
	"quickfi/internal/screening/tracer"
	"quickfi/internal/seeder"
	"quickfi/internal/vendors/store"
	"quickfi/migrations"
)

// VendorStore is everything the screening components need from the record store.
type VendorStore interface {
	pipeline.VendorReader
	pipeline.FlagStore
	checks.CacheUpdater
	service.Store
	seeder.Store
}

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   VendorStore
	Service *service.Service
	Runner  *pipeline.Runner
	Metrics *metrics.Metrics
	Health  *health.Handler
	// Demo is set when demo data was seeded.
	Demo *seeder.Result

	redis   *redis.Client
	closers []func() error
}

// Build connects every configured dependency. Stages whose provider
// credentials are missing are left out and reported as not configured.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(reg),
		Health:  health.New(cfg.Server.Environment),
	}

	pool, err := a.openDatabase(ctx)
	if err != nil {
		return nil, a.fail(err)
	}
	if err := a.openStore(ctx, pool); err != nil {
		return nil, a.fail(err)
	}
	registryCache, err := a.openRegistryCache(ctx)
	if err != nil {
		return nil, a.fail(err)
	}
	links, err := a.loadStateLinks(ctx, pool)
	if err != nil {
		return nil, a.fail(err)
	}

	a.Runner = pipeline.New(a.Store, a.Store, pipeline.Config{
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		StageTimeout:   cfg.Pipeline.StageTimeout,
		RunTimeout:     cfg.Pipeline.RunTimeout,
	}, a.buildChecks(registryCache, links),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(a.Metrics),
		pipeline.WithTracer(tracer.NewOTel()),
	)

	opts := []service.Option{service.WithLogger(logger)}
	if n, err := a.buildNotifier(); err != nil {
		return nil, a.fail(err)
	} else if n != nil {
		opts = append(opts, service.WithNotifier(n))
	}
	a.Service = service.New(a.Runner, a.Store, opts...)

	logger.Info("screening configured", "stages", a.Runner.Stages())
	return a, nil
}

func (a *App) openDatabase(ctx context.Context) (*database.Pool, error) {
	dbCfg := a.Config.Database
	pool, err := database.New(ctx, database.Config{
		URL:             dbCfg.URL,
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: dbCfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, nil
	}
	a.closers = append(a.closers, pool.Close)
	a.Health.RegisterCheck("database", pool.Health)

	if dbCfg.AutoMigrate {
		n, err := database.Migrate(ctx, pool.DB(), migrations.FS)
		if err != nil {
			return nil, err
		}
		a.Logger.Info("database migrations applied", "count", n)
	}
	return pool, nil
}

func (a *App) openStore(ctx context.Context, pool *database.Pool) error {
	if pool != nil {
		a.Store = store.NewPostgresStore(pool.DB())
		return nil
	}

	a.Logger.Warn("no database configured, using in-memory vendor store")
	mem := store.NewInMemoryStore()
	a.Store = mem
	if !a.Config.Server.SeedDemo {
		return nil
	}
	res, err := seeder.New(mem, a.Logger).SeedAll(ctx)
	if err != nil {
		return err
	}
	a.Demo = res
	return nil
}

func (a *App) openRegistryCache(ctx context.Context) (cache.Store, error) {
	ttl := a.Config.Registry.CacheTTL
	rc, err := redis.New(ctx, a.Config.Redis)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return cache.NewMemoryStore(ttl), nil
	}
	a.redis = rc
	a.closers = append(a.closers, rc.Close)
	a.Health.RegisterCheck("redis", rc.Health)
	return cache.NewRedisStore(rc.Client, ttl), nil
}

// loadStateLinks prefers the database table, importing the YAML file into
// it when both are configured.
func (a *App) loadStateLinks(ctx context.Context, pool *database.Pool) (checks.StateLinks, error) {
	var table *statelink.Table
	if path := a.Config.StateLink.File; path != "" {
		t, err := statelink.LoadFile(path)
		if err != nil {
			return nil, err
		}
		table = t
	}

	if pool == nil {
		if table == nil {
			table = statelink.NewTable(nil)
		}
		return table, nil
	}

	pg := statelink.NewPostgresStore(pool.DB())
	if table != nil {
		n, err := pg.Import(ctx, table)
		if err != nil {
			return nil, err
		}
		a.Logger.Info("state links imported", "count", n)
	}
	return pg, nil
}

func (a *App) buildChecks(registryCache cache.Store, links checks.StateLinks) []checks.Check {
	cfg := a.Config
	list := []checks.Check{checks.NewIdentityCheck()}

	if cfg.Registry.ClientID != "" {
		tokens := dnb.NewTokenManager(cfg.Registry.TokenURL, cfg.Registry.ClientID, cfg.Registry.ClientSecret,
			dnb.WithTokenLogger(a.Logger),
			dnb.WithTokenMetrics(a.Metrics),
		)
		client := dnb.NewClient(cfg.Registry.BaseURL, tokens, cfg.Pipeline.ClientTimeout(cfg.Registry.Timeout), dnb.WithLogger(a.Logger))
		cached := cache.NewRegistry(client, registryCache, cache.WithMetrics(a.Metrics), cache.WithLogger(a.Logger))
		list = append(list, checks.NewRegistryCheck(cached, a.Store, cfg.Pipeline.RegistryCountries, a.Logger))
	} else {
		a.Logger.Warn("registry credentials missing, registry stage disabled")
	}

	if cfg.Sanctions.APIKey != "" {
		client := sanctions.New(cfg.Sanctions.BaseURL, cfg.Sanctions.APIKey, cfg.Pipeline.ClientTimeout(cfg.Sanctions.Timeout))
		list = append(list, checks.NewSanctionsCheck(client, a.Store, cfg.Pipeline.SanctionsMinScore, a.Logger))
	} else {
		a.Logger.Warn("sanctions api key missing, sanctions stage disabled")
	}

	if cfg.Extractor.APIKey == "" {
		a.Logger.Warn("extractor api key missing, state_registry, web_presence and adverse_media stages disabled")
		return list
	}
	ext := extractor.New(cfg.Extractor.BaseURL, cfg.Extractor.APIKey, cfg.Extractor.Model, cfg.Pipeline.ClientTimeout(cfg.Extractor.Timeout),
		extractor.WithLogger(a.Logger))

	list = append(list,
		checks.NewStateRegistryCheck(links, scraper.New(cfg.Pipeline.ClientTimeout(cfg.StateLink.ScrapeTimeout)), ext),
		checks.NewAdverseMediaCheck(ext, cfg.Pipeline.StalenessYears),
	)
	if cfg.Geocoder.APIKey != "" {
		geo := geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.APIKey, cfg.Pipeline.ClientTimeout(cfg.Geocoder.Timeout))
		list = append(list, checks.NewWebPresenceCheck(ext, geo, a.Logger))
	} else {
		a.Logger.Warn("geocoder api key missing, web_presence stage disabled")
	}
	return list
}

// buildNotifier returns nil when no channel is configured.
func (a *App) buildNotifier() (notify.Notifier, error) {
	cfg := a.Config
	var channels []notify.Channel

	if cfg.SMTP.Username != "" || cfg.SMTP.From != "" {
		channels = append(channels, notify.Channel{Name: "email", Notifier: email.New(email.Config{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			From:      cfg.SMTP.From,
			Recipient: cfg.SMTP.Recipient,
		})})
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            cfg.Kafka.Acks,
			Retries:         cfg.Kafka.Retries,
			DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		a.Health.RegisterCheck("kafka", func(ctx context.Context) error {
			if !p.Healthy(ctx) {
				return errors.New("kafka brokers unreachable")
			}
			return nil
		})
		channels = append(channels, notify.Channel{Name: "kafka", Notifier: kafkanotify.New(p, cfg.Kafka.Topic)})
	}

	if len(channels) == 0 {
		a.Logger.Warn("no notification channel configured")
		return nil, nil
	}
	return notify.NewFanout(channels, notify.WithMetrics(a.Metrics), notify.WithLogger(a.Logger)), nil
}

// RecordPoolStats publishes Redis pool statistics every interval until ctx ends.
func (a *App) RecordPoolStats(ctx context.Context, interval time.Duration) {
	if a.redis == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.redis.RecordPoolStats()
		}
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) fail(err error) error {
	if cerr := a.Close(); cerr != nil {
		a.Logger.Warn("cleanup after failed startup", "error", cerr)
	}
	return fmt.Errorf("build app: %w", err)
}
