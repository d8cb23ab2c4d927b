package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/rickgao/coincap-data/internal/api"
	"github.com/rickgao/coincap-data/internal/cache"
	"github.com/rickgao/coincap-data/internal/config"
	"github.com/rickgao/coincap-data/internal/database"
	"github.com/rickgao/coincap-data/internal/ledger"
	"github.com/rickgao/coincap-data/internal/objstore"
	"github.com/rickgao/coincap-data/internal/version"
)

// env bundles what every command needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

// setup loads the config named by --config and installs the logger.
func setup(c *cli.Context, component string) (*env, error) {
	path := c.String("config")

	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With("component", component)
	slog.SetDefault(logger)

	logger.Info("starting "+component,
		"version", version.Version,
		"commit", version.Commit,
		"config", path,
	)
	return &env{cfg: cfg, logger: logger}, nil
}

// openStore connects to the object store, creating the bucket if configured.
func (e *env) openStore(ctx context.Context) (*objstore.MinIO, error) {
	store, err := objstore.NewMinIO(e.cfg.Storage, e.logger)
	if err != nil {
		return nil, err
	}
	if e.cfg.Storage.CreateBucket {
		if err := store.EnsureBucket(ctx, e.cfg.Storage.Region); err != nil {
			return nil, err
		}
	}
	e.logger.Info("object store ready",
		"endpoint", e.cfg.Storage.Endpoint,
		"bucket", e.cfg.Storage.Bucket,
	)
	return store, nil
}

// newClient creates the CoinCap REST client.
func (e *env) newClient() *api.Client {
	return api.NewClient(
		e.cfg.API.RestURL,
		e.cfg.API.APIKey,
		api.WithLogger(e.logger),
		api.WithTimeout(e.cfg.API.Timeout),
		api.WithRetries(e.cfg.API.Retries(), time.Second),
		api.WithRateLimit(e.cfg.API.RequestsPerSecond()),
	)
}

// preflight checks that every configured currency is known to the API.
// Failures are logged only; ingest handles an unreachable API on its own.
func (e *env) preflight(ctx context.Context, client *api.Client) {
	for _, id := range e.cfg.Pipeline.Currencies {
		asset, err := client.GetAsset(ctx, id)
		if err != nil {
			e.logger.Warn("currency preflight failed", "currency", id, "error", err)
			continue
		}
		e.logger.Debug("currency preflight ok",
			"currency", id,
			"symbol", asset.Symbol,
			"rank", asset.Rank,
		)
	}
}

// openLedger connects the run ledger when one is configured. Both return
// values are nil when it is disabled.
func (e *env) openLedger(ctx context.Context) (*ledger.Ledger, *pgxpool.Pool, error) {
	if !e.cfg.Database.Enabled() {
		e.logger.Info("run ledger disabled")
		return nil, nil, nil
	}

	e.logger.Info("connecting to ledger database",
		"host", e.cfg.Database.Host,
		"port", e.cfg.Database.Port,
		"database", e.cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, e.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect ledger: %w", err)
	}

	l := ledger.New(pool, e.logger)
	if err := l.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return l, pool, nil
}

// dashboardStore wraps store with the Redis cache when one is configured.
// cached is nil when caching is off.
func (e *env) dashboardStore(store objstore.Store) (read objstore.Store, cached *cache.Store, closeFn func()) {
	if !e.cfg.Cache.Enabled() {
		return store, nil, func() {}
	}

	client := cache.NewClient(e.cfg.Cache)
	e.logger.Info("dashboard cache enabled", "addr", e.cfg.Cache.Addr, "ttl", e.cfg.Cache.TTL)
	cached = cache.New(store, client, e.cfg.Cache.TTL, e.logger)
	return cached, cached, func() { client.Close() }
}
