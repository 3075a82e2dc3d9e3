// internal/backend/backend.go
//
// Storage adapter selection.
//
// Context
// -------
// `Open` turns the `storage` config block into exactly one store.Store and
// wraps it with latency instrumentation.  Handlers receive the interface
// and never branch on which backend is live.
//
// Notes
// -----
// • EnsureSchema is run here so every entry point (server, provisioning)
//   starts with the table or collection in place.
// • Oxford commas, two spaces after periods.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/config"
	"github.com/yanizio/libretv-sites/internal/store"
	"github.com/yanizio/libretv-sites/internal/store/badgerstore"
	"github.com/yanizio/libretv-sites/internal/store/dataapi"
	"github.com/yanizio/libretv-sites/internal/store/memstore"
	"github.com/yanizio/libretv-sites/internal/store/mongostore"
	"github.com/yanizio/libretv-sites/internal/store/sqlstore"
)

// Open builds the configured adapter, ensures its schema, and returns it
// instrumented.
func Open(ctx context.Context, cfg config.Storage) (store.Store, error) {
	s, err := build(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("backend %s: ensure schema: %w", cfg.Backend, err)
	}
	zap.S().Infow("storage backend ready", "backend", cfg.Backend)
	return Instrument(cfg.Backend, s), nil
}

func build(cfg config.Storage) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendSQL:
		return sqlstore.Open(cfg.SQL.DSN, cfg.SQL.Table)
	case config.BackendDataAPI:
		return dataapi.New(dataapi.Config{
			URL:        cfg.DataAPI.URL,
			APIKey:     cfg.DataAPI.APIKey,
			Cluster:    cfg.DataAPI.Cluster,
			Database:   cfg.DataAPI.Database,
			Collection: cfg.DataAPI.Collection,
			Timeout:    cfg.DataAPI.Timeout,
		})
	case config.BackendMongo:
		return mongostore.New(mongostore.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	case config.BackendBadger:
		return badgerstore.Open(cfg.Badger.Path)
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("backend: unknown storage backend %q", cfg.Backend)
	}
}
