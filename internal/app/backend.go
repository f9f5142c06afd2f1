// Package app wires the storage backend named in configuration.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lafavorita/backend/internal/cache"
	"lafavorita/backend/internal/checkout"
	"lafavorita/backend/internal/config"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
	"lafavorita/backend/internal/store/localstore"
	"lafavorita/backend/internal/store/localstore/filekv"
	"lafavorita/backend/internal/store/localstore/rediskv"
	"lafavorita/backend/internal/store/memory"
	pgstore "lafavorita/backend/internal/store/postgres"
)

type Backend struct {
	Repo     store.Repository
	Carts    cache.Store[checkout.Cart]
	Sessions cache.Store[domain.RecoverySession]
	closers  []func() error
}

func (b *Backend) Close(log zerolog.Logger) {
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}
}

// OpenBackend selects the repository named by STORE_BACKEND. Carts and
// recovery sessions live in redis whenever one is reachable, otherwise in
// process memory.
func OpenBackend(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Backend, error) {
	b := &Backend{
		Carts:    cache.NewMemory[checkout.Cart](),
		Sessions: cache.NewMemory[domain.RecoverySession](),
	}

	var client *redis.Client
	if cfg.RedisAddr != "" {
		client = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			if cfg.StoreBackend == config.BackendRedis {
				return nil, fmt.Errorf("redis: %w", err)
			}
			log.Warn().Err(err).Msg("redis unavailable, carts stay in memory")
			client = nil
		} else {
			b.Carts = cache.NewRedis[checkout.Cart](client, "lafavorita:cart:")
			b.Sessions = cache.NewRedis[domain.RecoverySession](client, "lafavorita:recovery:")
			b.closers = append(b.closers, client.Close)
			log.Info().Msg("cache: redis")
		}
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		b.Repo = memory.NewSeeded()
	case config.BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis: REDIS_ADDR is not set")
		}
		repo, err := localstore.Open(ctx, rediskv.New(client), log)
		if err != nil {
			b.Close(log)
			return nil, err
		}
		b.Repo = repo
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close(log)
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.Repo = pg
		b.closers = append(b.closers, func() error { pg.Close(); return nil })
	default:
		kv, err := filekv.New(cfg.DataDir)
		if err != nil {
			b.Close(log)
			return nil, err
		}
		repo, err := localstore.Open(ctx, kv, log)
		if err != nil {
			b.Close(log)
			return nil, err
		}
		b.Repo = repo
	}
	log.Info().Str("repository", cfg.StoreBackend).Msg("storage ready")
	return b, nil
}
