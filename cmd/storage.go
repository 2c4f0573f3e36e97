package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kevinaaaquil/lexireader/config"
	"github.com/kevinaaaquil/lexireader/store"
)

// stores are the backends shared by serve and migrate.
type stores struct {
	db    *store.DB
	kv    store.KeyValue
	redis *store.RedisKV
}

// openStores connects to MongoDB and, when REDIS_ADDR is set, to Redis. The
// key-value data lives in Redis if it is configured and in MongoDB otherwise.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("mongodb: %w", err)
	}
	s := &stores{db: db, kv: db.KeyValue()}
	if cfg.RedisAddr != "" {
		rkv, err := store.NewRedisKV(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			_ = db.Disconnect(context.Background())
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.redis, s.kv = rkv, rkv
		log.Info("key-value store", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		log.Info("key-value store", "backend", "mongodb")
	}
	return s, nil
}

func (s *stores) Close(log *slog.Logger) {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn("redis close", "error", err)
		}
	}
	if err := s.db.Disconnect(context.Background()); err != nil {
		log.Warn("mongodb disconnect", "error", err)
	}
}
