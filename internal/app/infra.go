package app

import (
	"context"
	"fmt"
	"time"

	"xfeed/internal/config"
	"xfeed/internal/db"
	"xfeed/internal/logger"
	"xfeed/internal/redis"
	"xfeed/internal/session"
)

// how often expired rows are purged from the postgres session table
const sessionCleanupInterval = 15 * time.Minute

type Infra struct {
	Sessions session.Store
	DB       *db.DB
	Redis    *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	switch cfg.SessionBackend {
	case config.SessionMemory:
		logger.Warn("using in-memory session store; sessions are lost on restart", nil)
		return &Infra{Sessions: session.NewMemoryStore()}, nil

	case config.SessionRedis:
		redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})
		return &Infra{
			Sessions: session.NewRedisStore(redisClient.Client),
			Redis:    redisClient,
		}, nil

	case config.SessionPostgres:
		database, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("database ready", nil)
		return &Infra{
			Sessions: session.NewPostgresStore(database.DB),
			DB:       database,
		}, nil
	}

	return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
}

// runJanitor purges expired postgres sessions until ctx ends. Redis and the
// memory store expire entries on their own.
func (i *Infra) runJanitor(ctx context.Context) {
	store, ok := i.Sessions.(*session.PostgresStore)
	if !ok {
		return
	}

	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if err != nil {
				logger.Error("session cleanup failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				logger.Info("expired sessions removed", map[string]any{"count": n})
			}
		}
	}
}

func (i *Infra) Close() error {
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			return err
		}
	}
	if i.Redis != nil {
		return i.Redis.Close()
	}
	return nil
}
