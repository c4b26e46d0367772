package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/realtime"
)

// AppContext holds shared dependencies (DB, Redis, realtime gateway, logger).
// RedisCache and Gateway may be nil; services then skip caching and pushes.
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Gateway    *realtime.Gateway
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, gw *realtime.Gateway, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Gateway:    gw,
		Logger:     logger,
	}
}
