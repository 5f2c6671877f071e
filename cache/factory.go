package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hayeon-dev/ai-gallery/config"
)

// NewProvider builds the cache provider selected by the configuration.
// A Redis connection failure falls back to the in-process cache rather
// than aborting startup.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "redis":
		provider, err := NewRedis(cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
		if err != nil {
			zap.L().Warn("redis cache unavailable, falling back to memory cache", zap.Error(err))
			return NewMemory(DefaultMemoryConfig(cfg.CacheMaxImageMB))
		}
		zap.L().Info("cache provider initialized", zap.String("type", "redis"))
		return provider, nil
	case "memory", "":
		provider, err := NewMemory(DefaultMemoryConfig(cfg.CacheMaxImageMB))
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		zap.L().Info("cache provider initialized", zap.String("type", "memory"))
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.CacheType)
	}
}

// ImageKey builds the cache key for an image blob.
func ImageKey(identifier string) string {
	return "image:blob:" + identifier
}

// RefreshTokenKey builds the cache key a refresh token is stored under.
func RefreshTokenKey(token string) string {
	return "auth:refresh:" + token
}
