package core

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/cache"
	"github.com/hayeon-dev/ai-gallery/storage"
)

func healthHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{
			"database": checkDatabaseHealth(deps.DB),
			"cache":    checkCacheHealth(deps.CacheProvider),
			"storage":  checkStorageHealth(c, deps.StorageFactory),
		}

		status := http.StatusOK
		overall := "ok"
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
				overall = "degraded"
				break
			}
		}

		c.JSON(status, gin.H{
			"status": overall,
			"uptime": time.Since(startTime).Round(time.Second).String(),
			"checks": checks,
		})
	}
}

func checkDatabaseHealth(db *gorm.DB) string {
	if db == nil {
		return "not initialized"
	}
	sqlDB, err := db.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	if err := sqlDB.Ping(); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	return "ok"
}

func checkStorageHealth(c *gin.Context, factory *storage.Factory) string {
	if factory == nil {
		return "not initialized"
	}

	provider := factory.Default()
	if provider == nil {
		return "error: no default storage provider"
	}
	if err := provider.Health(c.Request.Context()); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
