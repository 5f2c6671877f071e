package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/api/common"
	handlerAuth "github.com/hayeon-dev/ai-gallery/api/handler/auth"
	handlerConversions "github.com/hayeon-dev/ai-gallery/api/handler/conversions"
	handlerFriends "github.com/hayeon-dev/ai-gallery/api/handler/friends"
	handlerImages "github.com/hayeon-dev/ai-gallery/api/handler/images"
	handlerUsers "github.com/hayeon-dev/ai-gallery/api/handler/users"
	"github.com/hayeon-dev/ai-gallery/api/middleware"
	"github.com/hayeon-dev/ai-gallery/cache"
	"github.com/hayeon-dev/ai-gallery/config"
	svcaccounts "github.com/hayeon-dev/ai-gallery/internal/accounts"
	svcauth "github.com/hayeon-dev/ai-gallery/internal/auth"
	svcconversion "github.com/hayeon-dev/ai-gallery/internal/conversion"
	svccredits "github.com/hayeon-dev/ai-gallery/internal/credits"
	svcgallery "github.com/hayeon-dev/ai-gallery/internal/gallery"
	svcsocial "github.com/hayeon-dev/ai-gallery/internal/social"
	"github.com/hayeon-dev/ai-gallery/storage"
)

var startTime = time.Now()

// Dependencies are the initialized services the router needs.
type Dependencies struct {
	DB             *gorm.DB
	StorageFactory *storage.Factory
	CacheProvider  cache.Provider
	JWTService     *svcauth.JWTService
	LoginService   *svcauth.LoginService
	Accounts       *svcaccounts.Service
	Credits        *svccredits.Service
	Social         *svcsocial.Service
	Gallery        *svcgallery.Service
	Conversion     *svcconversion.Service
}

func setupRouter(deps *Dependencies) (*gin.Engine, func()) {
	cfg := config.Get()
	router := gin.New()

	// gin request logging only in development builds
	if config.CommitHash == "n/a" {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)
	router.MaxMultipartMemory = int64(cfg.UploadMaxSizeMB) << 20

	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAPIRPS, cfg.RateLimitAPIBurst, cfg.RateLimitExpireTime)
	imageRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitImageRPS, cfg.RateLimitImageBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
		imageRateLimiter.StopCleanup()
	}

	router.GET("/health", healthHandler(deps))
	router.GET("/version", func(c *gin.Context) {
		common.RespondSuccess(c, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authHandler := handlerAuth.NewHandler(deps.Accounts, deps.LoginService)
	usersHandler := handlerUsers.NewHandler(deps.Accounts, deps.Credits)
	friendsHandler := handlerFriends.NewHandler(deps.Social)
	imagesHandler := handlerImages.NewHandler(deps.Gallery, cfg)
	conversionsHandler := handlerConversions.NewHandler(deps.Conversion, deps.Credits, cfg)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	})

	authGroup := apiGroup.Group("/auth")
	authGroup.Use(authRateLimiter.Middleware())
	{
		authGroup.POST("/register", authHandler.Register) // POST /api/auth/register
		authGroup.POST("/login", authHandler.Login)       // POST /api/auth/login
		authGroup.POST("/refresh", authHandler.Refresh)   // POST /api/auth/refresh
		authGroup.POST("/logout", authHandler.Logout)     // POST /api/auth/logout
	}

	v1 := apiGroup.Group("/v1")
	v1.Use(apiRateLimiter.Middleware())
	v1.Use(middleware.JWTAuth(deps.JWTService))
	{
		usersGroup := v1.Group("/users")
		{
			usersGroup.GET("/me", usersHandler.Me)                         // GET /api/v1/users/me
			usersGroup.PATCH("/me", usersHandler.UpdateMe)                 // PATCH /api/v1/users/me
			usersGroup.DELETE("/me", usersHandler.DeactivateMe)            // DELETE /api/v1/users/me
			usersGroup.GET("/search", usersHandler.Search)                 // GET /api/v1/users/search?q=
			usersGroup.GET("/me/credits", usersHandler.CreditBalance)      // GET /api/v1/users/me/credits
			usersGroup.GET("/me/credits/history", usersHandler.CreditHistory) // GET /api/v1/users/me/credits/history
			usersGroup.POST("/me/credits/topup", usersHandler.TopUp)          // POST /api/v1/users/me/credits/topup
			usersGroup.GET("/:id/images", imagesHandler.ListByUser)        // GET /api/v1/users/{id}/images
		}

		friendsGroup := v1.Group("/friends")
		{
			friendsGroup.GET("", friendsHandler.ListFriends)                 // GET /api/v1/friends
			friendsGroup.POST("/requests", friendsHandler.SendRequest)       // POST /api/v1/friends/requests
			friendsGroup.GET("/requests/incoming", friendsHandler.ListIncoming) // GET /api/v1/friends/requests/incoming
			friendsGroup.GET("/requests/outgoing", friendsHandler.ListOutgoing) // GET /api/v1/friends/requests/outgoing
			friendsGroup.POST("/requests/:id/accept", friendsHandler.Accept) // POST /api/v1/friends/requests/{id}/accept
			friendsGroup.POST("/requests/:id/reject", friendsHandler.Reject) // POST /api/v1/friends/requests/{id}/reject
		}

		imagesGroup := v1.Group("/images")
		{
			imagesGroup.POST("/upload", imagesHandler.Upload)                  // POST /api/v1/images/upload
			imagesGroup.GET("", imagesHandler.Feed)                            // GET /api/v1/images
			imagesGroup.GET("/friends", imagesHandler.FriendFeed)              // GET /api/v1/images/friends
			imagesGroup.GET("/:id", imagesHandler.Get)                         // GET /api/v1/images/{id}
			imagesGroup.DELETE("/:id", imagesHandler.Delete)                   // DELETE /api/v1/images/{id}
			imagesGroup.PATCH("/:id/visibility", imagesHandler.UpdateVisibility) // PATCH /api/v1/images/{id}/visibility

			imagesGroup.POST("/:id/comments", imagesHandler.AddComment)                  // POST /api/v1/images/{id}/comments
			imagesGroup.GET("/:id/comments", imagesHandler.ListComments)                 // GET /api/v1/images/{id}/comments
			imagesGroup.DELETE("/:id/comments/:commentId", imagesHandler.DeleteComment)  // DELETE /api/v1/images/{id}/comments/{commentId}

			imagesGroup.POST("/:id/like", imagesHandler.Like)       // POST /api/v1/images/{id}/like
			imagesGroup.DELETE("/:id/like", imagesHandler.Unlike)   // DELETE /api/v1/images/{id}/like
			imagesGroup.GET("/:id/likes", imagesHandler.CountLikes) // GET /api/v1/images/{id}/likes
		}

		conversionsGroup := v1.Group("/conversions")
		{
			conversionsGroup.POST("", conversionsHandler.Submit)                // POST /api/v1/conversions
			conversionsGroup.GET("", conversionsHandler.List)                   // GET /api/v1/conversions
			conversionsGroup.GET("/:id", conversionsHandler.Get)                // GET /api/v1/conversions/{id}
			conversionsGroup.POST("/:id/resubmit", conversionsHandler.Resubmit) // POST /api/v1/conversions/{id}/resubmit
			conversionsGroup.DELETE("/:id", conversionsHandler.Delete)          // DELETE /api/v1/conversions/{id}
			conversionsGroup.GET("/:id/result", conversionsHandler.Result)      // GET /api/v1/conversions/{id}/result
		}

		// blob route, rate limited separately from the JSON API
		blobGroup := v1.Group("/i")
		blobGroup.Use(imageRateLimiter.Middleware())
		{
			blobGroup.GET("/:identifier", imagesHandler.GetData) // GET /api/v1/i/{identifier}
		}
	}

	return router, cleanup
}

// StartServer builds the configured http.Server. The returned cleanup stops
// the rate limiter janitors.
func StartServer(deps *Dependencies) (*http.Server, func()) {
	cfg := config.Get()
	router, cleanup := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, cleanup
}
