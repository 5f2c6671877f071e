package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hayeon-dev/ai-gallery/api/core"
	"github.com/hayeon-dev/ai-gallery/cache"
	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database"
	accountsrepo "github.com/hayeon-dev/ai-gallery/database/repo/accounts"
	creditsrepo "github.com/hayeon-dev/ai-gallery/database/repo/credits"
	galleryrepo "github.com/hayeon-dev/ai-gallery/database/repo/gallery"
	jobsrepo "github.com/hayeon-dev/ai-gallery/database/repo/jobs"
	socialrepo "github.com/hayeon-dev/ai-gallery/database/repo/social"
	svcaccounts "github.com/hayeon-dev/ai-gallery/internal/accounts"
	svcauth "github.com/hayeon-dev/ai-gallery/internal/auth"
	svcconversion "github.com/hayeon-dev/ai-gallery/internal/conversion"
	"github.com/hayeon-dev/ai-gallery/internal/conversion/transform"
	svccredits "github.com/hayeon-dev/ai-gallery/internal/credits"
	svcgallery "github.com/hayeon-dev/ai-gallery/internal/gallery"
	"github.com/hayeon-dev/ai-gallery/internal/logger"
	svcsocial "github.com/hayeon-dev/ai-gallery/internal/social"
	"github.com/hayeon-dev/ai-gallery/storage"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	zapLogger, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		zap.L().Fatal("failed to create data directory", zap.Error(err))
	}

	db, err := database.NewDB(cfg)
	if err != nil {
		zap.L().Fatal("failed to initialize database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		zap.L().Fatal("failed to auto migrate database", zap.Error(err))
	}

	storageFactory, err := storage.NewFactory(cfg)
	if err != nil {
		zap.L().Fatal("failed to initialize storage", zap.Error(err))
	}

	cacheProvider, err := cache.NewProvider(cfg)
	if err != nil {
		zap.L().Fatal("failed to initialize cache", zap.Error(err))
	}

	jwtService, err := svcauth.NewJWTService(cfg)
	if err != nil {
		zap.L().Fatal("failed to initialize token service", zap.Error(err))
	}

	transformProvider, err := transform.New(context.Background(), cfg)
	if err != nil {
		zap.L().Fatal("failed to initialize transform provider", zap.Error(err))
	}

	accountsRepo := accountsrepo.NewRepository(db)
	creditsRepo := creditsrepo.NewRepository(db)
	galleryRepo := galleryrepo.NewRepository(db)
	socialRepo := socialrepo.NewRepository(db)
	jobsRepo := jobsrepo.NewRepository(db)

	creditsService := svccredits.NewService(db, creditsRepo)
	accountsService := svcaccounts.NewService(db, accountsRepo, creditsService, cfg)
	loginService := svcauth.NewLoginService(accountsRepo, jwtService, cacheProvider)
	socialService := svcsocial.NewService(db, socialRepo, accountsRepo)
	galleryService := svcgallery.NewService(galleryRepo, socialRepo, storageFactory, cacheProvider, cfg)
	conversionService := svcconversion.NewService(db, jobsRepo, creditsService, storageFactory, transformProvider, cfg)

	dispatcher := svcconversion.NewDispatcher(jobsRepo, conversionService, cfg)
	dispatcher.Start()

	deps := &core.Dependencies{
		DB:             db,
		StorageFactory: storageFactory,
		CacheProvider:  cacheProvider,
		JWTService:     jwtService,
		LoginService:   loginService,
		Accounts:       accountsService,
		Credits:        creditsService,
		Social:         socialService,
		Gallery:        galleryService,
		Conversion:     conversionService,
	}

	server, cleanup := core.StartServer(deps)
	go func() {
		zap.L().Info("server started", zap.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zap.L().Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
	}

	// stop taking new jobs and drain in-flight conversions
	dispatcher.Stop()

	if cleanup != nil {
		cleanup()
	}
	if err := cacheProvider.Close(); err != nil {
		zap.L().Error("error closing cache", zap.Error(err))
	}

	zap.L().Info("server exited")
}
