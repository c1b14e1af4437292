package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/verisafe/humancheck/docs"
	"github.com/verisafe/humancheck/internal/check"
	"github.com/verisafe/humancheck/internal/common/handler"
	"github.com/verisafe/humancheck/internal/common/middleware"
	"github.com/verisafe/humancheck/internal/config"
	"github.com/verisafe/humancheck/internal/metrics"
	"github.com/verisafe/humancheck/pkg/audit"
	pkgdb "github.com/verisafe/humancheck/pkg/db"
	"github.com/verisafe/humancheck/pkg/decision"
	"github.com/verisafe/humancheck/pkg/nonce"
	"github.com/verisafe/humancheck/pkg/passrate"
	pkgredis "github.com/verisafe/humancheck/pkg/redis"
	"github.com/verisafe/humancheck/pkg/risk"
)

// @title Smart Human Check API
// @version 1.0
// @description Adaptive human-verification engine: challenge nonces, proof token verification, pass-rate statistics

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting server",
		zap.String("environment", cfg.Server.Environment),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("audit_backend", cfg.Audit.Backend),
	)

	rdb := pkgredis.New(pkgredis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := testConnections(rdb); err != nil {
		logger.Fatal("failed to test connections", zap.Error(err))
	}

	store, err := initStore(cfg, rdb, logger)
	if err != nil {
		logger.Fatal("failed to initialize nonce store", zap.Error(err))
	}

	db, recorder, err := initAudit(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize audit backend", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	tracker := passrate.New(cfg.Check.RateWindow, cfg.Check.RateShards)
	scorer := risk.NewScorer(risk.Config{
		RequiredPowBits: cfg.Check.PowBits,
		MinSolveMS:      cfg.Check.MinSolveMS,
		MaxSolveMS:      cfg.Check.MaxSolveMS,
	})
	engine := decision.NewEngine(decision.Config{
		ThresholdBase:   cfg.Check.ThresholdBase,
		ChallengeMargin: cfg.Check.ChallengeMargin,
		MaxRaise:        cfg.Check.MaxRaise,
		MaxLower:        cfg.Check.MaxLower,
		HighWatermark:   cfg.Check.HighWatermark,
		LowWatermark:    cfg.Check.LowWatermark,
	})

	service := check.NewService(store, tracker, scorer, engine, recorder, logger)

	// Background expiry sweep
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	sweeper := nonce.NewSweeper(store, cfg.Store.SweepInterval, logger)
	go sweeper.Start(bgCtx)

	router := setupRouter(cfg, logger, rdb, db, service)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("server started",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("swagger", fmt.Sprintf("http://localhost:%d/swagger/index.html", cfg.Server.Port)),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENVIRONMENT")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// initStore selects the nonce store backing. Memory is the single-instance
// default; Redis shares nonce state across horizontally scaled instances.
func initStore(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (nonce.Store, error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case "memory":
		return nonce.NewMemoryStore(cfg.Store.NonceTTL, cfg.Store.NonceGrace, logger), nil
	case "redis":
		return nonce.NewRedisStore(rdb, cfg.Store.NonceTTL, cfg.Store.NonceGrace, logger), nil
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q (memory|redis)", cfg.Store.Backend)
	}
}

// initAudit selects the audit trail backend. The returned *sql.DB is nil
// unless the MySQL backend is configured.
func initAudit(cfg *config.Config, logger *zap.Logger) (*sql.DB, audit.Recorder, error) {
	switch strings.ToLower(cfg.Audit.Backend) {
	case "log":
		return nil, audit.NewLogRecorder(logger), nil
	case "mysql":
		db, err := pkgdb.New(pkgdb.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Name:            cfg.Database.Name,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pkgdb.Ping(ctx, db); err != nil {
			return nil, nil, err
		}

		recorder := audit.NewMySQLRecorder(db, logger)
		if err := recorder.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		return db, recorder, nil
	default:
		return nil, nil, fmt.Errorf("invalid AUDIT_BACKEND %q (log|mysql)", cfg.Audit.Backend)
	}
}

func testConnections(rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return pkgredis.Ping(ctx, rdb)
}

func setupRouter(cfg *config.Config, logger *zap.Logger, rdb *redis.Client, db *sql.DB, service *check.Service) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())

	// Swagger
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.Server.Port)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Operational endpoints
	healthHandler := handler.NewHealthHandler(rdb, db)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", metrics.Handler())

	// Nonce issuance throttle, shared across instances via Redis
	issueLimiter := middleware.RateLimitByIP(rdb, middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Check.IssuePerMinute,
		Window:            time.Minute,
	}, logger)

	checkHandler := check.NewHandler(service)

	v1 := router.Group("/api/v1")
	{
		checkHandler.RegisterRoutes(v1, issueLimiter)
	}

	return router
}
