package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/neurasense/config"
	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/api/handlers"
	"github.com/yoockh/neurasense/internal/api/middleware"
	"github.com/yoockh/neurasense/internal/api/routes"
	"github.com/yoockh/neurasense/internal/cache"
	"github.com/yoockh/neurasense/internal/logger"
	"github.com/yoockh/neurasense/internal/metrics"
	"github.com/yoockh/neurasense/internal/repositories/memory"
	mongorepo "github.com/yoockh/neurasense/internal/repositories/mongo"
	pgrepo "github.com/yoockh/neurasense/internal/repositories/postgres"
	"github.com/yoockh/neurasense/internal/services"
	"github.com/yoockh/neurasense/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init(log)

	store, err := presetStore(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("preset store init error")
	}
	pc := presetCache(log)

	presets := services.NewPresetService(store, pc, cfg.PresetCacheTTL, cfg.Analysis, log)
	if _, err := presets.Resolve(ctx, ""); err != nil {
		log.WithError(err).WithField("preset", cfg.Analysis.Preset).Fatal("default preset is not usable")
	}
	sessions := services.NewSessionService(presets)

	pool := &workers.AnalysisWorkerPool{
		NumWorkers: cfg.Workers.Count,
		QueueSize:  cfg.Workers.QueueSize,
		Logger:     log,
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("worker pool start error")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Health:  handlers.NewHealthHandler(sessions, pool),
		Presets: handlers.NewPresetHandler(presets),
		WS:      handlers.NewWSHandler(sessions, pool, log),
		Metrics: metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"preset":      cfg.Analysis.Preset,
			"buffer_size": cfg.Analysis.BufferSize,
			"sample_rate": cfg.Analysis.SampleRate,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	pool.Stop()
	closeBackends(shutdownCtx, log)
}

// presetStore picks postgres, then mongo, then the in-memory store, and
// seeds it with the built-in presets.
func presetStore(ctx context.Context, log *logrus.Logger) (services.PresetStore, error) {
	builtins := analysis.BuiltinPresets()

	switch err := config.InitPostgres(); {
	case err == nil:
		if err := pgrepo.Migrate(config.PostgresDB); err != nil {
			return nil, err
		}
		repo := pgrepo.NewPresetRepo(config.PostgresDB)
		if err := repo.Seed(ctx, builtins); err != nil {
			return nil, err
		}
		log.Info("PostgreSQL connected, presets stored in postgres")
		return repo, nil
	case !errors.Is(err, config.ErrNotConfigured):
		return nil, err
	}

	switch err := config.InitMongo(); {
	case err == nil:
		if err := config.EnsureMongoIndexes(); err != nil {
			return nil, err
		}
		repo := mongorepo.NewPresetRepo(config.MongoClient.Database(config.MongoDBName()), config.PresetCollection)
		if err := repo.Seed(ctx, builtins); err != nil {
			return nil, err
		}
		log.Info("MongoDB connected, presets stored in mongo")
		return repo, nil
	case !errors.Is(err, config.ErrNotConfigured):
		return nil, err
	}

	log.Info("no preset database configured, using built-in presets")
	return memory.NewPresetRepo(builtins...), nil
}

func presetCache(log *logrus.Logger) cache.Cache {
	if err := config.InitRedis(); err != nil {
		if !errors.Is(err, config.ErrNotConfigured) {
			log.WithError(err).Warn("Redis unavailable, using in-memory preset cache")
		}
		return cache.NewMemoryCache()
	}
	log.Info("Redis connected")
	return cache.NewRedisCache(config.RedisClient, "neurasense:")
}

func closeBackends(ctx context.Context, log *logrus.Logger) {
	if config.RedisClient != nil {
		if err := config.RedisClient.Close(); err != nil {
			log.WithError(err).Warn("redis close")
		}
	}
	if config.MongoClient != nil {
		if err := config.MongoClient.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("mongo disconnect")
		}
	}
	if config.PostgresDB != nil {
		if sqlDB, err := config.PostgresDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
