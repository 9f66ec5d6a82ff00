// Command server runs the review API and the content-analysis worker in one
// process.
//
// @title                       Review Platform API
// @version                     1.0
// @description                 Anonymous reviews of professors and colleges with automated content moderation.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-review-backend/docs"
	"github.com/tbourn/go-review-backend/internal/config"
	"github.com/tbourn/go-review-backend/internal/content"
	httpapi "github.com/tbourn/go-review-backend/internal/http"
	"github.com/tbourn/go-review-backend/internal/notify"
	"github.com/tbourn/go-review-backend/internal/observability"
	"github.com/tbourn/go-review-backend/internal/quota"
	"github.com/tbourn/go-review-backend/internal/repo"
	"github.com/tbourn/go-review-backend/internal/services"
	"github.com/tbourn/go-review-backend/internal/sysutil"
	"github.com/tbourn/go-review-backend/internal/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName, ver)
	zerolog.DefaultContextLogger = &log.Logger
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	dsn := cfg.DB.Path
	if cfg.DB.Driver == "postgres" {
		dsn = cfg.DB.DSN
	}
	db, err := repo.Open(cfg.DB.Driver, dsn)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	analyzer := content.NewDefault()
	if cfg.Moderation.ContentRulesPath != "" {
		rules, err := content.LoadRules(cfg.Moderation.ContentRulesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("content rules")
		}
		analyzer = content.New(rules)
	}

	var limiter quota.Limiter = quota.NewDBLimiter(db)
	if cfg.Redis.Addr != "" {
		rc, err := quota.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, counting quota in the database")
		} else {
			defer rc.Close()
			limiter = quota.NewRedisLimiter(rc)
		}
	}

	coord := &services.Coordinator{
		DB:                db,
		Analyzer:          analyzer,
		Aggregator:        &services.Aggregator{DB: db},
		Notifier:          notify.New(cfg.SMTP),
		SystemModeratorID: cfg.Moderation.SystemModeratorID,
		FailOpen:          cfg.Moderation.AnalyzerFailOpen,
	}
	w := worker.New(db, coord, cfg.Moderation)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Run(ctx)
	}()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Deps{Quota: limiter, Wake: w.Notify}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("db", cfg.DB.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	<-workerDone
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
