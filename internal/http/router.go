// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/config"
	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/http/handlers"
	"github.com/tbourn/go-review-backend/internal/http/middleware"
	"github.com/tbourn/go-review-backend/internal/quota"
	"github.com/tbourn/go-review-backend/internal/repo"
	"github.com/tbourn/go-review-backend/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// kindRoutes maps each subject kind to its URL segments.
var kindRoutes = []struct {
	kind     domain.SubjectKind
	subjects string // public catalogue
	reviews  string // author-facing reviews
	mod      string // prefix of the moderation endpoints
}{
	{domain.KindProfessor, "/professors", "/reviews", ""},
	{domain.KindCollege, "/colleges", "/college-reviews", "college-"},
}

// Deps are the runtime collaborators RegisterRoutes cannot build from the
// database alone.
type Deps struct {
	// Quota limits daily submissions; nil disables the limit.
	Quota quota.Limiter
	// Wake nudges the analysis worker after a job is queued. May be nil.
	Wake func()
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Authenticate: resolve the caller (optional at this stage)
//  8. Security headers (no-store needs the caller)
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//  11. CORS and gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	handlers.RegisterValidators()

	authOpts := middleware.AuthOptions{
		Secret:         []byte(cfg.Auth.JWTSecret),
		DevHeader:      cfg.Auth.DevHeader,
		ModeratorRoles: cfg.Auth.ModeratorRoles,
		AdminEmails:    cfg.Auth.AdminEmails,
	}
	apiBase := strings.TrimRight(cfg.APIBasePath, "/")

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Identity
	r.Use(middleware.Authenticate(authOpts))

	// 8) Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:           cfg.Security.EnableHSTS,
		HSTSMaxAge:           cfg.Security.HSTSMaxAge,
		NoStoreAuthenticated: true,
		EnablePolicy:         true,
	}))

	// 9) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  createScope(apiBase),
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return rec != nil, err
		},
	))

	// 10) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured) and compression
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", healthHandler(db))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	reviewSvc := services.NewReviewService(db, deps.Quota, cfg.Moderation.MaxReviewsPerDay)
	if cfg.IdempotencyTTL > 0 {
		reviewSvc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	reviewSvc.Wake = deps.Wake
	modSvc := &services.ModerationService{DB: db, Aggregator: reviewSvc.Aggregator}
	h := handlers.New(reviewSvc, &services.FlagService{DB: db}, services.NewSubjectService(db), modSvc)

	api := groupWithPrefix(r, apiBase)
	{
		// Public catalogue
		api.GET("/professors", h.ListProfessors)
		api.GET("/professors/:id", h.GetProfessor)
		api.GET("/colleges", h.ListColleges)
		api.GET("/colleges/:id", h.GetCollege)

		for _, k := range kindRoutes {
			api.GET(k.subjects+"/:id/reviews", handlers.WithKind(k.kind), h.ListSubjectReviews)

			// Reviews (signed-in users)
			rv := api.Group(k.reviews, handlers.WithKind(k.kind), middleware.RequireUser())
			rv.POST("", h.CreateReview)
			rv.GET("/mine", h.MyReviews)
			rv.GET("/:id", h.GetReview)
			rv.PUT("/:id", h.UpdateReview)
			rv.DELETE("/:id", h.DeleteReview)
			rv.POST("/:id/flag", h.FlagReview)
			rv.POST("/:id/vote", h.VoteReview)
		}

		// Moderation
		mod := api.Group("/moderation", middleware.RequireModerator(authOpts))
		mod.POST("/professors", h.CreateProfessor)
		mod.POST("/colleges", h.CreateCollege)
		mod.GET("/logs", h.ModerationLogs)
		for _, k := range kindRoutes {
			kg := mod.Group("", handlers.WithKind(k.kind))
			kg.GET("/"+k.mod+"flags", h.ListFlags)
			kg.POST("/"+k.mod+"flags/:id/resolve", h.ResolveFlag)
			kg.GET("/"+k.mod+"stats", h.ModerationStats)
			kg.GET("/"+k.mod+"reviews", h.ListReviewsByStatus)
			kg.POST("/"+k.mod+"reviews/:id/action", h.ReviewAction)
		}
	}
}

// createScope names the idempotent operation of a request: review creation
// per kind. Everything else has no scope and is never replayed.
func createScope(apiBase string) func(*gin.Context) string {
	scopes := make(map[string]string, len(kindRoutes))
	for _, k := range kindRoutes {
		scopes[apiBase+k.reviews] = "review:create:" + string(k.kind)
	}
	return func(c *gin.Context) string {
		if c.Request.Method != http.MethodPost {
			return ""
		}
		return scopes[c.FullPath()]
	}
}

// corsMiddleware returns the CORS handler for the configured origins. With no
// origins every origin is allowed without credentials.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match",
		},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// healthHandler reports liveness and whether the database answers a ping.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
