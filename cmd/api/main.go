package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/kaos-euy/backend-kaos/internal/adminauth"
	"github.com/kaos-euy/backend-kaos/internal/cart"
	"github.com/kaos-euy/backend-kaos/internal/catalog"
	"github.com/kaos-euy/backend-kaos/internal/checkout"
	"github.com/kaos-euy/backend-kaos/internal/common"
	"github.com/kaos-euy/backend-kaos/internal/config"
	"github.com/kaos-euy/backend-kaos/internal/customreq"
	"github.com/kaos-euy/backend-kaos/internal/events"
	"github.com/kaos-euy/backend-kaos/internal/health"
	"github.com/kaos-euy/backend-kaos/internal/obs"
	"github.com/kaos-euy/backend-kaos/internal/order"
	"github.com/kaos-euy/backend-kaos/internal/ratelimit"
	"github.com/kaos-euy/backend-kaos/internal/security"
	"github.com/kaos-euy/backend-kaos/internal/uploads"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "kaos-api",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.TracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "kaos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if cfg.TracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close asynq client")
		}
	}()

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, nil)
	shopMetrics := obs.NewShopMetrics(cfg.MetricsNamespace, nil)

	publisher := &events.AsynqPublisher{Client: asynqClient, Log: logger, MaxRetry: cfg.NotifyMaxRetry}

	catalogRepo := catalog.NewRepo(pool)
	catalogService := catalog.NewService(catalogRepo, catalog.NewCache(redisClient, cfg.CatalogCacheTTL))
	catalogHandler := catalog.NewHandler(catalogService)

	cartService := &cart.Service{
		Store:    &cart.RedisStore{Client: redisClient, TTL: cfg.CartTTL},
		Products: catalogService,
		Metrics:  shopMetrics,
	}
	cartHandler := cart.NewHandler(cartService)

	orderRepo := order.NewRepo(pool)
	orderHandler := order.NewHandler(orderRepo)
	orderAdmin := &order.AdminHandler{
		Repo:    orderRepo,
		Events:  publisher,
		Metrics: shopMetrics,
		Log:     logger,
	}

	checkoutService := checkout.NewService(orderRepo, catalogService, publisher)
	checkoutService.Metrics = shopMetrics
	checkoutService.Log = logger
	checkoutHandler := checkout.NewHandler(checkoutService)

	customReqRepo := customreq.NewRepo(pool)
	customReqService := &customreq.Service{
		Repo:    customReqRepo,
		Events:  publisher,
		Metrics: shopMetrics,
		Log:     logger,
	}
	customReqHandler := customreq.NewHandler(customReqService)
	customReqAdmin := &customreq.AdminHandler{Repo: customReqRepo, Log: logger}

	uploadHandler := &uploads.Handler{
		Signer: &uploads.Signer{Key: []byte(cfg.UploadSigningKey)},
		Store:  &uploads.FSStore{BaseDir: cfg.UploadBaseDir},
		URLTTL: cfg.UploadURLTTL,
	}

	adminAuthService := &adminauth.Service{
		Redis:          redisClient,
		PasswordHash:   cfg.AdminPasswordHash,
		SessionTTL:     cfg.AdminSessionTTL,
		CookieDomain:   cfg.CookieDomain,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: cfg.CookieSameSite,
	}
	adminAuthHandler := &adminauth.Handler{Service: adminAuthService}

	limiter, err := ratelimit.New(redisClient, shopMetrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{
		Checker:      health.Deps{Pool: pool, Redis: redisClient},
		DBTimeout:    500 * time.Millisecond,
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		// signed upload PUTs carry large bodies and enforce their own
		// size cap, so they stay outside the JSON body limit
		v.Put("/uploads/*", uploadHandler.Put)

		v.Group(func(g chi.Router) {
			g.Use(security.BodyLimit(cfg.MaxBodyBytes))

			g.Get("/products", catalogHandler.Products)
			g.Get("/products/{slug}", catalogHandler.ProductDetail)

			g.Route("/carts", cartHandler.Routes)

			g.With(
				limiter.Middleware("orders", int64(cfg.OrderRateLimit), cfg.RateLimitWindow),
				idem.Middleware,
			).Post("/orders", checkoutHandler.Create)
			g.Get("/orders/{orderNumber}", orderHandler.Lookup)

			g.With(
				limiter.Middleware("custom-requests", int64(cfg.CustomReqRateLimit), cfg.RateLimitWindow),
				idem.Middleware,
			).Post("/custom-requests", customReqHandler.Create)

			g.With(limiter.Middleware("presign", int64(cfg.PresignRateLimit), cfg.RateLimitWindow)).
				Post("/uploads/presign", uploadHandler.Presign)

			g.Route("/admin", func(admin chi.Router) {
				admin.With(limiter.Middleware("admin-login", int64(cfg.AdminLoginRateLimit), cfg.RateLimitWindow)).
					Post("/login", adminAuthHandler.Login)
				admin.Post("/logout", adminAuthHandler.Logout)

				admin.Group(func(protected chi.Router) {
					protected.Use(adminAuthHandler.RequireAdmin)
					protected.Route("/orders", orderAdmin.Routes)
					protected.Route("/custom-requests", customReqAdmin.Routes)
				})
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		logger.Info().Msg("server stopped")
	}
}

func runMigrations(databaseURL, dir string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
