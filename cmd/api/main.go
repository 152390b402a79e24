package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/souq-labs/backend-souq/internal/auth"
	"github.com/souq-labs/backend-souq/internal/cart"
	"github.com/souq-labs/backend-souq/internal/catalog"
	"github.com/souq-labs/backend-souq/internal/checkout"
	"github.com/souq-labs/backend-souq/internal/config"
	"github.com/souq-labs/backend-souq/internal/events"
	"github.com/souq-labs/backend-souq/internal/health"
	"github.com/souq-labs/backend-souq/internal/notify"
	"github.com/souq-labs/backend-souq/internal/obs"
	"github.com/souq-labs/backend-souq/internal/order"
	"github.com/souq-labs/backend-souq/internal/ratelimit"
	"github.com/souq-labs/backend-souq/internal/repo"
	"github.com/souq-labs/backend-souq/internal/supplier"
	"github.com/souq-labs/backend-souq/internal/tenant"
	"github.com/souq-labs/backend-souq/internal/workflow"
	"github.com/souq-labs/backend-souq/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics("souq", nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   "souq-api",
		Endpoint:      cfg.OTELEndpoint,
		SamplingRatio: cfg.OTELSamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	if err := runMigrations(cfg); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "souq-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	store := repo.NewStore(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	asynqClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task queue client")
		}
	}()

	bus := &events.Bus{Store: store}
	bus.Subscribe(events.TopicSupplierDeactivated, supplier.DeactivationCascade(store, logger))

	enqueuer := &notify.Enqueuer{Client: asynqClient, MaxRetry: cfg.NotifyMaxRetry, Logger: logger}

	authMiddleware := auth.Middleware{Service: auth.NewService(cfg.JWTSecret, "souq")}

	catalogSvc := &catalog.Service{Q: store}
	catalogHandler := catalog.NewHandler(catalogSvc, store, logger)

	cartSvc := &cart.Service{Q: store, Offers: catalogSvc}
	cartHandler := cart.NewHandler(cartSvc, store, logger)

	checkoutSvc := &checkout.Service{
		RunTx: func(ctx context.Context, fn func(checkout.Queries) error) error {
			return repo.InTx(ctx, pool, func(s *repo.Store) error { return fn(s) })
		},
		Bus:          bus,
		Notify:       enqueuer,
		SupportPhone: cfg.SupportPhone,
		Logger:       logger,
	}
	checkoutHandler := checkout.NewHandler(checkoutSvc, store, logger)

	orderSvc := &order.Service{Q: store}
	orderHandler := &order.Handler{Service: orderSvc, Logger: logger}
	engine := &workflow.Engine{Q: store}
	merchantHandler := order.NewMerchantHandler(orderSvc, engine, store, bus, enqueuer, logger)

	supplierSvc := &supplier.Service{Q: store, Bus: bus, Logger: logger}
	supplierHandler := &supplier.Handler{Service: supplierSvc, Logger: logger}

	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "souq:rl:"},
		Config: ratelimit.Config{
			Key:    ratelimit.StoreScopedKey,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter degraded")
		},
	}

	resolver := tenant.NewResolver(cfg.StoreHeader, cfg.RootDomain, cfg.DefaultStore)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cfg.StoreHeader},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(resolver.Middleware)
	r.Use(authMiddleware.Authenticate)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(limiter.Middleware)

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := &health.Handler{DB: pool, Redis: redisClient, Logger: logger}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/store", supplierHandler.Profile)
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{productID}", catalogHandler.ProductDetail)

		v.Route("/cart", func(c chi.Router) {
			c.Use(authMiddleware.RequireAuth)
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Post("/items", cartHandler.AddItem)
			c.Post("/items/{itemID}/increment", cartHandler.IncrementItem)
			c.Post("/items/{itemID}/decrement", cartHandler.DecrementItem)
			c.Delete("/items/{itemID}", cartHandler.RemoveItem)
		})

		v.With(authMiddleware.RequireAuth).Post("/checkout", checkoutHandler.Checkout)

		v.Group(func(authed chi.Router) {
			authed.Use(authMiddleware.RequireAuth)
			authed.Get("/orders", orderHandler.List)
			authed.Get("/orders/{orderID}", orderHandler.Detail)
		})

		v.Route("/merchant", func(m chi.Router) {
			m.Use(authMiddleware.RequireRole(auth.RoleMerchant, auth.RoleAdmin))
			m.Post("/offers", catalogHandler.CreateOffer)
			m.Patch("/offers/{offerID}", catalogHandler.UpdateOffer)
			m.Get("/workflow", merchantHandler.Steps)
			m.Get("/orders", merchantHandler.List)
			m.Get("/orders/{orderID}", merchantHandler.Detail)
			m.Post("/orders/{orderID}/payments", merchantHandler.RecordPayment)
			m.Post("/orders/{orderID}/advance", merchantHandler.Advance)
			m.With(authMiddleware.RequireRole(auth.RoleAdmin)).
				Post("/orders/{orderID}/status", merchantHandler.OverrideStatus)
		})

		v.Route("/admin/suppliers/{id}", func(a chi.Router) {
			a.Use(authMiddleware.RequireRole(auth.RoleAdmin))
			a.Post("/deactivate", supplierHandler.Deactivate)
			a.Post("/activate", supplierHandler.Activate)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func runMigrations(cfg *config.Config) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
