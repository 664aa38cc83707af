package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-supplier/internal/auth"
	"github.com/noah-isme/backend-supplier/internal/catalog"
	"github.com/noah-isme/backend-supplier/internal/chat"
	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/company"
	"github.com/noah-isme/backend-supplier/internal/config"
	"github.com/noah-isme/backend-supplier/internal/customer"
	"github.com/noah-isme/backend-supplier/internal/db"
	"github.com/noah-isme/backend-supplier/internal/events"
	"github.com/noah-isme/backend-supplier/internal/health"
	"github.com/noah-isme/backend-supplier/internal/obs"
	"github.com/noah-isme/backend-supplier/internal/order"
	"github.com/noah-isme/backend-supplier/internal/ratelimit"
	"github.com/noah-isme/backend-supplier/internal/security"
	"github.com/noah-isme/backend-supplier/internal/team"
	"github.com/noah-isme/backend-supplier/internal/uploads"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "supplier")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "supplier-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
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

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "supplier-api"

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
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	notifiers := []events.Notifier{events.LogNotifier{Log: logger}}
	if cfg.EventNotifyEmail != "" {
		// TODO: swap NopEmailSender for an SMTP sender once credentials
		// are provisioned for the ops mailbox.
		notifiers = append(notifiers, events.EmailNotifier{
			Sender: common.NopEmailSender{},
			From:   cfg.InviteEmailFrom,
			To:     cfg.EventNotifyEmail,
		})
	}
	bus := events.NewBus(events.NewPGStore(pool), notifiers...)

	authStore := auth.NewPGStore(pool)
	authService := auth.NewService(
		authStore, []byte(cfg.JWTSecret), "supplier-api",
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	authHandler := auth.NewHandler(authService, cfg.AppEnv == "production")
	validator := auth.TokenValidator{Secret: []byte(cfg.JWTSecret), Issuer: "supplier-api", ClockSkew: 30 * time.Second}
	requireAuth := auth.RequireAuth(validator)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go auth.Janitor{Store: authStore, Interval: cfg.SessionSweepInterval, Log: logger}.Run(janitorCtx)

	customerSvc := customer.NewService(customer.NewPGStore(pool), bus, logger)
	customerHandler := customer.NewHandler(customerSvc)

	orderSvc := order.NewService(
		order.NewPGStore(pool), bus, logger,
		cfg.DefaultDiscountPercent, cfg.DefaultTaxPercent, cfg.DueDateOffset,
	)
	orderHandler := order.NewHandler(orderSvc)

	catalogSvc := catalog.NewService(
		catalog.NewPGStore(pool),
		catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		logger,
	)
	catalogHandler := catalog.NewHandler(catalogSvc)

	companySvc := company.NewService(company.NewPGStore(pool))
	companyHandler := company.NewHandler(companySvc)

	teamSvc := team.NewService(team.NewPGStore(pool), taskClient, bus, logger)
	teamHandler := team.NewHandler(teamSvc, supplierDirectory{auth: authService})

	chatHub := chat.NewHub(logger)
	chatSvc := chat.NewService(chat.NewPGStore(pool), chatHub, logger)
	chatHandler := chat.NewHandler(chatSvc, chatHub, cfg.CORSAllowedOrigins)

	uploadSvc, err := uploads.NewService(ctx, uploads.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		URLTTL:    cfg.UploadURLTTL,
		MaxBytes:  cfg.UploadMaxBytes,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise uploads")
	}
	uploadHandler := uploads.NewHandler(uploadSvc)

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	authLimiter := buildAuthLimiter(cfg.AuthRateLimit, redisClient)
	if authLimiter == nil {
		logger.Warn().Str("rate", cfg.AuthRateLimit).Msg("auth rate limiting disabled")
	}
	authLimit := ratelimit.New(authLimiter, logger)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		Version:      envOrDefault("APP_VERSION", "dev"),
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.Use(authLimit.Handler)
			authHandler.Mount(a)
			a.With(requireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(requireAuth)
			p.Route("/customers", func(c chi.Router) {
				c.Use(idem.Middleware)
				customerHandler.Mount(c)
			})
			p.Route("/products", func(c chi.Router) {
				c.Use(idem.Middleware)
				catalogHandler.Mount(c)
			})
			p.Route("/company", companyHandler.Mount)
			p.Route("/team", teamHandler.Mount)
			p.Route("/chat", chatHandler.Mount)
			p.Route("/uploads", uploadHandler.Mount)
			p.Route("/orders", func(o chi.Router) {
				o.Use(idem.Middleware)
				orderHandler.Mount(o)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	health.SetReady(true)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

// supplierDirectory resolves supplier display names for invitation
// emails.
type supplierDirectory struct {
	auth *auth.Service
}

func (d supplierDirectory) SupplierName(ctx context.Context, supplierID string) (string, error) {
	sup, err := d.auth.Me(ctx, supplierID)
	if err != nil {
		return "", err
	}
	return sup.Name, nil
}

func buildAuthLimiter(formatted string, rdb *redis.Client) *limiter.Limiter {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit:auth"})
	if err != nil {
		return nil
	}
	return limiter.New(store, rate)
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
