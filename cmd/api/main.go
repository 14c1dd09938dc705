package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/webshop-works/checkout/internal/cart"
	"github.com/webshop-works/checkout/internal/catalog"
	"github.com/webshop-works/checkout/internal/config"
	"github.com/webshop-works/checkout/internal/discount"
	"github.com/webshop-works/checkout/internal/events"
	"github.com/webshop-works/checkout/internal/health"
	"github.com/webshop-works/checkout/internal/money"
	"github.com/webshop-works/checkout/internal/obs"
	"github.com/webshop-works/checkout/internal/postage"
	"github.com/webshop-works/checkout/internal/ratelimit"
	"github.com/webshop-works/checkout/internal/resilience"
	"github.com/webshop-works/checkout/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "checkout-api",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSampling,
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if cfg.MetricsEnabled {
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
		cancel()
		logger.Fatal().Err(err).Msg("ping redis")
	}
	cancel()

	catalogResolver := catalog.NewCache(seedCatalog(), redisClient, cfg.CatalogCacheTTL)
	postageResolver := postage.NewGuarded(seedPostage(), resilience.NewBreaker(resilience.Options{
		Target:      "postage-rates",
		MinRequests: 5,
		OpenFor:     30 * time.Second,
		Logger:      logger,
	}))
	discountResolver := seedDiscounts()

	bus := events.NewBus(logNotifier(logger))
	if cfg.MetricsEnabled {
		bus.Subscribe(obs.MetricsNotifier{})
	}

	cartHandler := &cart.Handler{
		Carts: func(ctx context.Context, sessionID string) (*cart.Cart, error) {
			return cart.New(ctx, cart.Config{
				SessionID: sessionID,
				Store:     session.NewStore(redisClient, sessionID, cfg.CartTTL),
				Catalog:   catalogResolver,
				Postage:   postageResolver,
				TaxRate:   cfg.TaxRate,
				Events:    bus,
			})
		},
		Catalog:   catalogResolver,
		Discounts: discountResolver,
		Currency:  cfg.Currency,
		Validate:  validator.New(),
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", cart.SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{redis: redisClient},
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1/cart", func(c chi.Router) {
		if cfg.RateLimitMax > 0 {
			limiter := ratelimit.Handler{
				Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "checkout:ratelimit:"},
				Config: ratelimit.Config{
					Key:    ratelimit.SessionKey(cart.SessionHeader, cart.SessionCookie),
					Window: cfg.RateLimitWindow,
					Max:    cfg.RateLimitMax,
				},
				OnError: func(err error) {
					logger.Error().Err(err).Msg("rate limiter")
				},
			}
			c.Use(limiter.Middleware)
		}
		cartHandler.Routes(c)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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
	case <-rootCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
		logger.Info().Msg("server stopped")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func logNotifier(logger zerolog.Logger) events.NotifierFunc {
	return func(_ context.Context, ev events.Event) error {
		logger.Info().
			Str("topic", ev.Topic).
			Str("session_id", ev.SessionID).
			Str("item_key", ev.ItemKey).
			Int("quantity", ev.Quantity).
			Str("code", ev.Code).
			Msg("cart event")
		return nil
	}
}

type readinessChecker struct {
	redis *redis.Client
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

// Demo fixtures. Production deployments replace these resolvers with ones
// backed by their own product, postage and promotion systems.

func seedCatalog() *catalog.Memory {
	return catalog.NewMemory(
		catalog.Product{Kind: "product", ID: "mug-classic", Title: "Classic Mug", Price: money.MustFromString("9.99"), Weight: decimal.NewFromFloat(0.4)},
		catalog.Product{Kind: "product", ID: "poster-a2", Title: "A2 Poster", Price: money.MustFromString("14.50"), Weight: decimal.NewFromFloat(0.1)},
		catalog.Product{Kind: "product", ID: "tshirt", Title: "Logo T-Shirt", Price: money.MustFromString("19.00"), Weight: decimal.NewFromFloat(0.25)},
		catalog.Product{Kind: "download", ID: "wallpaper-pack", Title: "Wallpaper Pack", Price: money.MustFromString("4.00")},
	)
}

func seedPostage() *postage.Memory {
	return postage.NewMemory(
		postage.Area{Country: "GB", Options: []postage.Option{
			{ID: "gb-standard", Title: "Standard Delivery", Cost: money.MustFromString("3.00")},
			{ID: "gb-next-day", Title: "Next Day Delivery", Cost: money.MustFromString("7.50")},
		}},
		postage.Area{Options: []postage.Option{
			{ID: "intl-tracked", Title: "International Tracked", Cost: money.MustFromString("12.00")},
		}},
	)
}

func seedDiscounts() *discount.Memory {
	return discount.NewMemory(
		discount.Discount{Code: "WELCOME5", Kind: discount.KindFixed, Amount: decimal.NewFromInt(5), ExpiresOn: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
		discount.Discount{Code: "SPRING10", Kind: discount.KindPercentage, Amount: decimal.NewFromInt(10), ExpiresOn: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
	)
}
