package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/database"
	"orders-dashboard/internal/handlers"
	"orders-dashboard/internal/kafka"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"
	"orders-dashboard/internal/redis"
	"orders-dashboard/internal/services"
	"orders-dashboard/internal/store"

	"github.com/justinas/alice"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	producer  *kafka.Producer
	consumer  *kafka.Consumer
	feed      *services.OrderFeed
	analytics *services.AnalyticsService
	sessions  *services.SessionService
	handler   http.Handler
	server    *http.Server
}

// buildApplication создает все зависимости (подменяемые в тестах).
// Redis и Kafka необязательны: без них кэш и сессии живут в памяти, события не публикуются.
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		log.WithError(err).Warn("Redis is unavailable, continuing without cache")
		redisClient = nil
	}

	var (
		producer  *kafka.Producer
		consumer  *kafka.Consumer
		publisher services.FeedPublisher
	)
	if cfg.Kafka.Enabled {
		producer, err = newKafkaProducer(&cfg.Kafka, log)
		if err != nil {
			_ = redisClient.Close()
			_ = db.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		publisher = producer

		consumer, err = newKafkaConsumer(&cfg.Kafka, log)
		if err != nil {
			_ = producer.Close()
			_ = redisClient.Close()
			_ = db.Close()
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
	}

	location := services.LoadLocation(&cfg.Dashboard)
	orderStore := store.NewPostgresStore(db, log, &cfg.Database, &cfg.Dashboard)
	feed := services.NewOrderFeed(orderStore, publisher, log, &cfg.Dashboard)
	analyticsService := services.NewAnalyticsService(feed, redisClient, log, &cfg.Dashboard)
	sessionService := services.NewSessionService(redisClient, analyticsService.Table(), log, &cfg.Dashboard)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	var redisHealth handlers.RedisHealth
	if redisClient != nil {
		redisHealth = redisClient
	}
	var kafkaBrokers []string
	if cfg.Kafka.Enabled {
		kafkaBrokers = cfg.Kafka.Brokers
	}

	views := handlers.NewSessionViews(analyticsService)
	orderHandler := handlers.NewOrderHandler(analyticsService, feed, analyticsService.Table(), location, log, &cfg.Dashboard)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, location, log, &cfg.Dashboard)
	sessionHandler := handlers.NewSessionHandler(sessionService, views, location, log, &cfg.Dashboard)
	socketHandler := handlers.NewSessionSocketHandler(sessionService, views, feed, location, log, cfg.Server.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(db, redisHealth, kafkaBrokers, kafkaHealthCheck)
	rateLimitHandler := handlers.NewRateLimitHandler(rateLimiter, log, &cfg.RateLimit)

	if consumer != nil {
		registerEventHandlers(consumer, feed, analyticsService, log)
		if err := consumer.Start(); err != nil {
			_ = consumer.Stop()
			_ = producer.Close()
			_ = redisClient.Close()
			_ = db.Close()
			return nil, fmt.Errorf("kafka consumer start: %w", err)
		}
	}

	mux := setupRoutes(routes{
		orders:    orderHandler,
		analytics: analyticsHandler,
		sessions:  sessionHandler,
		socket:    socketHandler,
		health:    healthHandler,
		rateLimit: rateLimitHandler,
	}, alice.New(handlers.RateLimitMiddleware(rateLimiter, log)))

	handler := alice.New(
		handlers.RecoverPanic(log),
		handlers.RequestLogger(log),
		handlers.CORS(cfg.Server.AllowedOrigins),
	).Then(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		producer:  producer,
		consumer:  consumer,
		feed:      feed,
		analytics: analyticsService,
		sessions:  sessionService,
		handler:   handler,
		server:    server,
	}, nil
}

// start выполняет первую загрузку и запускает периодическое обновление снимка
func (a *application) start(ctx context.Context) {
	go func() {
		a.feed.Refresh(ctx)
		a.feed.Run(ctx, time.Duration(a.cfg.Dashboard.RefreshIntervalSeconds)*time.Second)
	}()
}

// shutdown останавливает сервер и закрывает подключения
func (a *application) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_ = a.consumer.Stop()
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = a.producer.Close()
	_ = a.redis.Close()
	_ = a.db.Close()
}

// routes группирует обработчики HTTP API
type routes struct {
	orders    *handlers.OrderHandler
	analytics *handlers.AnalyticsHandler
	sessions  *handlers.SessionHandler
	socket    *handlers.SessionSocketHandler
	health    *handlers.HealthHandler
	rateLimit *handlers.RateLimitHandler
}

// setupRoutes настраивает маршруты HTTP сервера; api оборачивает маршруты /api и /ws
func setupRoutes(r routes, api alice.Chain) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/health", r.health.Health)
	mux.HandleFunc("/health/readiness", r.health.Readiness)
	mux.HandleFunc("/health/liveness", r.health.Liveness)

	// Order endpoints
	mux.Handle("/api/orders", api.ThenFunc(r.orders.GetOrders))
	mux.Handle("/api/orders/refresh", api.ThenFunc(r.orders.RefreshOrders))
	mux.Handle("/api/orders/status", api.ThenFunc(r.orders.GetSnapshotStatus))

	// Analytics endpoints
	mux.Handle("/api/analytics/dashboard", api.ThenFunc(r.analytics.GetDashboard))

	// Session endpoints
	mux.Handle("/api/session", api.ThenFunc(r.sessions.CreateSession))
	mux.Handle("/api/session/", api.ThenFunc(r.sessions.HandleSession))
	mux.Handle("/ws/session/", api.ThenFunc(r.socket.Connect))

	// Rate limit status не расходует лимит
	mux.HandleFunc("/api/rate-limit/status", r.rateLimit.Status)

	return mux
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, feed *services.OrderFeed, analytics *services.AnalyticsService, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypeOrderChanged, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Debug("Processing order changed event")
		// ошибка загрузки сохраняется в снимке, повторять сообщение не нужно
		snapshot := feed.Refresh(ctx)
		if !snapshot.Failed() {
			analytics.Invalidate(ctx)
		}
		return nil
	})
}
