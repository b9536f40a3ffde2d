package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"festival-system/internal/catalog"
	"festival-system/internal/config"
	"festival-system/internal/database"
	"festival-system/internal/handlers"
	"festival-system/internal/kafka"
	"festival-system/internal/logger"
	"festival-system/internal/models"
	"festival-system/internal/payments"
	"festival-system/internal/redis"
	"festival-system/internal/services"
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting festival system server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.consumer.Stop()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создаёт все зависимости приложения.
func buildApplication() (*application, error) {
	cfg := config.Load()
	log := logger.New(&cfg.Logger)

	db, err := database.Connect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redis.Connect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := kafka.NewProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := kafka.NewConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer loadCancel()
	cat, err := catalog.Load(loadCtx, db, log)
	if err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("catalog load: %w", err)
	}

	stripeClient := payments.NewClient(&cfg.Stripe, log)

	// Типизированный nil в интерфейсе не считается за nil, поэтому
	// выключенная почта присваивается только при реальном клиенте.
	var mailer services.ReceiptMailer
	if m := services.NewMailgunMailer(&cfg.Mail, log); m != nil {
		mailer = m
	}

	ledgerService := services.NewLedgerService(db, log)
	pricingService := services.NewPricingService(cat)
	eligibilityService := services.NewEligibilityService(cat, ledgerService, log)
	purchaseService := services.NewPurchaseService(db, log, cat, ledgerService, eligibilityService, pricingService, stripeClient, mailer, producer)
	authService := services.NewAuthService(db, log, &cfg.Auth)
	attendeeService := services.NewAttendeeService(db, cat, producer, log)
	eventService := services.NewEventService(db, log)
	pageService := services.NewPageService(db, log)
	festivalService := services.NewFestivalService(db, cat, log)
	reportService := services.NewSalesReportService(db, redisClient, cat, log, &cfg.Reports)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	authHandler := handlers.NewAuthHandler(authService, log)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService, attendeeService, stripeClient, log)
	eventHandler := handlers.NewEventHandler(eventService, log)
	pageHandler := handlers.NewPageHandler(pageService, log)
	adminHandler := handlers.NewAdminHandler(festivalService, reportService, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers)

	registerEventHandlers(consumer, reportService, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(authHandler, purchaseHandler, eventHandler, pageHandler, adminHandler, healthHandler, authService, rateLimiter, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.CORSMiddleware(mux),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера.
func setupRoutes(
	authHandler *handlers.AuthHandler,
	purchaseHandler *handlers.PurchaseHandler,
	eventHandler *handlers.EventHandler,
	pageHandler *handlers.PageHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	tokenParser handlers.TokenParser,
	rateLimiter *services.RateLimiter,
	log *logger.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()

	limited := func(h http.HandlerFunc) http.HandlerFunc {
		return handlers.RateLimitMiddleware(rateLimiter, log, h)
	}

	// Health check endpoints
	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/health/readiness", healthHandler.Readiness)
	mux.HandleFunc("/health/liveness", healthHandler.Liveness)

	// Auth endpoints
	mux.HandleFunc("/api/auth/signup", limited(authHandler.Signup))
	mux.HandleFunc("/api/auth/login", limited(authHandler.Login))
	mux.HandleFunc("/api/account", handlers.RequireAuth(tokenParser, log, authHandler.Account))
	mux.HandleFunc("/api/account/submit-invite-code", handlers.RequireAuth(tokenParser, log, authHandler.SubmitInviteCode))

	// Purchase endpoints. Вебхук процессора аутентифицируется подписью,
	// а не bearer-токеном.
	mux.HandleFunc("/purchase/create-intent", limited(handlers.RequireAuth(tokenParser, log, purchaseHandler.CreateIntent)))
	mux.HandleFunc("/purchase/record", purchaseHandler.Record)
	mux.HandleFunc("/purchase/create-attendees", handlers.RequireAuth(tokenParser, log, purchaseHandler.CreateAttendees))
	mux.HandleFunc("/api/attendees", handlers.RequireAuth(tokenParser, log, purchaseHandler.ListAttendees))

	// Event schedule endpoints
	mux.HandleFunc("/api/events", handlers.RequireAuth(tokenParser, log, eventHandler.HandleEvents))
	mux.HandleFunc("/api/events/", handlers.RequireAuth(tokenParser, log, eventHandler.HandleEventByID))

	// Info page endpoints. Список и чтение доступны анонимам,
	// видимость страниц решает сервис по уровню доступа.
	mux.HandleFunc("/api/pages", handlers.OptionalAuth(tokenParser, pageHandler.HandlePages))
	mux.HandleFunc("/api/pages/", handlers.OptionalAuth(tokenParser, pageHandler.GetPage))

	// Admin endpoints
	mux.HandleFunc("/api/admin/festivals/", handlers.RequireAdmin(tokenParser, log, adminHandler.SetFestivalSales))
	mux.HandleFunc("/api/admin/sales-summary", handlers.RequireAdmin(tokenParser, log, adminHandler.SalesSummary))

	return mux
}

// registerEventHandlers регистрирует обработчики событий Kafka.
func registerEventHandlers(consumer *kafka.Consumer, reports *services.SalesReportService, log *logger.Logger) {
	// Свежая продажа делает кэшированные отчёты устаревшими.
	consumer.RegisterHandler(models.EventTypePurchaseRecorded, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Processing purchase recorded event")
		reports.InvalidateAll(ctx)
		return nil
	})

	consumer.RegisterHandler(models.EventTypeFulfillmentFailed, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Warn("Fulfillment failure observed, refund handled by support")
		return nil
	})

	consumer.RegisterHandler(models.EventTypeAttendeesCreated, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Processing attendees created event")
		return nil
	})
}
