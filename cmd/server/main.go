package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/application"
	"github.com/Lokato-Mobility/service-booking/internal/config"
	"github.com/Lokato-Mobility/service-booking/internal/currency"
	"github.com/Lokato-Mobility/service-booking/internal/domain/availability"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	bookingEvents "github.com/Lokato-Mobility/service-booking/internal/events"
	"github.com/Lokato-Mobility/service-booking/internal/handler"
	"github.com/Lokato-Mobility/service-booking/internal/idempotency"
	"github.com/Lokato-Mobility/service-booking/internal/metrics"
	"github.com/Lokato-Mobility/service-booking/internal/notification"
	"github.com/Lokato-Mobility/service-booking/internal/payment"
	"github.com/Lokato-Mobility/service-booking/internal/platform/auth"
	"github.com/Lokato-Mobility/service-booking/internal/platform/database"
	"github.com/Lokato-Mobility/service-booking/internal/platform/health"
	"github.com/Lokato-Mobility/service-booking/internal/platform/kafka"
	"github.com/Lokato-Mobility/service-booking/internal/platform/logger"
	"github.com/Lokato-Mobility/service-booking/internal/platform/middleware"
	"github.com/Lokato-Mobility/service-booking/internal/repository"
	"github.com/Lokato-Mobility/service-booking/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("remainder_policy", string(cfg.Pricing.Remainder)),
		zap.Duration("payment_deadline", cfg.Payment.Deadline),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := repository.AutoMigrate(db); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(db, repository.Migrations(), log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Redis for idempotency keys
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer func() { _ = rdb.Close() }()

	// Email
	var sender notification.Sender = notification.NewLogSender(log)
	if cfg.SendGrid.APIKey != "" {
		sender = notification.NewSendGridSender(notification.SendGridConfig{
			APIKey:    cfg.SendGrid.APIKey,
			FromEmail: cfg.SendGrid.FromEmail,
			FromName:  cfg.SendGrid.FromName,
		})
	} else {
		log.Warn("BOOKING_SENDGRID_API_KEY not set, emails are only logged")
	}
	dispatcher := notification.NewDispatcher(sender, cfg.SendGrid.Timeout, m, log)

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	vehicleRepo := repository.NewGormVehicleRepository(db)
	snapshotRepo := repository.NewGormSnapshotRepository(db)

	// Initialize pricing engine
	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		log.Fatal("invalid pricing configuration", zap.Error(err))
	}

	paymentClient := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.Timeout, log)

	// Initialize application services
	bookingService := application.NewBookingService(application.BookingServiceDeps{
		Bookings:  bookingRepo,
		Vehicles:  vehicleRepo,
		Snapshots: snapshotRepo,
		Engine:    engine,
		Checker:   availability.NewChecker(repository.NewGormAvailabilityOracle(db)),
		Decider:   bookingDomain.NewAdmissionDecider(cfg.Payment.Deadline),
		Payments:  paymentClient,
		Converter: currency.NewConverter(cfg.XOFPerUSD),
		Publisher: kafkaProducer,
		Notifier:  dispatcher,
		Metrics:   m,
		Logger:    log,
	})
	paymentWatcher := application.NewPaymentWatcher(bookingService, paymentClient, cfg.Schedule.SweepBatchSize, log)
	renderingService := application.NewRenderingService(bookingService, cfg.SnapshotCutoff, log)
	vehicleService := application.NewVehicleService(vehicleRepo, log)

	// Initialize and start payment event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	paymentConsumer := bookingEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		bookingService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	// Background sweeps
	sched := scheduler.New(cfg.Schedule.JobTimeout, log)
	jobs := []scheduler.Job{
		{Name: "payment-sweep", Spec: cfg.Schedule.PaymentSweep, Run: paymentWatcher.Sweep},
		{Name: "booking-completion", Spec: cfg.Schedule.Completion, Run: func(ctx context.Context) error {
			n, err := bookingService.CompleteDueBookings(ctx, cfg.Schedule.CompletionBatch)
			if n > 0 {
				log.Info("completed ended bookings", zap.Int("count", n))
			}
			return err
		}},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			log.Fatal("failed to schedule job", zap.Error(err))
		}
	}
	sched.Start()

	// Initialize HTTP handlers
	idempotent := idempotency.Middleware(idempotency.NewStore(rdb, "booking:idem:", cfg.IdempotencyTTL), log)
	bookingHandler := handler.NewBookingHandler(bookingService, paymentWatcher, idempotent)
	receiptHandler := handler.NewReceiptHandler(renderingService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	pricingHandler := handler.NewPricingHandler(bookingService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check and metrics routes
	healthHandler := health.NewHandler(db, "service-booking")
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	receiptHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	vehicleHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	pricingHandler.RegisterRoutes(&router.RouterGroup)

	// Register admin handler routes
	adminBookingHandler := handler.NewAdminBookingHandler(bookingService)
	adminBookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	dispatcher.Wait()

	log.Info("service-booking stopped")
}
