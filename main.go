package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"theatre-ticketing/internal/auth"
	"theatre-ticketing/internal/config"
	"theatre-ticketing/internal/database/migrations"
	"theatre-ticketing/internal/kafka"
	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/payment"
	paydb "theatre-ticketing/internal/payment/db"
	"theatre-ticketing/internal/payment/payment_api"
	"theatre-ticketing/internal/payment/provider"
	rediswrap "theatre-ticketing/internal/redis"
	"theatre-ticketing/internal/reservation"
	resdb "theatre-ticketing/internal/reservation/db"
	"theatre-ticketing/internal/reservation/reservation_api"
	"theatre-ticketing/internal/theatre"
	theatredb "theatre-ticketing/internal/theatre/db"
	"theatre-ticketing/internal/theatre/theatre_api"
	"theatre-ticketing/internal/tickets/qr"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Theatre Ticketing Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	migrateOpts := migrations.DefaultOptions()
	migrateOpts.SeedData = os.Getenv("SEED_SAMPLE_DATA") == "true"
	runner := migrations.NewRunner(bunDB, migrateOpts)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	var events *kafka.Producer
	if cfg.Kafka.Enabled {
		events = kafka.NewProducer(cfg.Kafka.Brokers)
		defer events.Close()
		log.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			kafka.TopicReservationCreated,
			kafka.TopicPaymentStatus,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Info("KAFKA", "Kafka disabled, events will not be published")
	}

	stripeProvider, err := provider.NewStripeProvider(provider.StripeConfig{
		SecretKey:     cfg.Payment.StripeSecretKey,
		WebhookSecret: cfg.Payment.StripeWebhookSecret,
		SuccessURL:    cfg.Payment.SuccessURL,
		CancelURL:     cfg.Payment.CancelURL,
	}, log)
	if err != nil {
		log.Fatal("PAYMENT", fmt.Sprintf("Stripe provider initialization failed: %v", err))
	}
	providers := provider.NewRegistry(stripeProvider)

	theatreService := theatre.NewService(&theatredb.DB{Bun: bunDB}, log)

	var paymentEvents payment.EventPublisher
	var reservationEvents reservation.EventPublisher
	if events != nil {
		paymentEvents = events
		reservationEvents = events
	}

	paymentService := payment.NewService(&paydb.DB{Bun: bunDB}, providers, paymentEvents, cfg.Payment, log)

	userLock := rediswrap.NewLock(redisClient, log, cfg.Redis.UserLockTTL)
	reservationService := reservation.NewService(
		&resdb.DB{Bun: bunDB},
		theatreService,
		userLock,
		paymentService,
		reservationEvents,
		log,
	)

	qrGenerator := qr.NewQRGenerator(cfg.QRSecret)

	theatreHandler := theatre_api.NewHandler(theatreService, log)
	reservationHandler := reservation_api.NewHandler(reservationService, qrGenerator, log)
	paymentHandler := payment_api.NewHandler(paymentService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Post("/api/webhooks/stripe", paymentHandler.Webhook)
	log.Info("ROUTER", "Webhook endpoint registered at /api/webhooks/stripe")

	r.Get("/api/plays", theatreHandler.ListPlays)
	r.Get("/api/plays/{playID}", theatreHandler.GetPlay)
	r.Get("/api/performances", theatreHandler.ListPerformances)
	r.Get("/api/performances/{performanceID}", theatreHandler.GetPerformance)
	log.Info("ROUTER", "Catalog routes registered under /api")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api/reservations", func(r chi.Router) {
			r.Post("/", reservationHandler.CreateReservation)
			r.Get("/", reservationHandler.ListReservations)
			r.Post("/{reservationID}/checkout", paymentHandler.Checkout)
		})
		log.Info("ROUTER", "Reservation routes registered under /api/reservations")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Theatre Ticketing Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Theatre Ticketing Service shutdown complete")
	}
}
