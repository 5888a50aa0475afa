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

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-canteen/internal/auth"
	"ms-canteen/internal/availability"
	"ms-canteen/internal/config"
	"ms-canteen/internal/kafka"
	"ms-canteen/internal/logger"
	"ms-canteen/internal/notify"
	"ms-canteen/internal/order"
	"ms-canteen/internal/order/db"
	"ms-canteen/internal/order/order_api"
	orderredis "ms-canteen/internal/order/redis"
	"ms-canteen/internal/payment"
	"ms-canteen/internal/qr"
	"ms-canteen/internal/slots"
	"ms-canteen/internal/sse"
	"ms-canteen/internal/vendor"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
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
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Canteen Order Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	db.Migrate(bunDB)

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.OrderCreated,
			cfg.Kafka.Topics.OrderStatus,
			cfg.Kafka.Topics.SlotWarning,
			cfg.Kafka.Topics.SlotConfig,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, events stay SSE-only")
	}

	dbLayer := &db.DB{Bun: bunDB}
	slotLock := orderredis.NewSlotLock(redisClient, cfg.Redis.AdmitLockTTL)
	generator := slots.NewGenerator(nil)
	emitter := sse.NewEmitter()

	var kafkaSink notify.Publisher
	if producer != nil {
		kafkaSink = producer
	}
	notifier := notify.NewNotifier(dbLayer, dbLayer, emitter, kafkaSink, notify.Topics{
		OrderCreated: cfg.Kafka.Topics.OrderCreated,
		OrderStatus:  cfg.Kafka.Topics.OrderStatus,
		SlotWarning:  cfg.Kafka.Topics.SlotWarning,
		SlotConfig:   cfg.Kafka.Topics.SlotConfig,
	}, generator, log)

	var gateway order.PaymentGateway
	if stripeGateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, log); err != nil {
		log.Warn("STRIPE", "Online payments disabled, cash on pickup only")
		gateway = payment.DisabledGateway{}
	} else {
		gateway = stripeGateway
	}

	qrGenerator := qr.NewGenerator(cfg.Slots.QRCodeDir)

	log.Info("APP", "📦 Initializing Order Service")
	orderService := order.NewOrderService(dbLayer, slotLock, gateway, qrGenerator, notifier, generator, cfg.Stripe.Currency, log)
	vendorService := vendor.NewService(dbLayer, notifier, log)
	calculator := availability.NewCalculator(dbLayer, dbLayer, generator)

	handler := order_api.NewHandler(orderService, vendorService, calculator, log)
	sseHandler := order_api.NewSSEHandler(log, emitter)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Get("/slots/availability", handler.SlotAvailability)
			r.Get("/menu/{vendorId}", handler.Menu)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleStudent))
				r.Post("/checkout", handler.Checkout)
				r.Post("/payment-success", handler.PaymentSuccess)
				r.Get("/orders", handler.MyOrders)
				r.Get("/orders/{orderId}", handler.GetOrder)
			})
			log.Info("ROUTER", "Student routes registered under /api")

			r.Route("/vendor", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleVendor))
				r.Post("/slot-config", handler.UpdateSlotConfig)
				r.Get("/slot-utilization", handler.SlotUtilization)
				r.Post("/menu/{itemId}/toggle", handler.ToggleMenuItem)
				r.Get("/orders", handler.VendorOrders)
				r.Post("/orders/status", handler.UpdateOrderStatus)
				r.Post("/orders/redeem", handler.RedeemOrder)
				r.Post("/orders/scan", handler.ScanOrder)
			})
			log.Info("ROUTER", "Vendor routes registered under /api/vendor")

			r.Route("/events", func(r chi.Router) {
				r.Get("/vendor/{vendorID}", sseHandler.HandleVendorEvents)
				r.Get("/student/{studentID}", sseHandler.HandleStudentEvents)
			})
			log.Info("ROUTER", "SSE routes registered under /api/events")
		})
	})

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		// No write timeout: SSE streams stay open indefinitely.
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Canteen Order Service running on %s", cfg.Server.Port))
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
		log.Info("HTTP", "✅ Canteen Order Service shutdown complete")
	}
}
