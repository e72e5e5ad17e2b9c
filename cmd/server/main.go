package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/remate/marketplace/internal/adapter/handler"
	"github.com/remate/marketplace/internal/adapter/notify"
	"github.com/remate/marketplace/internal/adapter/payment"
	"github.com/remate/marketplace/internal/adapter/storage"
	"github.com/remate/marketplace/internal/core/service"
	"github.com/remate/marketplace/internal/port"
	"github.com/remate/marketplace/pkg/metrics"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpAddr := envOr("HTTP_ADDR", ":8080")
	mysqlDSN := envOr("MYSQL_DSN", "root:root@tcp(localhost:3306)/remate?parseTime=true")
	redisAddr := os.Getenv("REDIS_ADDR")
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	kafkaTopic := envOr("KAFKA_TOPIC", notify.DefaultTopic)
	inventoryBackend := envOr("INVENTORY_BACKEND", "mysql")
	adminToken := os.Getenv("ADMIN_TOKEN")

	// MySQL: source of truth for catalog, carts, orders and inventory.
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)

	// Redis: checkout idempotency, and optionally the inventory ledger
	// for deployments where the hot reserve path must stay off MySQL.
	var (
		redisAdapter *storage.RedisAdapter
		rdb          *redis.Client
	)
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		redisAdapter = storage.NewRedisAdapter(rdb)
		log.Println("connected to redis")
	}

	var inventory port.InventoryLedger = mysqlAdapter
	if inventoryBackend == "redis" {
		if redisAdapter == nil {
			log.Fatal("INVENTORY_BACKEND=redis requires REDIS_ADDR")
		}
		inventory = redisAdapter
	}

	var cache port.CacheRepository
	if redisAdapter != nil {
		cache = redisAdapter
	}

	var notifier port.NotificationEmitter
	var kafkaEmitter *notify.KafkaEmitter
	if kafkaBrokers != "" {
		kafkaEmitter = notify.NewKafkaEmitter(kafkaBrokers, kafkaTopic)
		notifier = kafkaEmitter
		log.Printf("publishing notifications to kafka topic %s", kafkaTopic)
	} else {
		notifier = notify.NewLogEmitter()
	}

	gateway := payment.NewSimulatedGateway()

	cartService := service.NewCartService(mysqlAdapter, mysqlAdapter, inventory)
	checkoutService := service.NewCheckoutService(mysqlAdapter, mysqlAdapter, mysqlAdapter, inventory, gateway, notifier, cache)
	orderService := service.NewOrderService(mysqlAdapter, inventory, notifier)

	serverMetrics := metrics.NewServerMetrics("marketplace")

	httpHandler := handler.NewHTTPHandler(cartService, checkoutService, orderService, serverMetrics, adminToken)
	mux := http.NewServeMux()
	httpHandler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	if kafkaEmitter != nil {
		kafkaEmitter.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Println("connections closed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
