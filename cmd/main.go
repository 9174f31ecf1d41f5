/**
 * @description
 * This is the main entry point for the ledger-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the SMS gateway client, message broker, repositories, the core
 * application service, the maintenance scheduler and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Optional .env loading before config.
 * - internal/api, internal/app, internal/auth, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq, pkg/smsclient: Broker and SMS gateway clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sunupay/ledger-service/internal/api"
	"github.com/sunupay/ledger-service/internal/app"
	"github.com/sunupay/ledger-service/internal/auth"
	"github.com/sunupay/ledger-service/internal/config"
	"github.com/sunupay/ledger-service/internal/store"
	"github.com/sunupay/ledger-service/pkg/rabbitmq"
	"github.com/sunupay/ledger-service/pkg/smsclient"
)

func main() {
	// Load a local .env if present; real deployments set the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("level=info component=bootstrap msg=\"loaded .env file\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting ledger-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish lifecycle events. The
	// service stays up on broker failure; events degrade to the fallback.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		producer = eventProducer
		defer eventProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Redis backs the rate limiter and the balance cache; both degrade to
	// pass-through when it is unreachable.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting and balance cache disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting and balance cache disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting and balance cache disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// SMS gateway client. Without a gateway the codes only reach the logs of
	// whatever environment is running, which is fine for development.
	var sms smsclient.Sender
	if strings.TrimSpace(cfg.SMSGatewayURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"sms gateway not configured; code delivery disabled\" env=SMS_GATEWAY_URL")
		sms = smsclient.NoopSender{}
	} else {
		sms = smsclient.NewClient(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey, cfg.SMSSenderName)
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	cache := app.NewBalanceCache(redisClient, time.Duration(cfg.BalanceCacheTTLSec)*time.Second)
	limiter := app.NewRedisRequestRateLimiter(redisClient, cfg.RedisRateLimitPrefix, cfg.RequestLimitPerMinute, time.Minute)

	fees := app.FeeSchedule{
		TransferRate:   cfg.TransferFeeRate,
		TransferFloor:  cfg.TransferFeeFloor,
		TransferCap:    cfg.TransferFeeCap,
		PaymentPerMil:  cfg.PaymentFeePerMil,
		PaymentMinimum: cfg.PaymentFeeMinimum,
	}

	// Initialize the core application service with its dependencies.
	ledgerService := app.NewService(
		repository,
		producer,
		sms,
		tokens,
		cache,
		app.NewRoleAuthorizer(),
		fees,
	)

	// Nightly maintenance: purge stale verification codes.
	scheduler := app.NewScheduler(repository, cfg.CodeCleanupSchedule)
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// Initialize the API handlers and router.
	handlers := api.NewLedgerHandlers(ledgerService)
	router := api.NewRouter(handlers, tokens, limiter)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
