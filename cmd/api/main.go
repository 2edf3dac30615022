package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/api"
	"github.com/example/sales-desk/internal/auth"
	"github.com/example/sales-desk/internal/catalog"
	"github.com/example/sales-desk/internal/config"
	"github.com/example/sales-desk/internal/dashboard"
	"github.com/example/sales-desk/internal/infrastructure/kafka"
	"github.com/example/sales-desk/internal/infrastructure/store"
	"github.com/example/sales-desk/internal/invoice"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()
	if cfg.LogFormat != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("invoice_numbering", cfg.InvoiceNumbering))

	numbering, err := invoice.ParseNumbering(cfg.InvoiceNumbering)
	if err != nil {
		logger.Fatal("Invalid invoice numbering", zap.Error(err))
	}

	// Changes are published only when kafka is configured.
	var publisher store.Publisher
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer producer.Close()
		publisher = producer
	}

	st, err := cfg.OpenStore(ctx, publisher, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	catalogSvc := catalog.NewService(st, logger)
	invoices := invoice.NewManager(st, catalogSvc, numbering, logger)

	seeded, err := catalogSvc.SeedUsers(ctx, cfg.Seeds())
	if err != nil {
		logger.Fatal("Failed to seed users", zap.Error(err))
	}
	if seeded > 0 {
		logger.Info("Seeded initial users", zap.Int("count", seeded))
	}

	board := dashboard.NewBoard(st, logger)
	stopWatch := board.Watch()
	defer stopWatch()
	if err := board.Refresh(ctx); err != nil {
		logger.Fatal("Failed to load dashboard", zap.Error(err))
	}

	// Other instances write to the same backend; their changes arrive via
	// kafka. Every instance needs the whole feed, hence one group per host.
	var wg sync.WaitGroup
	if cfg.KafkaEnabled() {
		host, _ := os.Hostname()
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaConsumerGroup+"-"+host, logger)
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting change consumer")
			if err := consumer.Consume(ctx, board.HandleEvent); err != nil && ctx.Err() == nil {
				logger.Error("Change consumer stopped", zap.Error(err))
			}
		}()
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	router := api.NewRouter(api.RouterConfig{
		AuthHandlers:    api.NewAuthHandlers(auth.NewAuthenticator(st.Users(), logger), jwtService, catalogSvc, logger.Named("api")),
		CatalogHandlers: api.NewCatalogHandlers(catalogSvc, logger.Named("api")),
		OrderHandlers:   api.NewOrderHandlers(invoices, board, logger.Named("api")),
		JWTService:      jwtService,
		Users:           catalogSvc,
		Logger:          logger.Named("http"),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	wg.Wait()
}
