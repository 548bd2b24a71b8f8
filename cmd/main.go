package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/api"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/config"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/gateway"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/repository"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/service"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/migrations"
)

func connectDB(host, port, user, pass, dbname string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("✅ Connected to DB %s", dbname)
				return db, nil
			}
		}
		log.Printf("❌ Retry %d: Failed to connect to DB %s (%s:%s): %v", i+1, dbname, host, port, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %v", dbname, host, port, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
	if err != nil {
		panic(err)
	}

	if err := migrations.Run(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	kafkaWriter := config.NewKafkaWriter(cfg.KafkaBrokers, "commerce-notifications")

	productRepo := repository.NewProductRepository(db)
	clientRepo := repository.NewClientRepository(db)
	cartRepo := repository.NewCartRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	gateways := gateway.Registry{
		entity.ProviderTransbank:   gateway.NewTransbank(cfg.TransbankBaseURL, cfg.TransbankCommerceCode, cfg.TransbankAPIKey, cfg.TransbankReturnURL),
		entity.ProviderStripe:      gateway.NewStripe(cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.StripeWebhookSecret),
		entity.ProviderMercadoPago: gateway.NewMercadoPago(cfg.MercadoPagoBaseURL, cfg.MercadoPagoAccessToken),
		entity.ProviderKlap:        gateway.NewKlap(cfg.KlapBaseURL, cfg.KlapAPIKey, cfg.KlapMockMode, cfg.Env),
		entity.ProviderApplePayDev: gateway.NewManual(entity.ProviderApplePayDev),
		entity.ProviderOther:       gateway.NewManual(entity.ProviderOther),
	}

	guard := service.NewRedisGuard(rdb)
	cartService := service.NewCartService(cartRepo, productRepo, clientRepo, cfg.IVAPercent)
	quoteService := service.NewQuoteService(quoteRepo, productRepo, cartService, guard, cfg.IVAPercent, cfg.QuoteDedupWindow, cfg.QuoteRateWindow, cfg.QuoteRateMax)
	orderService := service.NewOrderService(orderRepo, cartRepo, productRepo, clientRepo, cfg.IVAPercent, cfg.ValidateStock)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, gateways, service.DefaultStatusTimeout)

	dispatcher := service.NewDispatcher(outboxRepo, kafkaWriter, 5*time.Second)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go dispatcher.Run(ctx)

	cartHandler := api.NewCartHandler(cartService)
	quoteHandler := api.NewQuoteHandler(quoteService)
	orderHandler := api.NewOrderHandler(orderService)
	paymentHandler := api.NewPaymentHandler(paymentService)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(20),
				Burst:     40,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	e.POST("/carts", cartHandler.CreateCart)
	e.GET("/carts/:id", cartHandler.GetCart)
	e.POST("/carts/:id/items", cartHandler.AddItem)
	e.PUT("/carts/:id/items/:productId", cartHandler.SetItemQuantity)
	e.DELETE("/carts/:id/items/:productId", cartHandler.RemoveItem)
	e.DELETE("/carts/:id/items", cartHandler.Clear)

	e.POST("/quotes", quoteHandler.CreateQuote)
	e.GET("/quotes/:id", quoteHandler.GetQuote)
	e.POST("/quotes/:id/convert", quoteHandler.ConvertToCart)
	e.DELETE("/quotes/:id", quoteHandler.CancelQuote)

	e.POST("/orders", orderHandler.CreateOrder)
	e.POST("/orders/from-cart/:cartId", orderHandler.CreateFromCart)
	e.GET("/orders/:id", orderHandler.GetOrder)

	e.POST("/payments", paymentHandler.CreatePayment)
	e.POST("/payments/:referencia/confirm", paymentHandler.Confirm)
	e.POST("/payments/:referencia/reject", paymentHandler.Reject)
	e.GET("/payments/:referencia/status", paymentHandler.Status)
	e.POST("/payments/webhook/:provider", paymentHandler.Webhook)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "commerce-core",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.Logger.Fatal(e.Start(":8080"))
}
