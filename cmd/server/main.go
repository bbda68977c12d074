package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"miniola/internal/config"
	"miniola/internal/handlers"
	"miniola/internal/middleware"
	"miniola/internal/repositories/mongodb"
	"miniola/internal/services"
	"miniola/pkg/cache"
	"miniola/pkg/database"
	"miniola/pkg/logger"
	"miniola/pkg/sms"
	"miniola/pkg/websocket"
	"miniola/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.App.LogLevel),
		Format:     cfg.App.LogFormat,
		Output:     cfg.App.LogOutput,
		TimeFormat: time.RFC3339,
		Caller:     cfg.App.Debug,
		AppName:    cfg.App.Name,
		Version:    cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database, appLogger).Up(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to run migrations")
	}

	// Realtime fan-out
	hub := websocket.NewHub(appLogger)
	go hub.Run(ctx)

	var (
		publisher   services.EventPublisher = websocket.NewLocalPublisher(hub)
		redisPinger handlers.Pinger
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()

		publisher = redisCache
		redisPinger = redisCache
		go websocket.NewRedisBridge(hub, redisCache, cfg.Redis.EventChannel, appLogger).Run(ctx)
	}

	smsProvider, err := sms.NewProvider(ctx, &sms.Config{
		Provider:         cfg.SMS.Provider,
		TwilioAccountSID: cfg.SMS.Twilio.AccountSID,
		TwilioAuthToken:  cfg.SMS.Twilio.AuthToken,
		TwilioFromNumber: cfg.SMS.Twilio.FromNumber,
		AWSRegion:        cfg.SMS.AWS.Region,
		DefaultFrom:      cfg.SMS.DefaultFrom,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create SMS provider")
	}

	// Repositories
	riderRepo := mongodb.NewRiderRepository(db.Database)
	driverRepo := mongodb.NewDriverRepository(db.Database)
	rideRepo := mongodb.NewRideRepository(db.Database)
	paymentRepo := mongodb.NewPaymentRepository(db.Database)
	tokenRepo := mongodb.NewRefreshTokenRepository(db.Database)

	// Services
	tokenService := services.NewTokenService(tokenRepo, cfg.Security, cfg.App.Name, appLogger)
	authService := services.NewAuthService(riderRepo, driverRepo, tokenService, cfg.Security, appLogger)
	accountService := services.NewAccountService(riderRepo, driverRepo, tokenService, appLogger)
	fareService := services.NewFareService(
		services.NewFareCalculator(services.DefaultRateCards, cfg.Ride.GroupDiscountRate),
		rideRepo, driverRepo, cfg.Ride, cfg.App.Currency, appLogger,
	)
	driverService := services.NewDriverService(driverRepo, appLogger)
	matcher := services.NewMatchingService(driverRepo, rideRepo, cfg.Ride, appLogger)
	notifier := services.NewNotificationService(publisher, cfg.Redis.EventChannel, smsProvider, cfg.SMS.DefaultFrom, riderRepo, appLogger)
	rideService := services.NewRideService(rideRepo, riderRepo, driverRepo, fareService, matcher, driverService, notifier, cfg.Ride, appLogger)
	paymentService := services.NewPaymentService(paymentRepo, rideRepo, riderRepo, driverRepo, notifier, cfg.Ride, appLogger)

	// Handlers
	debug := cfg.IsDevelopment()
	h := &routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService, debug, appLogger),
		Account: handlers.NewAccountHandler(accountService, debug, appLogger),
		Fare:    handlers.NewFareHandler(fareService, debug, appLogger),
		Ride:    handlers.NewRideHandler(rideService, debug, appLogger),
		Driver:  handlers.NewDriverHandler(driverService, debug, appLogger),
		Payment: handlers.NewPaymentHandler(paymentService, debug, appLogger),
		Health:  handlers.NewHealthHandler(cfg.App.Version, db, redisPinger, hub.ConnectedClients),
		WebSocket: websocket.NewHandler(hub, &websocket.Config{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			PingInterval:    cfg.WebSocket.PingInterval,
			PongTimeout:     cfg.WebSocket.PongTimeout,
			AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		}, middleware.WebSocketIdentity(tokenService)),
	}

	if cfg.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Fatal("Invalid trusted proxies")
	}

	// Global middleware
	router.Use(middleware.RecoveryMiddleware(appLogger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.LoggingMiddleware(appLogger))

	routes.SetupRoutes(router, h, tokenService, cfg.Security.AdminAPIKey, appLogger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Infof("Starting %s on %s", cfg.App.Name, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Graceful shutdown failed")
	}
}
