package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/config"
	"trade_sentinel_backend/controllers"
	"trade_sentinel_backend/logging"
	"trade_sentinel_backend/routes"
	"trade_sentinel_backend/scheduler"
	"trade_sentinel_backend/services"
	"trade_sentinel_backend/services/ai"
	"trade_sentinel_backend/services/alerts"
	"trade_sentinel_backend/services/lifecycle"
	"trade_sentinel_backend/services/marketdata"
	"trade_sentinel_backend/services/signals"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logging.Init(cfg.Environment, cfg.LogFile)

	logrus.Info("==============================================")
	logrus.Info("  Trade Sentinel Backend - Starting...")
	logrus.Info("==============================================")

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to MongoDB
	mongoClient := services.NewMongoDBClient()
	if err := mongoClient.Connect(cfg.MongoURI, cfg.MongoDatabase); err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer mongoClient.Close()

	scheduleStore := services.NewScheduleStore(mongoClient)
	tradeStore := services.NewTradeStore(mongoClient)

	// Market data collaborators
	eventFeed := marketdata.NewEventFeed(cfg.MarketDataWSURL, cfg.Symbols)
	eventFeed.Start()
	defer eventFeed.Stop()

	candleClient := marketdata.NewCandleClient(cfg.CandleAPIURL, cfg.CandleAPIKey)

	// AI analyzer and alert transports
	analyzer := ai.NewClient(cfg.AIEndpoint, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout)
	alertDispatcher := alerts.NewMultiChannelDispatcher(
		cfg.TelegramBotToken, cfg.TelegramChatID, cfg.SMSWebhookURL, cfg.CallWebhookURL)

	pipeline := signals.NewTradeSignalPipeline(eventFeed, candleClient, analyzer, tradeStore, alertDispatcher,
		signals.Config{
			Symbols:          cfg.Symbols,
			EventLookback:    cfg.EventLookback,
			CandleCount:      cfg.CandleCount,
			Timeframes:       cfg.Timeframes,
			HighConfidence:   cfg.HighConfidence,
			MediumConfidence: cfg.MediumConfidence,
			TradeTTL:         cfg.TradeTTL,
		})

	lifecycleManager := lifecycle.NewTradeLifecycleManager(tradeStore)

	// Register handlers and bring up the scheduler
	dispatcher := scheduler.NewHandlerDispatcher()
	dispatcher.Register(scheduler.HandlerTradeFinder, func(ctx context.Context, params map[string]interface{}) error {
		symbol, ok := params["symbol"].(string)
		if !ok || symbol == "" {
			return fmt.Errorf("trade finder requires a symbol parameter")
		}
		_, err := pipeline.Run(ctx, symbol)
		return err
	})
	dispatcher.Register(scheduler.HandlerLifecycleSweep, func(ctx context.Context, _ map[string]interface{}) error {
		_, err := lifecycleManager.SweepExpired(ctx)
		return err
	})

	taskScheduler := scheduler.NewTaskScheduler(dispatcher, scheduleStore)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := scheduler.SeedDefaults(bootCtx, scheduleStore, cfg.Symbols, cfg.FinderIntervalMs, cfg.SweepInterval); err != nil {
		logrus.WithError(err).Error("failed to seed default schedules")
	}
	if err := scheduler.Bootstrap(bootCtx, scheduleStore, taskScheduler); err != nil {
		logrus.WithError(err).Error("scheduler bootstrap failed")
	}
	bootCancel()

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	setupHealthEndpoints(router, mongoClient)

	routes.SetupRoutes(router, routes.Controllers{
		Auth:     controllers.NewAuthController(cfg.JWTSecret, cfg.AdminUsername, cfg.AdminPasswordHash),
		Schedule: controllers.NewScheduleController(scheduleStore, taskScheduler),
		Trade:    controllers.NewTradeController(tradeStore, lifecycleManager, pipeline),
	}, cfg.JWTSecret)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		logrus.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	gracefulShutdown(server, taskScheduler)
}

// setupHealthEndpoints sets up liveness and readiness probes.
func setupHealthEndpoints(router *gin.Engine, mongoClient *services.MongoDBClient) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Trade Sentinel Backend API",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks the database connection
	router.GET("/ready", func(c *gin.Context) {
		if !mongoClient.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := mongoClient.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			logrus.WithFields(logrus.Fields{
				"method":   c.Request.Method,
				"path":     path,
				"status":   c.Writer.Status(),
				"duration": duration,
			}).Warn("request")
		}
	}
}

// gracefulShutdown stops the scheduler first so no new handler runs start,
// then drains the HTTP server.
func gracefulShutdown(server *http.Server, taskScheduler *scheduler.TaskScheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logrus.WithField("signal", sig.String()).Info("shutting down gracefully")

	taskScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("forced shutdown")
	}

	logrus.Info("server stopped")
}
