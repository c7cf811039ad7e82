package approuters

import (
	"LingoChat/internal/configuration"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func StartServer(container *configuration.Container) {
	logger := container.Logger
	appServer := createAppServer(container)

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("application server starting",
			zap.Int("port", container.Config.Server.AppPort),
			zap.String("socket_route", "/"+container.Config.Server.SocketRoute),
		)
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("app server error: %w", err)
		}
	}()

	if container.Scheduler != nil {
		container.Scheduler.Start()
	}

	// Listen for shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// websocket connections are hijacked, so the hub closes them itself
	logger.Info("stopping hub and closing websocket connections")
	container.Hub.Stop()

	if err := appServer.Shutdown(ctx); err != nil {
		logger.Error("app server shutdown error", zap.Error(err))
	}

	logger.Info("graceful shutdown complete")
}

func createAppServer(container *configuration.Container) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", container.Config.Server.AppPort),
		Handler:      NewRouter(container),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter registers every HTTP and websocket route.
func NewRouter(container *configuration.Container) *gin.Engine {
	if !container.Config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger(container.Logger), gin.Recovery())
	router.Use(cors.New(corsConfig(container.Config.Server.AllowedOrigins)))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/"+container.Config.Server.SocketRoute, func(c *gin.Context) {
		container.Hub.ServeWS(c.Writer, c.Request)
	})

	ChatRouters(router, container)
	TranslationRouters(router, container)
	MonitorRouters(router, container)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins
	config.AllowCredentials = true
	return config
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
