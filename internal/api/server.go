// Package api exposes the ledger engine over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kharcha-app/kharcha/internal/ledger"
	"github.com/kharcha-app/kharcha/internal/service"
)

// Config holds the server's runtime settings.
type Config struct {
	JWTSecret      string
	AllowedOrigins []string
}

// Server routes HTTP requests to the ledger engine and storage reads.
type Server struct {
	store  service.Storage
	engine *ledger.Engine
	router *gin.Engine
}

// NewServer builds the HTTP surface: authenticated /api/v1 routes plus
// unauthenticated health and metrics endpoints.
func NewServer(store service.Storage, engine *ledger.Engine, cfg Config) *Server {
	s := &Server{
		store:  store,
		engine: engine,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", requireAuth([]byte(cfg.JWTSecret)))
	{
		v1.GET("/accounts", s.listAccounts)
		v1.POST("/accounts", s.saveAccount)
		v1.POST("/accounts/delete", s.deleteAccounts)

		v1.GET("/categories", s.listCategories)
		v1.POST("/categories", s.saveCategory)
		v1.POST("/categories/delete", s.deleteCategories)

		v1.GET("/transactions", s.listTransactions)
		v1.POST("/transactions", s.createTransaction)
		v1.PUT("/transactions/:id", s.updateTransaction)
		v1.POST("/transactions/delete", s.deleteTransactions)

		v1.POST("/adjustments", s.adjustBalance)

		v1.GET("/analytics/monthly", s.listMonthlyAggregates)
		v1.GET("/analytics/monthly/:period", s.getMonthlyAggregate)
		v1.GET("/analytics/daily/:period", s.getDailyAggregate)
	}

	s.router = router
	return s
}

// Handler returns the server's root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	slog.Info("HTTP server starting", "address", addr)
	return server.ListenAndServe()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// requestLogger logs all incoming requests.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
