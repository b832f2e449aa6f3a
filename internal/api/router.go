// Package api is the HTTP surface of the storefront: it collects and
// validates sale and purchase forms and hands them to a Runner.
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
	"github.com/storefront-platform/storefront/pkg/middleware"
	"github.com/storefront-platform/storefront/pkg/resilience"
)

// RouterConfig holds what the router needs
type RouterConfig struct {
	ServiceName string
	Runner      Runner
	Breakers    *resilience.CircuitBreakerRegistry
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
}

// NewRouter builds the gin engine with the standard middleware, health
// endpoints and the v1 routes.
func NewRouter(config RouterConfig) *gin.Engine {
	logger := config.Logger
	if logger == nil {
		logger = logging.FromSlog(nil)
	}

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(config.ServiceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(config.Metrics))
	router.Use(middleware.SimpleTracingMiddleware(config.ServiceName))

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName,
		func() error { return breakersReady(config.Breakers) },
		func() any { return breakerStatus(config.Breakers) },
	))
	if config.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(config.Metrics))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sales", createSaleHandler(config.Runner, logger))
		v1.POST("/purchase-orders", createPurchaseOrderHandler(config.Runner, logger))
	}

	return router
}

// breakersReady fails while any backend breaker is open
func breakersReady(breakers *resilience.CircuitBreakerRegistry) error {
	if breakers == nil || !breakers.AnyOpen() {
		return nil
	}
	for _, s := range breakers.Status() {
		if s.State == "open" {
			return fmt.Errorf("circuit breaker %s is open", s.Name)
		}
	}
	return fmt.Errorf("a circuit breaker is open")
}

func breakerStatus(breakers *resilience.CircuitBreakerRegistry) any {
	if breakers == nil {
		return nil
	}
	return gin.H{"circuitBreakers": breakers.Status()}
}
