// authorizer/router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/authorizer/controller"
	"github.com/dev-mohitbeniwal/echo/authorizer/middleware"
)

// Options are the optional pieces of the HTTP surface. A nil Limiter disables rate
// limiting, a nil Metrics handler leaves /metrics unregistered and a nil Enforcer
// leaves the protected routes unregistered.
type Options struct {
	Limiter           middleware.Limiter
	RateLimitRequests int
	RateLimitDuration time.Duration
	Metrics           http.Handler
	Enforcer          gin.HandlerFunc
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	controllers.Health.RegisterRoutes(router)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := router.Group("/api/v1")
	if opts.Limiter != nil {
		api.Use(middleware.RateLimiter(opts.Limiter, opts.RateLimitRequests, opts.RateLimitDuration))
	}

	controllers.Authorization.RegisterRoutes(api)
	controllers.Audit.RegisterRoutes(api)

	if opts.Enforcer != nil {
		controllers.Authorization.RegisterProtectedRoutes(api.Group("", opts.Enforcer))
	}

	return router
}
