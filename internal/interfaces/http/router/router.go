// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/interfaces/http/handler"
	"refine-ai-api/internal/interfaces/http/middleware"
)

// RouterHandlers 路由依赖的处理器与中间件依赖
type RouterHandlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Health   *handler.HealthHandler
	Catalog  *handler.CatalogHandler
	Generate *handler.GenerateHandler
	TestRun  *handler.TestRunHandler
	Wizard   *handler.WizardHandler
	Library  *handler.LibraryHandler

	AuthConfig   middleware.AuthConfig
	RateLimiter  middleware.RateLimiter
	RateLimitKey middleware.KeyFunc
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *RouterHandlers
}

// NewWithDeps 创建路由器并注册全部路由
func NewWithDeps(cfg *config.Config, handlers *RouterHandlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	optionalAuth := middleware.OptionalAuth(h.AuthConfig)
	limit := func(endpoint string) gin.HandlerFunc {
		return middleware.RateLimit(r.cfg.Security.RateLimit, h.RateLimiter, endpoint, h.RateLimitKey)
	}

	RegisterContractRoutes(r.engine.Group("/api", optionalAuth), h, limit)
	RegisterV1Routes(r.engine.Group("/v1", optionalAuth), h, limit)
}
