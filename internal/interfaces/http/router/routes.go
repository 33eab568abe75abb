package router

import (
	"github.com/gin-gonic/gin"

	"refine-ai-api/internal/interfaces/http/middleware"
)

// RegisterContractRoutes 注册浏览器端直接调用的生成与试运行接口
func RegisterContractRoutes(api *gin.RouterGroup, h *RouterHandlers, limit func(endpoint string) gin.HandlerFunc) {
	api.POST("/generate-prompt", limit("generate"), h.Generate.GeneratePrompt)
	api.POST("/test-run", limit("test-run"), h.TestRun.TestRun)
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers, limit func(endpoint string) gin.HandlerFunc) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	v1.GET("/catalog", h.Catalog.Get)

	// 向导会话，匿名可用；归属用户的会话只对该用户可见
	sessions := v1.Group("/wizard/sessions")
	{
		sessions.POST("", h.Wizard.Create)
		sessions.GET("/:sid", h.Wizard.Get)
		sessions.DELETE("/:sid", h.Wizard.Delete)
		sessions.POST("/:sid/category", h.Wizard.SelectCategory)
		sessions.POST("/:sid/next", h.Wizard.Next)
		sessions.POST("/:sid/advance", h.Wizard.Advance)
		sessions.POST("/:sid/prev", h.Wizard.Prev)
		sessions.PATCH("/:sid/fields", h.Wizard.UpdateField)
		sessions.POST("/:sid/reset", h.Wizard.Reset)
		sessions.POST("/:sid/load", h.Wizard.LoadParams)
		sessions.POST("/:sid/load-template", h.Wizard.LoadTemplate)
		sessions.POST("/:sid/load-prompt", h.Wizard.LoadPrompt)
		sessions.POST("/:sid/generate", limit("generate"), h.Wizard.Generate)
		sessions.POST("/:sid/test-run", limit("test-run"), h.Wizard.TestRun)
		sessions.POST("/:sid/templates", middleware.RequireAuth(), h.Wizard.SaveTemplate)
	}

	// 以下路由要求登录
	authed := v1.Group("", middleware.RequireAuth())

	users := authed.Group("/users")
	{
		users.GET("/me", h.User.GetMe)
	}

	prompts := authed.Group("/prompts")
	{
		prompts.GET("", h.Library.ListPrompts)
		prompts.POST("", h.Library.SavePrompt)
		prompts.GET("/watch", h.Library.WatchPrompts)
		prompts.GET("/:id", h.Library.GetPrompt)
		prompts.DELETE("/:id", h.Library.DeletePrompt)
	}

	templates := authed.Group("/templates")
	{
		templates.GET("", h.Library.ListTemplates)
		templates.POST("", h.Library.SaveTemplate)
		templates.GET("/watch", h.Library.WatchTemplates)
		templates.GET("/:id", h.Library.GetTemplate)
		templates.DELETE("/:id", h.Library.DeleteTemplate)
	}

	settings := authed.Group("/settings")
	{
		settings.GET("", h.Library.GetSettings)
		settings.PATCH("", h.Library.UpdateSettings)
	}

	account := authed.Group("/account")
	{
		account.GET("/export", h.Library.ExportAccount)
		account.DELETE("", h.Library.DeleteAccount)
	}
}
