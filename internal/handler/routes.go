package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Instances     *InstanceHandler
	AlertSettings *AlertSettingsHandler
	Webhooks      *WebhookSettingsHandler
	License       *LicenseHandler

	// Metrics serves the Prometheus scrape endpoint; promhttp.Handler when nil
	Metrics http.Handler
}

// RegisterRoutes mounts public, auth and bearer-protected routes on router.
func RegisterRoutes(router *gin.Engine, h Handlers, authMiddleware gin.HandlerFunc) {
	router.GET("/", Root)
	router.GET("/ping", Ping)

	metrics := h.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metrics))

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	auth.GET("/config", h.Auth.Config)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	protected := api.Group("")
	protected.Use(authMiddleware)
	protected.GET("/auth/me", h.Auth.Me)

	protected.GET("/instances", h.Instances.ListInstances)
	protected.POST("/instances", h.Instances.CreateInstance)
	protected.GET("/instances/:id", h.Instances.GetInstance)
	protected.PUT("/instances/:id", h.Instances.UpdateInstance)
	protected.DELETE("/instances/:id", h.Instances.DeleteInstance)
	protected.GET("/instances/:id/workflows", h.Instances.GetWorkflows)
	protected.GET("/instances/:id/events", h.Instances.GetEvents)
	protected.GET("/instances/:id/error-patterns", h.Instances.GetErrorPatterns)

	protected.GET("/alerts/settings", h.AlertSettings.GetSettings)
	protected.PUT("/alerts/settings", h.AlertSettings.UpdateSettings)

	protected.GET("/license", h.License.GetLicense)

	webhooks := protected.Group("/settings/webhooks")
	webhooks.GET("", h.Webhooks.ListWebhookConfigs)
	webhooks.POST("", h.Webhooks.CreateWebhookConfig)
	webhooks.GET("/:id", h.Webhooks.GetWebhookConfig)
	webhooks.PUT("/:id", h.Webhooks.UpdateWebhookConfig)
	webhooks.DELETE("/:id", h.Webhooks.DeleteWebhookConfig)
}
