package router // route registration for the webhook and the admin API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/KynixVPN/Kynix-Bot/internal/config"
	"github.com/KynixVPN/Kynix-Bot/internal/handler"
	"github.com/KynixVPN/Kynix-Bot/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterWebhook registers the Telegram webhook endpoint.  The secret in
// the path is validated by the handler itself.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/webhook/:secret", w.Receive)
}

// RegisterAdmin wires the admin API.  Login is open (rate limited);
// everything else sits behind the JWT middleware.  The token bucket
// applies to the whole group so a leaked token cannot hammer the panel.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/admin")
	g.Use(middleware.NewTokenBucket(rl, rdb))

	g.POST("/login", a.Login)

	protected := g.Group("")
	protected.Use(middleware.JWTAuth(jwtSecret))
	protected.POST("/grant", a.Grant)
	protected.POST("/refund", a.Refund)
	protected.POST("/tickets/:id/close", a.CloseTicket)
}
