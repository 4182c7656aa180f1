package handler // HTTP handlers for the webhook and the admin API

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a plain liveness probe for load balancers and monitoring.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
