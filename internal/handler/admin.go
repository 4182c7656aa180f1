package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KynixVPN/Kynix-Bot/internal/config"
	"github.com/KynixVPN/Kynix-Bot/internal/repository"
	"github.com/KynixVPN/Kynix-Bot/internal/subscription"
	"github.com/KynixVPN/Kynix-Bot/internal/support"
	"github.com/KynixVPN/Kynix-Bot/internal/utils"
)

// AdminHandler exposes the operational surface of the bot over HTTP so
// operators can act without a Telegram session: login, grant, refund,
// ticket close.  Everything here addresses users by public id only.
type AdminHandler struct {
	Cfg     config.Config
	Admins  *repository.AdminRepo
	Users   *repository.UserRepo
	Subs    *subscription.Service
	Support *support.Service
}

func NewAdminHandler(cfg config.Config, a *repository.AdminRepo, u *repository.UserRepo,
	s *subscription.Service, sup *support.Service) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Admins: a, Users: u, Subs: s, Support: sup}
}

// ----- DTOs -----

type loginReq struct {
	TgID     int64  `json:"tg_id"`
	Password string `json:"password"`
}
type loginResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type grantReq struct {
	PublicID int64 `json:"public_id"`
}
type refundReq struct {
	PublicID int64 `json:"public_id"`
}

// Login verifies an admin's bot-issued password and mints an access
// token.  The password is only ever created through the bot's /login
// flow; there is no registration endpoint.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TgID == 0 || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tg_id/password required"})
	}
	if !h.isConfiguredAdmin(req.TgID) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	auth, err := h.Admins.Get(ctx, req.TgID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if !utils.VerifyPassword(auth.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.TgID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	_ = h.Admins.MarkLogin(ctx, req.TgID)

	return c.JSON(http.StatusOK, loginResp{Token: access.Token, Expires: access.Exp})
}

// Grant gives the addressed user an unlimited subscription.
func (h *AdminHandler) Grant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil || req.PublicID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "public_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	user, err := h.Users.GetByPublicID(ctx, req.PublicID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	sub, link, err := h.Subs.GrantUnlimited(ctx, user)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "provisioning failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"subscription_id": sub.ID,
		"link":            link,
	})
}

// Refund ends the addressed user's entitlement.  Stars money movement
// stays with the bot command because it needs the real chat id; this
// endpoint only revokes and deactivates.
func (h *AdminHandler) Refund(c echo.Context) error {
	var req refundReq
	if err := c.Bind(&req); err != nil || req.PublicID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "public_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	user, err := h.Users.GetByPublicID(ctx, req.PublicID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	if err := h.Subs.Refund(ctx, user); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// CloseTicket closes a support conversation by ticket id.
func (h *AdminHandler) CloseTicket(c echo.Context) error {
	var ticketID uint64
	if err := echo.PathParamsBinder(c).Uint64("id", &ticketID).BindError(); err != nil || ticketID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ids, user, err := h.Support.CloseByTicketID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	}
	if errors.Is(err, support.ErrNoOpenTicket) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already closed"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "close failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"public_id":  user.PublicID,
		"closed_ids": ids,
	})
}

func (h *AdminHandler) isConfiguredAdmin(tgID int64) bool {
	for _, id := range h.Cfg.AdminIDs {
		if id == tgID {
			return true
		}
	}
	return false
}
