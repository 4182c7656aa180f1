package main // entry point: wires config, storage, services and the HTTP server

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KynixVPN/Kynix-Bot/internal/bot"
	"github.com/KynixVPN/Kynix-Bot/internal/config"
	"github.com/KynixVPN/Kynix-Bot/internal/database"
	"github.com/KynixVPN/Kynix-Bot/internal/handler"
	"github.com/KynixVPN/Kynix-Bot/internal/memstore"
	"github.com/KynixVPN/Kynix-Bot/internal/notify"
	"github.com/KynixVPN/Kynix-Bot/internal/payments"
	"github.com/KynixVPN/Kynix-Bot/internal/repository"
	"github.com/KynixVPN/Kynix-Bot/internal/router"
	"github.com/KynixVPN/Kynix-Bot/internal/subscription"
	"github.com/KynixVPN/Kynix-Bot/internal/support"
	"github.com/KynixVPN/Kynix-Bot/internal/transport"
	"github.com/KynixVPN/Kynix-Bot/internal/xui"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when unavailable; rate limiting degrades

	// Ephemeral reverse-lookup store with its periodic general sweep.
	store := memstore.New()
	store.StartSweeper(time.Duration(cfg.SweepIntervalHrs) * time.Hour)
	defer store.Close()

	users := repository.NewUserRepo(db, cfg.HashSalt)
	subsRepo := repository.NewSubscriptionRepo(db)
	tickets := repository.NewTicketRepo(db)
	admins := repository.NewAdminRepo(db)

	panel := xui.NewClient(cfg.XUIBaseURL, cfg.XUIUsername, cfg.XUIPassword)
	gateway := subscription.NewAdapter(panel, cfg.XUIInboundID, cfg.XUIInboundIDInf)

	alerts := notify.NewPublisher(cfg.AMQPURL)
	subs := subscription.NewService(subsRepo, gateway, alerts)
	supportSvc := support.New(tickets, users, store)
	buy := payments.NewSettingsStore("buy_settings.json")

	tg := transport.NewClient(cfg.BotToken)
	go notify.StartConsumer(cfg.AMQPURL, tg, cfg.AdminIDs)

	b := bot.New(tg, users, subs, supportSvc, admins, store, buy, alerts, bot.Options{
		AdminIDs:       cfg.AdminIDs,
		CooldownWindow: time.Duration(cfg.RefreshCooldownSec) * time.Second,
		InstructionURL: cfg.InstructionURL,
		PrivacyURL:     cfg.PrivacyURL,
		TermsURL:       cfg.TermsURL,
	})

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterWebhook(e, handler.NewWebhookHandler(b, cfg.WebhookSecret))
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, admins, users, subs, supportSvc),
		cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
