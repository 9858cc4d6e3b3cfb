package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/campushq/chat-server/auth"
	"github.com/campushq/chat-server/chat"
	"github.com/campushq/chat-server/config"
	"github.com/campushq/chat-server/events"
	"github.com/campushq/chat-server/handlers"
	"github.com/campushq/chat-server/history"
	"github.com/campushq/chat-server/store"
	"github.com/campushq/chat-server/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	otelShutdown, err := telemetry.Init(ctx)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx)

	// --- Persistence ---
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to initialize store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
		slog.Info("connected to PostgreSQL")
	} else {
		st = store.NewMemory()
		slog.Warn("DATABASE_URL not set, using in-memory store")
	}

	// --- Event journal (optional) ---
	var journal chat.Journal = chat.NopJournal{}
	if cfg.NatsURL != "" {
		j, err := events.NewJournal(cfg.NatsURL, cfg.StreamName)
		if err != nil {
			slog.Error("failed to initialize event journal", "error", err)
			os.Exit(1)
		}
		defer j.Close()
		journal = j
	}

	core := chat.NewCore(st, journal)
	authenticator := auth.NewJWTAuthenticator(cfg.JWTSecret)

	// --- Fiber app ---
	app := fiber.New()
	app.Use(logger.New())

	history.NewHandler(st).Register(app.Group("/api"))

	// Authenticate before the upgrade; connections that cannot be mapped to
	// a user never reach the registry.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		identity, err := authenticator.Authenticate(auth.Handshake{
			Authorization: c.Get("Authorization"),
			TokenQuery:    c.Query("token"),
		})
		if err != nil {
			slog.Warn("rejected connection attempt", "error", err)
			return fiber.ErrUnauthorized
		}
		c.Locals("identity", identity)
		return c.Next()
	})

	app.Get("/ws/chat", websocket.New(func(c *websocket.Conn) {
		handlers.HandleWebSocket(c, core)
	}))

	// --- Start server ---
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr)
		if err := app.Listen(cfg.ServerAddr); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("error shutting down fiber", "error", err)
	}
	slog.Info("server stopped")
}
