package config

import (
	"os"
	"time"
)

// WebSocket timing constants shared by the connection read/write pumps.
const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 64 * 1024

	// SendBufferSize is the per-connection outbound channel depth. A slow
	// consumer that falls this far behind starts dropping events.
	SendBufferSize = 256

	// PreviewLength bounds the notification message preview.
	PreviewLength = 100

	// UnreadNotificationLimit caps a single unread-notifications fetch.
	UnreadNotificationLimit = 50
)

// Config carries everything main needs to wire the server together.
// All values come from the environment with local-dev defaults.
type Config struct {
	ServerAddr  string
	DatabaseURL string
	NatsURL     string
	StreamName  string
	JWTSecret   string
}

func Load() Config {
	return Config{
		ServerAddr:  envOrDefault("SERVER_ADDR", ":3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"), // empty selects the in-memory store
		NatsURL:     os.Getenv("NATS_URL"),     // empty disables the event journal
		StreamName:  envOrDefault("NATS_STREAM", "CHAT_EVENTS"),
		JWTSecret:   envOrDefault("JWT_SECRET", "dev-secret-change-me"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
