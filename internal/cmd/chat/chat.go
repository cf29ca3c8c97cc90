// Package chat parses chat command flags and composes the service entrypoint.
package chat

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/xleb321/chat-project/internal/platform/cmd"
	server "github.com/xleb321/chat-project/internal/services/chat/app"
)

// Config holds chat command configuration.
type Config struct {
	HTTPAddr  string        `env:"CHAT_PROJECT_HTTP_ADDR"  envDefault:":10000"`
	DBPath    string        `env:"CHAT_PROJECT_DB_PATH"    envDefault:"data/chat.db"`
	JWTSecret string        `env:"CHAT_PROJECT_JWT_SECRET"`
	TokenTTL  time.Duration `env:"CHAT_PROJECT_TOKEN_TTL"  envDefault:"720h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "chat HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "secret for signing bearer tokens")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "validity window for issued bearer tokens")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the chat app and serves its HTTP and WebSocket surface.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceChat, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:  cfg.HTTPAddr,
			DBPath:    cfg.DBPath,
			JWTSecret: cfg.JWTSecret,
			TokenTTL:  cfg.TokenTTL,
		}); err != nil {
			return fmt.Errorf("serve chat: %w", err)
		}
		return nil
	})
}
