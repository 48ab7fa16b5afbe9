package config

import (
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string     `yaml:"discord_token"`
	ClientID     string     `yaml:"client_id"`
	ClientSecret string     `yaml:"client_secret"`
	RedirectURI  string     `yaml:"redirect_uri"`
	GuildID      string     `yaml:"guild_id"`
	RoleID       string     `yaml:"role_id"`
	AdminUserID  string     `yaml:"admin_user_id"`
	IPInfoToken  string     `yaml:"ipinfo_token"`
	LogLevel     string     `yaml:"log_level"`
	HTTP         HTTPConfig `yaml:"http"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		HTTP:     HTTPConfig{Addr: ":8080", StaticDir: "public"},
	}
}

// Load reads config.yaml (or CONFIG_PATH) and applies environment overrides.
// Only the bot token is checked here; OAuth, role, and geolocation settings
// surface failures per request.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.ClientID = envString("CLIENT_ID", cfg.ClientID)
	cfg.ClientSecret = envString("CLIENT_SECRET", cfg.ClientSecret)
	cfg.RedirectURI = envString("REDIRECT_URI", cfg.RedirectURI)
	cfg.GuildID = envString("GUILD_ID", cfg.GuildID)
	cfg.RoleID = envString("ROLE_ID", cfg.RoleID)
	cfg.AdminUserID = envString("ADMIN_USER_ID", cfg.AdminUserID)
	cfg.IPInfoToken = envString("IPINFO_API_KEY", cfg.IPInfoToken)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTP.Addr = envString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.StaticDir = envString("STATIC_DIR", cfg.HTTP.StaticDir)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
