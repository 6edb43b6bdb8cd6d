package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Slack    SlackConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Security SecurityConfig
	Monitor  MonitorConfig
	License  LicenseConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port             string
	AllowedOrigins   []string
	AllowCredentials bool
}

type SlackConfig struct {
	BotToken    string
	ChannelID   string
	FrontendURL string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	JWTSecret      string
	JWTAccessTTL   string
	JWTRefreshTTL  string
	AllowSignup    string
	CookieSecure   string
	CookieSameSite string
	CookieDomain   string
	CookiePath     string
	AdminUsername  string
	AdminPassword  string
}

// SecurityConfig holds the master secret the credential vault derives its key from.
type SecurityConfig struct {
	MasterKey string
}

type MonitorConfig struct {
	Interval     time.Duration
	Workers      int
	ProbeTimeout time.Duration
	RegistryURL  string
}

type LicenseConfig struct {
	Edition      string
	MaxInstances int
	Features     []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:             getenv("PORT", "8080"),
			AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			AllowCredentials: getenvBool("CORS_ALLOW_CREDENTIALS", true),
		},
		Slack: SlackConfig{
			BotToken:    os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID:   os.Getenv("SLACK_CHANNEL_ID"),
			FrontendURL: os.Getenv("FRONTEND_URL"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			JWTAccessTTL:   getenv("JWT_ACCESS_TTL", "15m"),
			JWTRefreshTTL:  getenv("JWT_REFRESH_TTL", "168h"),
			AllowSignup:    os.Getenv("ALLOW_SIGNUP"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     os.Getenv("AUTH_COOKIE_PATH"),
			AdminUsername:  os.Getenv("ADMIN_USERNAME"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		},
		Security: SecurityConfig{
			MasterKey: os.Getenv("CONTROLA_MASTER_KEY"),
		},
		Monitor: MonitorConfig{
			Interval:     getenvMillis("MONITOR_INTERVAL_MS", 60*time.Second),
			Workers:      getenvInt("MONITOR_WORKERS", 1),
			ProbeTimeout: getenvDuration("MONITOR_PROBE_TIMEOUT", 10*time.Second),
			RegistryURL:  getenv("N8N_REGISTRY_URL", "https://registry.npmjs.org/n8n/latest"),
		},
		License: LicenseConfig{
			Edition:      strings.ToLower(getenv("LICENSE_EDITION", "community")),
			MaxInstances: getenvInt("LICENSE_MAX_INSTANCES", 0),
			Features:     splitList(os.Getenv("LICENSE_FEATURES")),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "auto"),
		},
	}
}

// Validate reports missing secrets that the service cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Security.MasterKey) == "" {
		return fmt.Errorf("missing required env: CONTROLA_MASTER_KEY")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("missing required env: JWT_SECRET")
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// MONITOR_INTERVAL_MS is a plain millisecond count.
func getenvMillis(key string, fallback time.Duration) time.Duration {
	ms := getenvInt(key, 0)
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
