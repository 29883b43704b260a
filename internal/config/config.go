package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	BrokerChannel          string
	JWTSecret              string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AttachmentMaxSizeMB    int
	DashboardCacheTTL      time.Duration
	FeedRefreshInterval    time.Duration
	StreamKeepAlive        time.Duration
	LoginRateLimit         int
	LoginRateWindow        time.Duration
	CORSOrigins            []string
	SentryDSN              string
	BootstrapAdmin         BootstrapAdmin
}

// BootstrapAdmin describes the administrator provisioned on start-up when an email is set.
type BootstrapAdmin struct {
	Email    string
	Password string
	Name     string
	Branch   string
}

// Enabled reports whether a bootstrap administrator is configured.
func (b BootstrapAdmin) Enabled() bool {
	return strings.TrimSpace(b.Email) != ""
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether attachment storage credentials are present.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRIEVANCE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Campus Grievance API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("broker.channel", "grievance:events")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "720h")
	v.SetDefault("cloudinary.folder", "grievance/attachments")
	v.SetDefault("attachment.max_size_mb", 10)
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("feed.refresh_interval", "250ms")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("login.rate_window", "1m")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("bootstrap.admin_name", "Administrator")
	v.SetDefault("bootstrap.admin_branch", "Other")

	durations := map[string]time.Duration{}
	for _, key := range []string{"jwt.access_ttl", "jwt.refresh_ttl", "dashboard.cache_ttl", "feed.refresh_interval", "stream.keepalive", "login.rate_window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", key)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		BrokerChannel:          v.GetString("broker.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		AccessTokenTTL:         durations["jwt.access_ttl"],
		RefreshTokenTTL:        durations["jwt.refresh_ttl"],
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AttachmentMaxSizeMB:    v.GetInt("attachment.max_size_mb"),
		DashboardCacheTTL:      durations["dashboard.cache_ttl"],
		FeedRefreshInterval:    durations["feed.refresh_interval"],
		StreamKeepAlive:        durations["stream.keepalive"],
		LoginRateLimit:         v.GetInt("login.rate_limit"),
		LoginRateWindow:        durations["login.rate_window"],
		CORSOrigins:            splitList(v.GetString("cors.origins")),
		SentryDSN:              v.GetString("sentry.dsn"),
		BootstrapAdmin: BootstrapAdmin{
			Email:    v.GetString("bootstrap.admin_email"),
			Password: v.GetString("bootstrap.admin_password"),
			Name:     v.GetString("bootstrap.admin_name"),
			Branch:   v.GetString("bootstrap.admin_branch"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.BootstrapAdmin.Enabled() && cfg.BootstrapAdmin.Password == "" {
		return Config{}, fmt.Errorf("bootstrap admin password must be provided with the admin email")
	}

	if cfg.AttachmentMaxSizeMB <= 0 {
		cfg.AttachmentMaxSizeMB = 10
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
