package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported values for the store driver setting.
const (
	StoreDriverLocal    = "local"
	StoreDriverSQL      = "sql"
	StoreDriverAirtable = "airtable"
	StoreDriverDocument = "document"
)

// Config holds runtime configuration values for the roster service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	StoreDriver    string
	LocalStorePath string
	DatabaseURL    string
	RedisURL       string
	RedisPrefix    string
	NATSURL        string
	EventsChannel  string

	AirtableToken   string
	AirtableBaseID  string
	AirtableBaseURL string
	AirtableView    string

	JWTSecret string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	B2AccountID            string
	B2ApplicationKey       string
	B2Bucket               string
	PhotoMaxSizeMB         int

	StatsCacheTTL     time.Duration
	StreamKeepAlive   time.Duration
	ExportRateLimit   int
	ExportRateWindow  time.Duration
	SeedEnabled       bool
	SeedToken         string
	SeedOnEmptyStore  bool
	PhotoFetchTimeout time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// JWTEnabled reports whether write endpoints require a bearer token.
func (c Config) JWTEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TROMBI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Trombinoscope API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("store.driver", StoreDriverLocal)
	v.SetDefault("store.path", "data/trombinoscope.db")
	v.SetDefault("redis.prefix", "trombinoscope")
	v.SetDefault("events.channel", "trombinoscope")
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.view", "Grid view")
	v.SetDefault("cloudinary.folder", "trombinoscope/students")
	v.SetDefault("photo.max_size_mb", 5)
	v.SetDefault("photo.fetch_timeout", "5s")
	v.SetDefault("stats.cache_ttl", "1m")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("export.rate_limit", 10)
	v.SetDefault("export.rate_window", "1m")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("seed.on_empty", true)

	statsTTL, err := parseDuration(v, "stats.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}
	keepAlive, err := parseDuration(v, "stream.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stream keepalive: %w", err)
	}
	exportWindow, err := parseDuration(v, "export.rate_window", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid export rate window: %w", err)
	}
	fetchTimeout, err := parseDuration(v, "photo.fetch_timeout", 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid photo fetch timeout: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		StoreDriver:            strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		LocalStorePath:         v.GetString("store.path"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		RedisPrefix:            v.GetString("redis.prefix"),
		NATSURL:                v.GetString("nats.url"),
		EventsChannel:          v.GetString("events.channel"),
		AirtableToken:          v.GetString("airtable.token"),
		AirtableBaseID:         v.GetString("airtable.base_id"),
		AirtableBaseURL:        v.GetString("airtable.base_url"),
		AirtableView:           v.GetString("airtable.view"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		B2AccountID:            v.GetString("b2.account_id"),
		B2ApplicationKey:       v.GetString("b2.application_key"),
		B2Bucket:               v.GetString("b2.bucket"),
		PhotoMaxSizeMB:         v.GetInt("photo.max_size_mb"),
		StatsCacheTTL:          statsTTL,
		StreamKeepAlive:        keepAlive,
		ExportRateLimit:        v.GetInt("export.rate_limit"),
		ExportRateWindow:       exportWindow,
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
		SeedOnEmptyStore:       v.GetBool("seed.on_empty"),
		PhotoFetchTimeout:      fetchTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the selected store driver has what it needs.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverLocal:
		if strings.TrimSpace(c.LocalStorePath) == "" {
			return fmt.Errorf("local store path must be provided")
		}
	case StoreDriverSQL:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("database url must be provided for the sql store")
		}
	case StoreDriverAirtable:
		if c.AirtableToken == "" || c.AirtableBaseID == "" {
			return fmt.Errorf("airtable token and base id must be provided")
		}
	case StoreDriverDocument:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("redis url must be provided for the document store")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.StoreDriver)
	}

	if c.SeedEnabled && strings.TrimSpace(c.SeedToken) == "" {
		return fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	return nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
