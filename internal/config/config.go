package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Log     LogConfig
	Store   StoreConfig
	Redis   RedisConfig
	Pending PendingConfig
	Journal JournalConfig
	Economy EconomyConfig
	Auth    AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"chatbot-economy"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:""` // json or text; empty picks by environment
}

// StoreConfig selects and configures the account store.
type StoreConfig struct {
	Type    string        `envconfig:"STORE_TYPE" default:"sqlite"` // memory, bolt, sqlite, postgres, mysql, mongodb
	Path    string        `envconfig:"STORE_PATH" default:"./data/economy.db"`
	Timeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	Name     string `envconfig:"STORE_DB_NAME" default:"economy"`
	User     string `envconfig:"STORE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"economy"`
}

// RedisConfig holds Redis connection settings shared by the pending
// tracker and the journal buffer.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// PendingConfig selects the pending loan request tracker.
type PendingConfig struct {
	Type string `envconfig:"PENDING_TYPE" default:"memory"` // memory or redis
}

// JournalConfig controls how journal entries reach the store.
type JournalConfig struct {
	Buffer        string        `envconfig:"JOURNAL_BUFFER" default:"none"` // none or redis
	FlushInterval time.Duration `envconfig:"JOURNAL_FLUSH_INTERVAL" default:"5s"`
}

// EconomyConfig holds the economy tunables.
type EconomyConfig struct {
	TransferFeeBps  int64         `envconfig:"TRANSFER_FEE_BPS" default:"500"`
	GiftMaxAmount   int64         `envconfig:"GIFT_MAX_AMOUNT" default:"10000"`
	ExpPerActivity  int64         `envconfig:"EXP_PER_ACTIVITY" default:"5"`
	LoanTTL         time.Duration `envconfig:"LOAN_TTL" default:"5m"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	DailyTimezone   string        `envconfig:"DAILY_TIMEZONE" default:"UTC"`
	GambleRateLimit float64       `envconfig:"GAMBLE_RATE_LIMIT" default:"1"` // requests per second per user
	GambleRateBurst int           `envconfig:"GAMBLE_RATE_BURST" default:"3"`
}

// AuthConfig holds API and admin keys.
type AuthConfig struct {
	APIKeys   []string `envconfig:"API_KEYS" default:""`
	AdminKeys []string `envconfig:"ADMIN_KEYS" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Location resolves DailyTimezone.
func (e *EconomyConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.DailyTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_TIMEZONE %q: %w", e.DailyTimezone, err)
	}
	return loc, nil
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Type) {
	case "memory", "bolt", "sqlite", "postgres", "mysql", "mongodb":
	default:
		return fmt.Errorf("unsupported STORE_TYPE %q", c.Store.Type)
	}
	switch strings.ToLower(c.Pending.Type) {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported PENDING_TYPE %q", c.Pending.Type)
	}
	switch strings.ToLower(c.Journal.Buffer) {
	case "none", "redis":
	default:
		return fmt.Errorf("unsupported JOURNAL_BUFFER %q", c.Journal.Buffer)
	}
	if c.Economy.TransferFeeBps < 0 || c.Economy.TransferFeeBps > 10000 {
		return fmt.Errorf("TRANSFER_FEE_BPS must be within [0, 10000]")
	}
	if c.Economy.GiftMaxAmount <= 0 {
		return fmt.Errorf("GIFT_MAX_AMOUNT must be positive")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if _, err := c.Economy.Location(); err != nil {
		return err
	}
	if c.App.IsProduction() && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("API_KEYS is required in production")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
