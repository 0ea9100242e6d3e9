package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Booking    BookingConfig    `yaml:"booking"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool" envconfig:"worker_pool"`
	Events     EventsConfig     `yaml:"events"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" envconfig:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key" envconfig:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port             int     `yaml:"port"`
	RateLimitPerSec  float64 `yaml:"rate_limit_per_sec" envconfig:"rate_limit_per_sec"`
	RateLimitBurst   int     `yaml:"rate_limit_burst" envconfig:"rate_limit_burst"`
	CacheTTLSeconds  int     `yaml:"cache_ttl_seconds" envconfig:"cache_ttl_seconds"`
	ShutdownTimeoutS int     `yaml:"shutdown_timeout_seconds" envconfig:"shutdown_timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns" envconfig:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns" envconfig:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" envconfig:"conn_max_lifetime_minutes"`
	EnableRangeIndexes     bool   `yaml:"enable_range_indexes" envconfig:"enable_range_indexes"`
}

// ChairConfig declares one chair of the fixed pool.
type ChairConfig struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// BookingConfig holds the reservation and fee rules.
type BookingConfig struct {
	RatePerMinute        int64         `yaml:"rate_per_minute" envconfig:"rate_per_minute"`
	Currency             string        `yaml:"currency"`
	AdvanceBookingHours  int           `yaml:"advance_booking_hours" envconfig:"advance_booking_hours"`
	AdvanceBooking       time.Duration `yaml:"-" ignored:"true"`
	CardReservationLimit int           `yaml:"card_reservation_limit" envconfig:"card_reservation_limit"`
	Timezone             string        `yaml:"timezone"`
	PaymentDelayMillis   int           `yaml:"payment_delay_millis" envconfig:"payment_delay_millis"`
	Chairs               []ChairConfig `yaml:"chairs" ignored:"true"`
}

// AuthConfig holds the identity token settings.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret" envconfig:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes" envconfig:"token_ttl_minutes"`
	BcryptCost      int    `yaml:"bcrypt_cost" envconfig:"bcrypt_cost"`
}

// EventsConfig configures the optional AMQP event feed. Empty URL disables it.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url" envconfig:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// SweeperConfig controls the expired-reservation sweeper.
type SweeperConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds" envconfig:"interval_seconds"`
	Interval        time.Duration `yaml:"-" ignored:"true"`
	RetentionHours  int           `yaml:"retention_hours" envconfig:"retention_hours"`
	Retention       time.Duration `yaml:"-" ignored:"true"`
}

// Load reads the configuration from the given path, then applies CHAIRD_*
// environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process("chaird", &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset values and derives durations.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.ShutdownTimeoutS <= 0 {
		cfg.Server.ShutdownTimeoutS = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Booking.RatePerMinute <= 0 {
		cfg.Booking.RatePerMinute = 100
	}
	if cfg.Booking.Currency == "" {
		cfg.Booking.Currency = "JPY"
	}
	if cfg.Booking.AdvanceBookingHours <= 0 {
		cfg.Booking.AdvanceBookingHours = 6
	}
	cfg.Booking.AdvanceBooking = time.Duration(cfg.Booking.AdvanceBookingHours) * time.Hour
	if cfg.Booking.CardReservationLimit <= 0 {
		cfg.Booking.CardReservationLimit = 2
	}
	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Asia/Tokyo"
	}
	if len(cfg.Booking.Chairs) == 0 {
		for i := int64(1); i <= 5; i++ {
			cfg.Booking.Chairs = append(cfg.Booking.Chairs, ChairConfig{ID: i, Name: fmt.Sprintf("チェア %d", i)})
		}
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 60
	}
	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 10
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "chairs"
	}

	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 60
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second
	if cfg.Sweeper.RetentionHours <= 0 {
		cfg.Sweeper.RetentionHours = 24 * 30
	}
	cfg.Sweeper.Retention = time.Duration(cfg.Sweeper.RetentionHours) * time.Hour
}
