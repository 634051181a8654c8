package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Paystack   PaystackConfig   `yaml:"paystack"`
	Parking    ParkingConfig    `yaml:"parking"`
	Exports    ExportConfig     `yaml:"exports"`
	SeedSlots  string           `yaml:"seed_slots_path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port      int             `yaml:"port"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type AuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type PaystackConfig struct {
	SecretKey      string `yaml:"secret_key"`
	BaseURL        string `yaml:"base_url"`
	CallbackURL    string `yaml:"callback_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (p PaystackConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type ParkingConfig struct {
	DefaultRatePerHour     float64 `yaml:"default_rate_per_hour"`
	GracePeriodMinutes     int     `yaml:"grace_period_minutes"`
	LateEntryCutoffMinutes int     `yaml:"late_entry_cutoff_minutes"`
	SlotCacheTTLMinutes    int     `yaml:"slot_cache_ttl_minutes"`
}

func (p ParkingConfig) GracePeriod() time.Duration {
	return time.Duration(p.GracePeriodMinutes) * time.Minute
}

func (p ParkingConfig) LateEntryCutoff() time.Duration {
	return time.Duration(p.LateEntryCutoffMinutes) * time.Minute
}

func (p ParkingConfig) SlotCacheTTL() time.Duration {
	return time.Duration(p.SlotCacheTTLMinutes) * time.Minute
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// Load reads the YAML config, expanding ${ENV} references after merging an
// optional .env file.
func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Paystack.SecretKey == "" || c.Paystack.SecretKey == "YOUR_PAYSTACK_SECRET_KEY" {
		return errors.New("paystack secret key is required")
	}
	if c.Redis.Address == "" {
		return errors.New("redis address is required")
	}
	if c.Parking.DefaultRatePerHour <= 0 {
		return errors.New("parking default rate must be positive")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "parkgate"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Auth.HeaderAPIKey == "" {
		c.Server.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Server.Auth.HeaderExtra == "" {
		c.Server.Auth.HeaderExtra = "x-api-extra"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Paystack.TimeoutSeconds == 0 {
		c.Paystack.TimeoutSeconds = 30
	}
	if c.Parking.DefaultRatePerHour == 0 {
		c.Parking.DefaultRatePerHour = 2.0
	}
	if c.Parking.GracePeriodMinutes == 0 {
		c.Parking.GracePeriodMinutes = 10
	}
	if c.Parking.LateEntryCutoffMinutes == 0 {
		c.Parking.LateEntryCutoffMinutes = 120
	}
	if c.Parking.SlotCacheTTLMinutes == 0 {
		c.Parking.SlotCacheTTLMinutes = 5
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
}
