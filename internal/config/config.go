package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"roomreserve/internal/models"
	"roomreserve/internal/schedule"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Admin      AdminConfig      `yaml:"admin"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite3 | postgres
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	Timezone         string          `yaml:"timezone"`
	DuplicateWindow  int             `yaml:"duplicate_window"`   // seconds
	CalendarCacheTTL int             `yaml:"calendar_cache_ttl"` // seconds, 0 disables
	Defaults         models.Settings `yaml:"defaults"`
}

// Location resolves the configured timezone, falling back to time.Local.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(b.Timezone)
}

type AdminConfig struct {
	Password string `yaml:"password"`
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
	Debug        bool    `yaml:"debug"`
}

// Enabled reports whether admin notifications should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && len(t.AdminChatIDs) > 0
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
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
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("booking timezone: %w", err)
	}

	if c.Admin.Password == "" {
		return errors.New("admin password is required")
	}

	return ValidateSettings(c.Booking.Defaults)
}

// ValidateSettings checks business hours and booking limits.
func ValidateSettings(s models.Settings) error {
	start, err := schedule.ParseClock(s.BusinessStartTime)
	if err != nil {
		return fmt.Errorf("business_start_time: %w", err)
	}
	end, err := schedule.ParseClock(s.BusinessEndTime)
	if err != nil {
		return fmt.Errorf("business_end_time: %w", err)
	}
	if start >= end {
		return errors.New("business_start_time must be before business_end_time")
	}
	if s.BookingIntervalMinutes <= 0 {
		return errors.New("booking_interval_minutes must be positive")
	}
	if s.MaxBookingDays < 0 {
		return errors.New("max_booking_days must not be negative")
	}
	return nil
}

// ValidateRooms checks the room seed list.
func ValidateRooms(rooms []models.Room) error {
	roomIDs := make(map[string]bool)
	for _, room := range rooms {
		if room.ID == "" {
			return fmt.Errorf("room '%s' has empty ID", room.Name)
		}
		if roomIDs[room.ID] {
			return fmt.Errorf("duplicate room ID found: %s", room.ID)
		}
		if room.Capacity <= 0 {
			return fmt.Errorf("room '%s' has invalid capacity %d", room.ID, room.Capacity)
		}
		roomIDs[room.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "roomreserve"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = models.DefaultRedisKeyPrefix
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = models.RateLimitRPS
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = models.RateLimitBurst
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Interval == "" {
		c.Backup.Interval = "24h"
	}

	// Booking defaults
	if c.Booking.DuplicateWindow == 0 {
		c.Booking.DuplicateWindow = models.DefaultDuplicateWindow
	}
	if c.Booking.CalendarCacheTTL == 0 {
		c.Booking.CalendarCacheTTL = models.DefaultCalendarCacheTTL
	}
	d := &c.Booking.Defaults
	if d.BusinessStartTime == "" {
		d.BusinessStartTime = models.DefaultBusinessStartTime
	}
	if d.BusinessEndTime == "" {
		d.BusinessEndTime = models.DefaultBusinessEndTime
	}
	if d.BookingIntervalMinutes == 0 {
		d.BookingIntervalMinutes = models.DefaultBookingIntervalMinutes
	}
	if d.MaxBookingDays == 0 {
		d.MaxBookingDays = models.DefaultMaxBookingDays
	}
}
