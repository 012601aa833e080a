package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseOptions struct {
	Driver     string `env:"DB_DRIVER" envDefault:"mysql"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"3306"`
	User       string `env:"DB_USER" envDefault:"root"`
	Password   string `env:"DB_PASSWORD"`
	Name       string `env:"DB_NAME" envDefault:"locum_staffing"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"locum.db"`
}

// DSN returns the MySQL connection string.
func (d *DatabaseOptions) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type RateLimitOptions struct {
	RPS        float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	Burst      int     `env:"RATE_LIMIT_BURST" envDefault:"100"`
	LoginLimit string  `env:"LOGIN_RATE_LIMIT" envDefault:"10-M"`
	Storage    string  `env:"RATE_LIMIT_STORAGE" envDefault:"memory"`
	RedisURL   string  `env:"REDIS_URL"`
}

func (r *RateLimitOptions) Validate() error {
	if r.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be non-negative, got %v", r.RPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("RATE_LIMIT_STORAGE must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORAGE is 'redis'")
	}
	return nil
}

type MatchOptions struct {
	SameDepartment bool `env:"MATCH_DEPARTMENT" envDefault:"false"`
	SameLocation   bool `env:"MATCH_LOCATION" envDefault:"false"`
}

type Config struct {
	Database  DatabaseOptions
	RateLimit RateLimitOptions
	Match     MatchOptions

	Port              string        `env:"PORT" envDefault:"8080"`
	GinMode           string        `env:"GIN_MODE" envDefault:"debug"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTTTL            time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CORSOrigin        string        `env:"CORS_ORIGIN" envDefault:"*"`
	EventPollInterval time.Duration `env:"EVENT_POLL_INTERVAL" envDefault:"1s"`
	SeedFile          string        `env:"SEED_FILE" envDefault:"database/seed.yaml"`
	MetricsEnabled    bool          `env:"METRICS_ENABLED" envDefault:"true"`
	IdempotencyTTL    time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// Load reads the optional .env file and parses the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be 'mysql' or 'sqlite', got '%s'", c.Database.Driver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return c.RateLimit.Validate()
}

// InitDB opens the configured database.
func InitDB(cfg *Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.SQLitePath + "?_foreign_keys=on")
	default:
		dialector = mysql.Open(cfg.Database.DSN())
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	utils.InfoLogger.Printf("Connected to %s database", cfg.Database.Driver)
	return db, nil
}
