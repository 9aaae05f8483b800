package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	authapi "postboard/cmd/internal/auth/api"
	"postboard/cmd/internal/posts"
	"postboard/cmd/internal/upload"
	"postboard/cmd/security/password"
)

// Storage drivers accepted by POSTBOARD_DB_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"POSTBOARD_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"POSTBOARD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"POSTBOARD_LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"POSTBOARD_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"POSTBOARD_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"POSTBOARD_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"POSTBOARD_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"POSTBOARD_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	DBDriver      string `env:"POSTBOARD_DB_DRIVER" envDefault:"memory"`
	DatabaseURL   string `env:"POSTBOARD_DATABASE_URL"`
	DBSchema      string `env:"POSTBOARD_DB_SCHEMA" envDefault:"public"`
	DBMaxConns    int32  `env:"POSTBOARD_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32  `env:"POSTBOARD_DB_MIN_CONNS" envDefault:"0"`
	DBApplySchema bool   `env:"POSTBOARD_DB_APPLY_SCHEMA" envDefault:"false"`
	SQLitePath    string `env:"POSTBOARD_SQLITE_PATH" envDefault:"postboard.db"`

	// If true, /readyz returns 503 while running on the memory driver.
	ReadinessRequireDB bool `env:"POSTBOARD_READINESS_REQUIRE_DB" envDefault:"false"`

	JWTSecret string        `env:"POSTBOARD_JWT_SECRET"`
	JWTTTL    time.Duration `env:"POSTBOARD_JWT_TTL" envDefault:"1h"`
	JWTIssuer string        `env:"POSTBOARD_JWT_ISSUER" envDefault:"postboard"`

	CORSAllowedOrigins []string `env:"POSTBOARD_CORS_ALLOWED_ORIGINS" envSeparator:","`

	Auth     authapi.Config
	Posts    posts.Config
	Upload   upload.Config
	Password password.Config
}

// LoadConfig reads an optional .env file and then parses the environment.
// Variables already set in the process environment take precedence over the file.
func LoadConfig() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.Auth = cfg.Auth.Normalize()
	cfg.Password = cfg.Password.Normalize()
	if err := cfg.Password.CheckParams(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// loadEnvFile loads POSTBOARD_ENV_FILE, which must exist when set.
// Without it, ./.env is loaded only if present.
func loadEnvFile() error {
	if path := strings.TrimSpace(os.Getenv("POSTBOARD_ENV_FILE")); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
		return nil
	}

	if _, err := os.Stat(".env"); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat .env: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}
