package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every option, e.g. EMA_INPUT_DIR.
const envPrefix = "EMA"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	InputDir  string `envconfig:"INPUT_DIR" validate:"required"`
	OutputDir string `envconfig:"OUTPUT_DIR" validate:"required"`

	HeaderRows    int    `envconfig:"HEADER_ROWS" default:"4" validate:"gte=0"`
	DailyMarker   string `envconfig:"DAILY_MARKER" default:"Daily" validate:"required"`
	EveningMarker string `envconfig:"EVENING_MARKER" default:"Evening" validate:"required,nefield=DailyMarker"`
	IDLength      int    `envconfig:"ID_LENGTH" default:"4" validate:"gte=1"`

	MaxConcurrency    int    `envconfig:"MAX_CONCURRENCY" default:"1" validate:"gte=1,lte=64"`
	FailFast          bool   `envconfig:"FAIL_FAST" default:"false"`
	DropPartialGroups bool   `envconfig:"DROP_PARTIAL_GROUPS" default:"false"`
	SummaryPath       string `envconfig:"SUMMARY_PATH"`
	MaxRetries        int    `envconfig:"MAX_RETRIES" default:"3" validate:"gte=1"`
	Verbose           bool   `envconfig:"VERBOSE" default:"false"`

	PostgresEnabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost" validate:"required_if=PostgresEnabled true"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"ema"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"ema"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"ema"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
}

// Load reads the .env file (if any) and returns a populated Config.
// An empty envFile means ".env" in the working directory. Validation is left
// to the caller so command-line flags can fill in missing directories first.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
		log.Printf("[config] No %s file found, falling back to system env vars", envFile)
	}

	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config: invalid %s (%s)", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
