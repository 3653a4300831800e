package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration, sourced from the environment
type Config struct {
	HTTPAddr                 string
	DBConnStr                string
	DefaultReferenceCurrency string
	CollaboratorTimeout      time.Duration
	SeedRates                bool
}

// Load reads the configuration from environment variables, applying
// defaults suitable for a local run
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "finref")
	v.SetDefault("DEFAULT_REFERENCE_CURRENCY", "CHF")
	v.SetDefault("COLLABORATOR_TIMEOUT", "5s")
	v.SetDefault("SEED_RATES", true)

	connStr := v.GetString("DB_CONN_STR")
	if connStr == "" {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			v.GetString("DB_HOST"),
			v.GetString("DB_PORT"),
			v.GetString("DB_USER"),
			v.GetString("DB_PASSWORD"),
			v.GetString("DB_NAME"),
		)
	}

	timeout := v.GetDuration("COLLABORATOR_TIMEOUT")
	if timeout <= 0 {
		return nil, fmt.Errorf("COLLABORATOR_TIMEOUT must be positive, got %q", v.GetString("COLLABORATOR_TIMEOUT"))
	}

	return &Config{
		HTTPAddr:                 v.GetString("HTTP_ADDR"),
		DBConnStr:                connStr,
		DefaultReferenceCurrency: v.GetString("DEFAULT_REFERENCE_CURRENCY"),
		CollaboratorTimeout:      timeout,
		SeedRates:                v.GetBool("SEED_RATES"),
	}, nil
}
