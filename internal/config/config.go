package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"CAMPUS_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"CAMPUS_DB_MAX_CONNS" default:"8"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`

	OracleEndpoint string        `envconfig:"ORACLE_ENDPOINT" default:""`
	OracleModel    string        `envconfig:"ORACLE_MODEL" default:"gpt-4o-mini"`
	OracleAPIKey   string        `envconfig:"ORACLE_API_KEY" default:""`
	OracleTimeout  time.Duration `envconfig:"ORACLE_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("CAMPUS_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("CAMPUS_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("CAMPUS_DB_MIN_CONNS (%d) cannot exceed CAMPUS_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.OracleTimeout < time.Second {
		return fmt.Errorf("ORACLE_TIMEOUT must be >= 1s")
	}
	if strings.TrimSpace(c.OracleModel) == "" {
		return fmt.Errorf("ORACLE_MODEL is required")
	}
	return nil
}

// OracleEnabled reports whether the semantic matching stage has a usable
// provider configured. An empty endpoint disables the stage.
func (c *Config) OracleEnabled() bool {
	return c != nil && strings.TrimSpace(c.OracleEndpoint) != ""
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
