package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ScorerStatic = "static"
	ScorerRemote = "remote"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`
	GatewayURL     string        `mapstructure:"GATEWAY_URL"`
	GatewayTimeout time.Duration `mapstructure:"GATEWAY_TIMEOUT"`
	AnalysisDelay  time.Duration `mapstructure:"ANALYSIS_DELAY"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	Scorer         string        `mapstructure:"SCORER"`
	PDFFontPath    string        `mapstructure:"PDF_FONT_PATH"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT",
	"ENV",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"GATEWAY_URL",
	"GATEWAY_TIMEOUT",
	"ANALYSIS_DELAY",
	"SESSION_TTL",
	"SCORER",
	"PDF_FONT_PATH",
	"CORS_ORIGINS",
}

// Load reads the environment and an optional .env file in the working
// directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GATEWAY_URL", "http://localhost:5000/api")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("ANALYSIS_DELAY", "2s")
	v.SetDefault("SESSION_TTL", "1h")
	v.SetDefault("SCORER", ScorerStatic)
	v.SetDefault("CORS_ORIGINS", "*")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 0 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	cfg.Scorer = strings.ToLower(strings.TrimSpace(cfg.Scorer))
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
		if cfg.IsDev() {
			cfg.LogFormat = "console"
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Scorer != ScorerStatic && c.Scorer != ScorerRemote {
		return fmt.Errorf("SCORER must be %q or %q, got %q", ScorerStatic, ScorerRemote, c.Scorer)
	}
	if c.AnalysisDelay < 0 {
		return fmt.Errorf("ANALYSIS_DELAY must not be negative, got %s", c.AnalysisDelay)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative, got %s", c.SessionTTL)
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %s", c.GatewayTimeout)
	}
	if c.Scorer == ScorerRemote && c.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL is required when SCORER is %q", ScorerRemote)
	}
	return nil
}
