package config

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port                   string        `mapstructure:"PORT"`
	Env                    string        `mapstructure:"ENV"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32         `mapstructure:"DB_MIN_CONNS"`
	DefaultTenant          string        `mapstructure:"DEFAULT_TENANT"`
	RedisURL               string        `mapstructure:"REDIS_URL"`
	ConceptCacheTTL        time.Duration `mapstructure:"CONCEPT_CACHE_TTL"`
	AuthIssuer             string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL            string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience           string        `mapstructure:"AUTH_AUDIENCE"`
	RateLimitRPS           float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst         int           `mapstructure:"RATE_LIMIT_BURST"`
	ConsultEncounterType   string        `mapstructure:"CONSULT_ENCOUNTER_TYPE"`
	AdmissionEncounterType string        `mapstructure:"ADMISSION_ENCOUNTER_TYPE"`
	CORSOrigins            []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CONCEPT_CACHE_TTL", "10m")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CORS_ORIGINS", []string{"*"})

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DEFAULT_TENANT",
		"REDIS_URL", "CONCEPT_CACHE_TTL", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CONSULT_ENCOUNTER_TYPE", "ADMISSION_ENCOUNTER_TYPE",
		"CORS_ORIGINS",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development); all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EncounterTypes parses the configured consult and admission encounter type ids.
func (c *Config) EncounterTypes() (consult, admission uuid.UUID, err error) {
	consult, err = uuid.Parse(c.ConsultEncounterType)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("CONSULT_ENCOUNTER_TYPE is not a valid uuid: %w", err)
	}
	admission, err = uuid.Parse(c.AdmissionEncounterType)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("ADMISSION_ENCOUNTER_TYPE is not a valid uuid: %w", err)
	}
	return consult, admission, nil
}

// Validate checks that the configuration is safe to run. Outside development
// AUTH_ISSUER must be set so that real JWT authentication is enforced, and the
// ADT encounter types must always be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ISSUER must be set when ENV=%q", c.Env)
	}
	consult, admission, err := c.EncounterTypes()
	if err != nil {
		return err
	}
	if consult == admission {
		return fmt.Errorf("CONSULT_ENCOUNTER_TYPE and ADMISSION_ENCOUNTER_TYPE must differ")
	}
	if c.ConceptCacheTTL < 0 {
		return fmt.Errorf("CONCEPT_CACHE_TTL must not be negative")
	}
	return nil
}
