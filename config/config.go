package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// PlaceholderSecret ships in config.yml so local runs start; production refuses it.
const PlaceholderSecret = "change-me-in-production"

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
	ResetTokenTTL  time.Duration `mapstructure:"resetTokenTTL"`
}

type AuthConfig struct {
	BcryptCost          int           `mapstructure:"bcryptCost"`
	MaxFailedAttempts   int           `mapstructure:"maxFailedAttempts"`
	LockoutWindow       time.Duration `mapstructure:"lockoutWindow"`
	UniformLoginErrors  bool          `mapstructure:"uniformLoginErrors"`
	BootstrapResetToken string        `mapstructure:"bootstrapResetToken"`
}

type AuditConfig struct {
	Sink        string `mapstructure:"sink"`
	Async       bool   `mapstructure:"async"`
	BufferSize  int    `mapstructure:"bufferSize"`
	RedisStream string `mapstructure:"redisStream"`
}

type BootstrapConfig struct {
	AdminUsername   string `mapstructure:"adminUsername"`
	AdminPassword   string `mapstructure:"adminPassword"`
	SeedPermissions bool   `mapstructure:"seedPermissions"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Password          string `mapstructure:"password"`
	Port              string `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	DB                string `mapstructure:"db"`
	SSLMODE           string `mapstructure:"SSLMODE"`
	MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
		Redis    RedisConfig    `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	JWT           JWTConfig       `mapstructure:"jwt"`
	Auth          AuthConfig      `mapstructure:"auth"`
	Audit         AuditConfig     `mapstructure:"audit"`
	Bootstrap     BootstrapConfig `mapstructure:"bootstrap"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

// IsTestMode reports whether test-only affordances may be enabled.
func (c Config) IsTestMode() bool {
	return strings.EqualFold(c.Mode, "test")
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Mode, "production")
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Mode, "development")
}

// Warnings lists settings that are accepted but unsafe outside a workstation.
func (c Config) Warnings() []string {
	var warnings []string
	if c.JWT.SecretKey == PlaceholderSecret && !c.IsTestMode() {
		warnings = append(warnings, "jwt.secretKey holds the placeholder value; set APP_JWT_SECRETKEY")
	}
	return warnings
}

// Validate rejects configurations the service must not start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		errs = append(errs, errors.New("jwt.secretKey must be set"))
	}
	if c.JWT.SecretKey == PlaceholderSecret && !c.IsTestMode() && !c.IsDevelopment() {
		errs = append(errs, errors.New("jwt.secretKey still holds the placeholder value"))
	}
	if c.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.accessTokenTTL must be positive"))
	}
	if c.JWT.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.resetTokenTTL must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcryptCost %d out of range [4, 31]", c.Auth.BcryptCost))
	}
	if c.Auth.MaxFailedAttempts < 0 {
		errs = append(errs, errors.New("auth.maxFailedAttempts must not be negative"))
	}
	switch c.Audit.Sink {
	case "postgres", "log":
	case "redis":
		if c.Audit.RedisStream == "" {
			errs = append(errs, errors.New("audit.redisStream must be set for the redis sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit.sink %q", c.Audit.Sink))
	}
	return errors.Join(errs...)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func InitConfig() (Config, error) {
	v := newViper()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	return decode(v)
}

// LoadEmbedded reads only the embedded defaults plus environment overrides.
func LoadEmbedded() (Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
