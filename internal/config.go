package internal

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session policy defaults. The session lifetime lives here rather than in the
// session manager so operators see the value next to the rest of the config.
const (
	DefaultSessionTTL     = 12 * time.Hour
	DefaultSweepInterval  = 5 * time.Minute
	DefaultHashCostFactor = 12
	DefaultHashAlgorithm  = "bcrypt"
	DefaultLoginPerMinute = 20
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Federation    FederationConfig    `mapstructure:"federation"`
	Session       SessionConfig       `mapstructure:"session"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	TrustedProxies    string        `mapstructure:"trusted_proxies"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// SecurityConfig holds the recognized identity options: session lifetime,
// the super-admin allow-list and password hashing parameters.
type SecurityConfig struct {
	SessionTTL                 time.Duration `mapstructure:"session_ttl"`
	SuperAdminEmail            string        `mapstructure:"super_admin_email"`
	SuperAdminProviderUsername string        `mapstructure:"super_admin_provider_username"`
	HashCostFactor             int           `mapstructure:"hash_cost_factor" validate:"min=10,max=15"`
	HashAlgorithm              string        `mapstructure:"hash_algorithm" validate:"oneof=bcrypt argon2id"`
}

// FederationConfig describes how federated ID tokens are verified.
type FederationConfig struct {
	Provider   string `mapstructure:"provider"`
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
	HMACSecret string `mapstructure:"hmac_secret"`
	PublicKey  string `mapstructure:"public_key"`
}

type SessionConfig struct {
	Store         string        `mapstructure:"store" validate:"oneof=database redis"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Security.SessionTTL <= 0 {
		c.Security.SessionTTL = DefaultSessionTTL
	}
	if c.Security.HashCostFactor == 0 {
		c.Security.HashCostFactor = DefaultHashCostFactor
	}
	if c.Security.HashAlgorithm == "" {
		c.Security.HashAlgorithm = DefaultHashAlgorithm
	}
	if c.Session.Store == "" {
		c.Session.Store = "database"
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = DefaultSweepInterval
	}
	if c.RateLimit.LoginPerMinute <= 0 {
		c.RateLimit.LoginPerMinute = DefaultLoginPerMinute
	}
	if c.Federation.Provider == "" {
		c.Federation.Provider = "oidc"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration from plain environment variables.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			TrustedProxies:    getEnv("TRUSTED_PROXIES", ""),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			SessionTTL:                 time.Duration(getEnvAsInt("SESSION_TTL_SECONDS", 0)) * time.Second,
			SuperAdminEmail:            getEnv("SUPER_ADMIN_EMAIL", ""),
			SuperAdminProviderUsername: getEnv("SUPER_ADMIN_PROVIDER_USERNAME", ""),
			HashCostFactor:             getEnvAsInt("HASH_COST_FACTOR", 0),
			HashAlgorithm:              getEnv("HASH_ALGORITHM", ""),
		},
		Federation: FederationConfig{
			Provider:   getEnv("FEDERATION_PROVIDER", ""),
			Issuer:     getEnv("FEDERATION_ISSUER", ""),
			Audience:   getEnv("FEDERATION_AUDIENCE", ""),
			HMACSecret: getEnv("FEDERATION_HMAC_SECRET", ""),
			PublicKey:  getEnv("FEDERATION_PUBLIC_KEY", ""),
		},
		Session: SessionConfig{
			Store:         getEnv("SESSION_STORE", ""),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 0),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "false") == "true",
				Path:    getEnv("METRICS_PATH", ""),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", ""),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Federation.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("federation config: %v", err))
	}

	if err := c.Session.Validate(c.Redis); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	for _, entry := range strings.Split(c.TrustedProxies, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("invalid trusted proxy %q", entry)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.HashCostFactor < 10 || c.HashCostFactor > 15 {
		return fmt.Errorf("hash_cost_factor must be between 10 and 15, got %d", c.HashCostFactor)
	}
	switch c.HashAlgorithm {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("unsupported hash_algorithm %q", c.HashAlgorithm)
	}
	if c.SuperAdminEmail != "" && !strings.Contains(c.SuperAdminEmail, "@") {
		return errors.New("super_admin_email must be an email address")
	}
	return nil
}

// SuperAdminUsername is the username given to the provisioned super-admin
// profile: the provider username when configured, otherwise the local part of
// the allow-listed email.
func (c *SecurityConfig) SuperAdminUsername() string {
	if u := strings.TrimSpace(c.SuperAdminProviderUsername); u != "" {
		return u
	}
	email := strings.TrimSpace(c.SuperAdminEmail)
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return ""
}

func (c *FederationConfig) Validate() error {
	if c.HMACSecret != "" && c.PublicKey != "" {
		return errors.New("configure either hmac_secret or public_key, not both")
	}
	if c.HMACSecret != "" && len(c.HMACSecret) < 32 {
		return errors.New("hmac_secret must be at least 32 characters")
	}
	return nil
}

// Enabled reports whether federated logins can be verified at all.
func (c *FederationConfig) Enabled() bool {
	return c.HMACSecret != "" || c.PublicKey != ""
}

func (c *SessionConfig) Validate(redis RedisConfig) error {
	switch c.Store {
	case "database":
	case "redis":
		if redis.Addr == "" {
			return errors.New("redis.addr is required when session.store is redis")
		}
	default:
		return fmt.Errorf("unsupported session store %q", c.Store)
	}
	return nil
}
