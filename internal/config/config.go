package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "PARKING"

type Config struct {
	App   AppConfig        `mapstructure:"app"`
	HTTP  HTTPConfig       `mapstructure:"http"`
	Auth  AuthConfig       `mapstructure:"auth"`
	API   ParkingAPIConfig `mapstructure:"api"`
	Cache CacheConfig      `mapstructure:"cache"`
}

type AppConfig struct {
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Timezone  string `mapstructure:"timezone"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// AuthConfig controls how incoming bearer tokens are checked. Without a
// secret, tokens are only decoded for expiry and role; the parking API
// remains the authority.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	RoleClaim string `mapstructure:"role_claim"`
	AdminRole string `mapstructure:"admin_role"`
}

type ParkingAPIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retries        int           `mapstructure:"retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Paths          APIPaths      `mapstructure:"paths"`
}

type APIPaths struct {
	TodayEvents   string `mapstructure:"today_events"`
	WeeklyRevenue string `mapstructure:"weekly_revenue"`
	WeeklyTraffic string `mapstructure:"weekly_traffic"`
}

type CacheConfig struct {
	Driver    string        `mapstructure:"driver"`
	FreshFor  time.Duration `mapstructure:"fresh_for"`
	RetainFor time.Duration `mapstructure:"retain_for"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")
	v.SetDefault("app.timezone", "Asia/Ho_Chi_Minh")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 5*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.role_claim", "scope")
	v.SetDefault("auth.admin_role", "ADMIN")

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.user_agent", "parking-dashboard")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.retries", 2)
	v.SetDefault("api.initial_backoff", 200*time.Millisecond)
	v.SetDefault("api.max_backoff", 2*time.Second)
	v.SetDefault("api.paths.today_events", "/vehicle-events/today")
	v.SetDefault("api.paths.weekly_revenue", "/statistics/revenue/week")
	v.SetDefault("api.paths.weekly_traffic", "/statistics/traffic/week")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.fresh_for", 30*time.Second)
	v.SetDefault("cache.retain_for", 24*time.Hour)
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
}

// Load reads .env (if present), the optional config file at path and
// PARKING_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%s_API_BASE_URL is required", EnvPrefix)
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("api.retries must not be negative")
	}
	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}
	if c.Cache.FreshFor < 0 {
		return fmt.Errorf("cache.fresh_for must not be negative")
	}
	if c.Cache.RetainFor < c.Cache.FreshFor {
		return fmt.Errorf("cache.retain_for must be at least cache.fresh_for")
	}
	if c.Cache.Driver == "redis" && c.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required for the redis driver")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
