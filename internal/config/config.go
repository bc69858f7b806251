package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Chat      ChatConfig      `yaml:"chat"`
	Media     MediaConfig     `yaml:"media"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// HTTPConfig holds server timeouts. ReadTimeout and WriteTimeout cover whole
// bodies and stay 0 unless set; ReadHeaderTimeout bounds slow clients.
type HTTPConfig struct {
	Address           string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env-default:"10s"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" env-default:"120s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DSN             string        `yaml:"dsn" env:"DB_DSN"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

// AuthConfig selects how bearer tokens are verified.
// Provider "oidc" talks to IssuerURL, "hmac" checks HS256 tokens signed with HMACSecret.
type AuthConfig struct {
	Provider   string        `yaml:"provider" env:"AUTH_PROVIDER" env-default:"oidc"`
	IssuerURL  string        `yaml:"issuer_url" env:"AUTH_ISSUER_URL"`
	ClientID   string        `yaml:"client_id" env:"AUTH_CLIENT_ID"`
	HMACSecret string        `yaml:"hmac_secret" env:"AUTH_HMAC_SECRET"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" env-default:"1"`
	Interval         time.Duration `yaml:"interval" env-default:"60s"`
	Timeout          time.Duration `yaml:"timeout" env-default:"30s"`
	FailureThreshold uint32        `yaml:"failure_threshold" env-default:"5"`
}

type ChatConfig struct {
	StorePath    string `yaml:"store_path" env:"CHAT_STORE_PATH" env-default:"data/chat.db"`
	HistoryLimit int    `yaml:"history_limit" env-default:"50"`
}

type MediaConfig struct {
	Dir               string   `yaml:"dir" env:"MEDIA_DIR" env-default:"uploads/study_rooms"`
	MaxSize           int64    `yaml:"max_size" env:"MEDIA_MAX_SIZE" env-default:"52428800"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-separator:","`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	RPS     float64 `yaml:"rps" env-default:"20"`
	Burst   int     `yaml:"burst" env-default:"40"`
}

const envProd = "prod"

var defaultExtensions = []string{"pdf", "doc", "docx", "jpg", "png", "mp4", "mov", "txt"}

func MustLoad(flagPath string) *Config {
	configPath := fetchConfigPath(flagPath)
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// fetchConfigPath resolves the config file: flag value, then CONFIG_PATH, then config/local.yaml.
func fetchConfigPath(flagPath string) string {
	res := flagPath

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.Media.AllowedExtensions) == 0 {
		c.Media.AllowedExtensions = append([]string(nil), defaultExtensions...)
	}
	for i, ext := range c.Media.AllowedExtensions {
		c.Media.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = 50
	}
	// prod must name its origins; see validate
	if len(c.CORS.AllowOrigins) == 0 && c.Env != envProd {
		c.CORS.AllowOrigins = []string{"*"}
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is empty")
	}

	switch c.Auth.Provider {
	case "oidc":
		if c.Auth.IssuerURL == "" || c.Auth.ClientID == "" {
			return errors.New("auth: oidc provider needs issuer_url and client_id")
		}
	case "hmac":
		if c.Auth.HMACSecret == "" {
			return errors.New("auth: hmac provider needs hmac_secret")
		}
	default:
		return fmt.Errorf("unsupported auth provider %q", c.Auth.Provider)
	}

	if c.Env == envProd {
		if len(c.CORS.AllowOrigins) == 0 {
			return errors.New("cors: allow_origins is required in prod")
		}
		for _, origin := range c.CORS.AllowOrigins {
			if origin == "*" {
				return errors.New("cors: wildcard origin is not allowed in prod")
			}
		}
	}

	if c.HTTP.ReadHeaderTimeout <= 0 {
		return errors.New("http: read_header_timeout must be positive")
	}

	if c.Media.MaxSize <= 0 {
		return errors.New("media: max_size must be positive")
	}
	return nil
}
