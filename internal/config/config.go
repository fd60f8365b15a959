package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"` // empty disables caching and run locks
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GatewayConfig struct {
	BaseURL   string        `yaml:"base_url"`
	ServerKey string        `yaml:"server_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

type IdentityConfig struct {
	BaseURL string `yaml:"base_url"` // empty disables the external fallback
	APIKey  string `yaml:"api_key"`
}

type ReconcileConfig struct {
	OrderPrefix  string   `yaml:"order_prefix"`
	DurationDays int      `yaml:"duration_days"`
	PackageIDs   []string `yaml:"package_ids"` // operator allow-list
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Identity  IdentityConfig  `yaml:"identity"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Admin     AdminConfig     `yaml:"admin"`
}

// Load reads the YAML config (the file may be absent; env vars alone can
// configure a run), overlays environment variables, applies defaults and
// validates. Any error here is fatal before side effects.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case os.IsNotExist(err):
			// env-only configuration
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url (or DATABASE_URL) is required")
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("MIDTRANS_BASE_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("MIDTRANS_SERVER_KEY"); v != "" {
		c.Gateway.ServerKey = v
	}
	if v := os.Getenv("FIREBASE_BASE_URL"); v != "" {
		c.Identity.BaseURL = v
	}
	if v := os.Getenv("FIREBASE_API_KEY"); v != "" {
		c.Identity.APIKey = v
	}
	if v := os.Getenv("RECONCILE_ORDER_PREFIX"); v != "" {
		c.Reconcile.OrderPrefix = v
	}
	if v := os.Getenv("RECONCILE_PACKAGE_IDS"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		c.Reconcile.PackageIDs = ids
	}
	if v := os.Getenv("RECONCILE_ACCESS_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Reconcile.DurationDays = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = time.Hour
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = "https://api.midtrans.com"
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 10 * time.Second
	}
	if c.Reconcile.OrderPrefix == "" {
		c.Reconcile.OrderPrefix = "FRM-"
	}
	if c.Reconcile.DurationDays <= 0 {
		c.Reconcile.DurationDays = 30
	}
	if c.Admin.Port <= 0 {
		c.Admin.Port = 9090
	}
}
