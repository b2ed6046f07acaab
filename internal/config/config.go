package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr       = ":8080"
	DefaultAPIURL     = "http://localhost:8000/api/v1"
	DefaultDataDir    = "data"
	DefaultAPITimeout = 30 * time.Second
	DefaultStorageTTL = 30 * 24 * time.Hour
)

type Config struct {
	Addr    string `yaml:"addr"`
	APIURL  string `yaml:"api_url"`
	DataDir string `yaml:"data_dir"`

	// APITimeout bounds a single upstream request. Zero disables the bound.
	APITimeout time.Duration `yaml:"api_timeout"`

	// StorageTTL is how long an untouched browser entry survives before purge.
	StorageTTL time.Duration `yaml:"storage_ttl"`

	Security SecurityConfig `yaml:"security"`
}

type SecurityConfig struct {
	// CSRFKey is a 32 byte key. Empty disables CSRF protection.
	CSRFKey       string `yaml:"csrf_key"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

func Default() Config {
	return Config{
		Addr:       DefaultAddr,
		APIURL:     DefaultAPIURL,
		DataDir:    DefaultDataDir,
		APITimeout: DefaultAPITimeout,
		StorageTTL: DefaultStorageTTL,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and finally the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnvOverrides() error {
	c.Addr = getEnv("FAPAGRI_ADDR", c.Addr)
	c.APIURL = getEnv("FAPAGRI_API_URL", c.APIURL)
	c.DataDir = getEnv("FAPAGRI_DATA_DIR", c.DataDir)
	c.Security.CSRFKey = getEnv("FAPAGRI_CSRF_KEY", c.Security.CSRFKey)

	if v := os.Getenv("FAPAGRI_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FAPAGRI_API_TIMEOUT: %w", err)
		}
		c.APITimeout = d
	}
	if v := os.Getenv("FAPAGRI_STORAGE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FAPAGRI_STORAGE_TTL: %w", err)
		}
		c.StorageTTL = d
	}
	if v := os.Getenv("FAPAGRI_SECURE_COOKIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FAPAGRI_SECURE_COOKIES: %w", err)
		}
		c.Security.SecureCookies = b
	}
	return nil
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url %q must start with http:// or https://", c.APIURL)
	}
	if c.Security.CSRFKey != "" && len(c.Security.CSRFKey) != 32 {
		return fmt.Errorf("csrf key must be 32 bytes, got %d", len(c.Security.CSRFKey))
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("api timeout must not be negative")
	}
	return nil
}
