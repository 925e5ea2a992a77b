package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Port             string
	APIBaseURL       string
	APITimeout       time.Duration
	GatewayAPIPrefix string
	GatewayScriptURL string

	StoreDriver    string
	RedisURL       string
	DBDSN          string
	StoreTTL       time.Duration
	StoreRetention time.Duration

	PlatformFee      decimal.Decimal
	CheckoutClearBag bool

	SessionIdleTTL time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CookieSecure   bool

	LogLevel  string
	LogPretty bool
}

// source resolves a key from the environment first, then the optional
// YAML file.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := s.file[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (s source) getInt(key string, def int) (int, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func (s source) getFloat(key string, def float64) (float64, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func (s source) getDuration(key string, def time.Duration) (time.Duration, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func (s source) getBool(key string, def bool) (bool, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// readFile loads a flat KEY: value YAML document.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return out, nil
}

// Load reads .env, then the file named by QUICKCART_CONFIG, with real
// environment variables taking precedence over both.
func Load() (*Config, error) {
	_ = godotenv.Load()

	file, err := readFile(os.Getenv("QUICKCART_CONFIG"))
	if err != nil {
		return nil, err
	}
	s := source{file: file}

	c := &Config{
		Port:             s.get("PORT", "8080"),
		APIBaseURL:       strings.TrimRight(s.get("API_BASE_URL", "http://localhost:8081/api"), "/"),
		GatewayAPIPrefix: s.get("GATEWAY_API_PREFIX", "/payments/razorpay"),
		GatewayScriptURL: s.get("GATEWAY_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		StoreDriver:      strings.ToLower(s.get("STORE_DRIVER", StoreMemory)),
		RedisURL:         s.get("REDIS_URL", "redis://localhost:6379/0"),
		DBDSN:            s.get("DB_DSN", ""),
		LogLevel:         strings.ToLower(s.get("LOG_LEVEL", "info")),
	}

	if c.APITimeout, err = s.getDuration("API_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if c.StoreTTL, err = s.getDuration("STORE_TTL", 0); err != nil {
		return nil, err
	}
	if c.StoreRetention, err = s.getDuration("STORE_RETENTION", 0); err != nil {
		return nil, err
	}
	if c.SessionIdleTTL, err = s.getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if c.RateLimitRPS, err = s.getFloat("RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}
	if c.RateLimitBurst, err = s.getInt("RATE_LIMIT_BURST", 40); err != nil {
		return nil, err
	}
	if c.CheckoutClearBag, err = s.getBool("CHECKOUT_CLEAR_BAG", true); err != nil {
		return nil, err
	}
	if c.CookieSecure, err = s.getBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if c.LogPretty, err = s.getBool("LOG_PRETTY", false); err != nil {
		return nil, err
	}
	fee, err := decimal.NewFromString(s.get("PLATFORM_FEE", "10"))
	if err != nil {
		return nil, fmt.Errorf("PLATFORM_FEE: %w", err)
	}
	c.PlatformFee = fee

	switch c.StoreDriver {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DBDSN == "" {
			c.DBDSN = dsnFromParts(s)
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver)
	}
	return c, nil
}

func dsnFromParts(s source) string {
	user := s.get("DB_USER", s.get("POSTGRES_USER", "postgres"))
	pass := s.get("DB_PASSWORD", s.get("POSTGRES_PASSWORD", "postgres"))
	name := s.get("DB_NAME", s.get("POSTGRES_DB", "quickcart"))
	return "host=" + s.get("DB_HOST", "localhost") +
		" user=" + user +
		" password=" + pass +
		" dbname=" + name +
		" port=" + s.get("DB_PORT", "5432") +
		" sslmode=" + s.get("DB_SSLMODE", "disable")
}
