// Package config loads server settings from defaults, an optional YAML file,
// a .env file, CUSTOMFIELDS_* environment variables and command-line flags,
// in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CUSTOMFIELDS_"

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is the full server configuration.
type Config struct {
	HTTP       HTTP       `yaml:"http"`
	Log        Log        `yaml:"log"`
	Store      Store      `yaml:"store"`
	Cache      Cache      `yaml:"cache"`
	Pagination Pagination `yaml:"pagination"`
}

type HTTP struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Store struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type Cache struct {
	Driver    string        `yaml:"driver"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type Pagination struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// Default returns the built-in settings: in-memory store, in-memory cache.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log:   Log{Level: "info", Format: "json"},
		Store: Store{Driver: StoreMemory, MaxOpenConns: 10, MaxIdleConns: 5},
		Cache: Cache{Driver: CacheMemory, RedisAddr: "localhost:6379", TTL: 10 * time.Minute},
		Pagination: Pagination{
			DefaultLimit: 20,
			MaxLimit:     100,
		},
	}
}

// Source describes where Load reads from. Empty fields are skipped.
type Source struct {
	File    string
	EnvFile string
	Args    []string
	// Lookup replaces os.LookupEnv when set.
	Lookup func(string) (string, bool)
}

// Load layers every source over Default and validates the result.
func Load(src Source) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("customfield-server", flag.ContinueOnError)
	configPath := fs.String("config", src.File, "path to YAML config file")
	envPath := fs.String("env-file", src.EnvFile, "path to .env file")
	var overrides flagValues
	fs.Var(&overrides, "set", "override a key, e.g. -set http.addr=:9090 (repeatable)")
	addr := fs.String("addr", "", "HTTP listen address")
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
	storeDriver := fs.String("store", "", "store driver (memory|postgres)")
	dsn := fs.String("dsn", "", "Postgres DSN")
	cacheDriver := fs.String("cache", "", "cache driver (none|memory|redis)")
	if err := fs.Parse(src.Args); err != nil {
		return cfg, fmt.Errorf("config: parse flags: %w", err)
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", *configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", *configPath, err)
		}
	}

	lookup := src.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if *envPath != "" {
		values, err := godotenv.Read(*envPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config: read %s: %w", *envPath, err)
		}
		lookup = layered(lookup, values)
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}

	for _, kv := range overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: -set %q: expected key=value", ErrInvalid, kv)
		}
		if err := cfg.set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return cfg, err
		}
	}
	named := map[string]*string{
		"http.addr":    addr,
		"log.level":    logLevel,
		"store.driver": storeDriver,
		"store.dsn":    dsn,
		"cache.driver": cacheDriver,
	}
	for key, value := range named {
		if *value == "" {
			continue
		}
		if err := cfg.set(key, *value); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.HTTP.Addr) == "":
		return invalid("http.addr", "must not be empty")
	case c.HTTP.ReadTimeout <= 0:
		return invalid("http.read_timeout", "must be positive")
	case c.HTTP.WriteTimeout <= 0:
		return invalid("http.write_timeout", "must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format", "unknown format %q", c.Log.Format)
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return invalid("store.dsn", "required for the postgres driver")
		}
	default:
		return invalid("store.driver", "unknown driver %q", c.Store.Driver)
	}
	if c.Store.MaxOpenConns < 0 || c.Store.MaxIdleConns < 0 {
		return invalid("store.max_open_conns", "connection limits must not be negative")
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			return invalid("cache.redis_addr", "required for the redis driver")
		}
	default:
		return invalid("cache.driver", "unknown driver %q", c.Cache.Driver)
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl", "must not be negative")
	}
	if c.Pagination.DefaultLimit <= 0 {
		return invalid("pagination.default_limit", "must be positive")
	}
	if c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return invalid("pagination.max_limit", "must be at least pagination.default_limit")
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, key, fmt.Sprintf(format, args...))
}

// envKeys maps CUSTOMFIELDS_* suffixes onto dotted keys.
var envKeys = map[string]string{
	"HTTP_ADDR":                "http.addr",
	"HTTP_READ_TIMEOUT":        "http.read_timeout",
	"HTTP_WRITE_TIMEOUT":       "http.write_timeout",
	"LOG_LEVEL":                "log.level",
	"LOG_FORMAT":               "log.format",
	"STORE_DRIVER":             "store.driver",
	"STORE_DSN":                "store.dsn",
	"STORE_MAX_OPEN_CONNS":     "store.max_open_conns",
	"STORE_MAX_IDLE_CONNS":     "store.max_idle_conns",
	"CACHE_DRIVER":             "cache.driver",
	"CACHE_REDIS_ADDR":         "cache.redis_addr",
	"CACHE_REDIS_PASSWORD":     "cache.redis_password",
	"CACHE_REDIS_DB":           "cache.redis_db",
	"CACHE_TTL":                "cache.ttl",
	"PAGINATION_DEFAULT_LIMIT": "pagination.default_limit",
	"PAGINATION_MAX_LIMIT":     "pagination.max_limit",
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for suffix, key := range envKeys {
		value, ok := lookup(EnvPrefix + suffix)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := cfg.set(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, suffix, err)
		}
	}
	return nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "http.addr":
		c.HTTP.Addr = value
	case "http.read_timeout":
		c.HTTP.ReadTimeout, err = time.ParseDuration(value)
	case "http.write_timeout":
		c.HTTP.WriteTimeout, err = time.ParseDuration(value)
	case "log.level":
		c.Log.Level = value
	case "log.format":
		c.Log.Format = value
	case "store.driver":
		c.Store.Driver = value
	case "store.dsn":
		c.Store.DSN = value
	case "store.max_open_conns":
		c.Store.MaxOpenConns, err = strconv.Atoi(value)
	case "store.max_idle_conns":
		c.Store.MaxIdleConns, err = strconv.Atoi(value)
	case "cache.driver":
		c.Cache.Driver = value
	case "cache.redis_addr":
		c.Cache.RedisAddr = value
	case "cache.redis_password":
		c.Cache.RedisPassword = value
	case "cache.redis_db":
		c.Cache.RedisDB, err = strconv.Atoi(value)
	case "cache.ttl":
		c.Cache.TTL, err = time.ParseDuration(value)
	case "pagination.default_limit":
		c.Pagination.DefaultLimit, err = strconv.Atoi(value)
	case "pagination.max_limit":
		c.Pagination.MaxLimit, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return nil
}

func layered(primary func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

type flagValues []string

func (f *flagValues) String() string { return strings.Join(*f, ",") }

func (f *flagValues) Set(value string) error {
	*f = append(*f, value)
	return nil
}
