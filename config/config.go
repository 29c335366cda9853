// Package config holds the module configuration.  All fields have safe
// defaults so callers can start from Default() and override what they need,
// or load overrides from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// StorageBackend selects the storage adapter pair.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageLocal  StorageBackend = "local"
	StorageRedis  StorageBackend = "redis"
)

// EngineBackend selects the image engine.
type EngineBackend string

const (
	EngineStd  EngineBackend = "std"
	EngineVips EngineBackend = "vips"
)

// Config is the top-level configuration struct.
type Config struct {
	// Ingestion limits.
	MaxImageBytes int64 `toml:"max_image_bytes"` // 0 = no limit

	// Engine selection and encode quality.
	Engine         EngineBackend `toml:"engine"`
	DefaultQuality int           `toml:"default_quality"` // 1-100; default 85

	// Storage backend selection.
	Storage StorageBackend `toml:"storage"`
	Local   LocalConfig    `toml:"local"`
	Redis   RedisConfig    `toml:"redis"`

	// Logging.
	LogLevel string `toml:"log_level"` // "debug", "info", "warn", "error"
}

// LocalConfig configures the local filesystem adapter.
type LocalConfig struct {
	RootDir     string `toml:"root_dir"`
	Permissions uint32 `toml:"permissions"` // default 0644
}

// RedisConfig configures the redis adapter.
type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		MaxImageBytes:  64 * 1024 * 1024,
		Engine:         EngineStd,
		DefaultQuality: 85,
		Storage:        StorageMemory,
		LogLevel:       "info",
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, Validate(cfg)
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.MaxImageBytes < 0 {
		return errors.New("config: MaxImageBytes must not be negative")
	}
	switch c.Storage {
	case StorageMemory, StorageLocal, StorageRedis:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage)
	}
	switch c.Engine {
	case EngineStd, EngineVips:
	default:
		return fmt.Errorf("config: unknown engine backend %q", c.Engine)
	}
	if c.Storage == StorageLocal && c.Local.RootDir == "" {
		return errors.New("config: Local.RootDir is required for the local backend")
	}
	if c.Storage == StorageRedis && c.Redis.Addr == "" {
		return errors.New("config: Redis.Addr is required for the redis backend")
	}
	return nil
}
