// Package config reads and writes ~/.pollchat/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the whole config file. Zero values are filled by Default.
type Config struct {
	DefaultInstance string  `toml:"default_instance"`
	Server          Server  `toml:"server"`
	Client          Client  `toml:"client"`
	Poll            Poll    `toml:"poll"`
	Uploads         Uploads `toml:"uploads"`
}

// Server configures pollchatd.
type Server struct {
	// GRPCListen is a host:port or an absolute unix socket path. Empty uses
	// the instance socket.
	GRPCListen     string   `toml:"grpc_listen"`
	HTTPListen     string   `toml:"http_listen"`
	RedisURL       string   `toml:"redis_url"`
	PageSize       int      `toml:"page_size"`
	AllowedOrigins []string `toml:"allowed_origins"`
	Debug          bool     `toml:"debug"`
}

// Client configures pollctl and polltui.
type Client struct {
	// Server is the gRPC target. Empty uses the instance socket.
	Server string `toml:"server"`
	Token  string `toml:"token"`
}

// Poll tunes the client sync engine.
type Poll struct {
	Fast          Duration `toml:"fast"`
	Background    Duration `toml:"background"`
	Recheck       Duration `toml:"recheck"`
	Replay        bool     `toml:"replay"`
	AutoDelivered bool     `toml:"auto_delivered"`
	AutoSeen      bool     `toml:"auto_seen"`
}

// Uploads configures signed blob uploads.
type Uploads struct {
	Secret  string `toml:"secret"`
	BaseURL string `toml:"base_url"`
	MaxSize int64  `toml:"max_size"`
}

// Duration is a time.Duration written as "1s", "250ms" and so on.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

const (
	DefaultInstance    = "main"
	DefaultHTTPListen  = "127.0.0.1:8780"
	DefaultPageSize    = 50
	DefaultMaxBlobSize = 5 << 20
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Poll: Poll{AutoDelivered: true, AutoSeen: true},
	}
	cfg.fill()
	return cfg
}

// fill replaces zero values with defaults.
func (c *Config) fill() {
	if c.DefaultInstance == "" {
		c.DefaultInstance = DefaultInstance
	}
	if c.Server.HTTPListen == "" {
		c.Server.HTTPListen = DefaultHTTPListen
	}
	if c.Server.PageSize <= 0 {
		c.Server.PageSize = DefaultPageSize
	}
	if c.Poll.Fast.Duration <= 0 {
		c.Poll.Fast.Duration = time.Second
	}
	if c.Poll.Background.Duration <= 0 {
		c.Poll.Background.Duration = 3 * time.Second
	}
	if c.Poll.Recheck.Duration <= 0 {
		c.Poll.Recheck.Duration = time.Second
	}
	if c.Uploads.MaxSize <= 0 {
		c.Uploads.MaxSize = DefaultMaxBlobSize
	}
}

// Load reads config from the given path. Returns nil and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Config{Poll: Poll{AutoDelivered: true, AutoSeen: true}}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.fill()
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
