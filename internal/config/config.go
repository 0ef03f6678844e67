// Package config loads ~/.chatsync/config.toml and its environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvBaseURL = "CHATSYNC_BASE_URL"
	EnvWSURL   = "CHATSYNC_WS_URL"
	EnvProfile = "CHATSYNC_PROFILE"
)

// Defaults.
const (
	DefaultBaseURL          = "http://localhost:8000"
	DefaultHistoryInterval  = 4 * time.Second
	DefaultPresenceInterval = 10 * time.Second
	DefaultFallbackInterval = 15 * time.Second
	DefaultOnlineWindow     = 60 * time.Second
	DefaultRequestTimeout   = 10 * time.Second
)

// Duration is a time.Duration written as a string such as "4s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.chatsync/config.toml.
type Config struct {
	DefaultProfile   string   `toml:"default_profile"`
	BaseURL          string   `toml:"base_url"`
	WSURL            string   `toml:"ws_url,omitempty"`
	HistoryInterval  Duration `toml:"history_interval"`
	PresenceInterval Duration `toml:"presence_interval"`
	FallbackInterval Duration `toml:"fallback_interval"`
	OnlineWindow     Duration `toml:"online_window"`
	RequestTimeout   Duration `toml:"request_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		HistoryInterval:  Duration{DefaultHistoryInterval},
		PresenceInterval: Duration{DefaultPresenceInterval},
		FallbackInterval: Duration{DefaultFallbackInterval},
		OnlineWindow:     Duration{DefaultOnlineWindow},
		RequestTimeout:   Duration{DefaultRequestTimeout},
	}
}

// Load reads config from the given path. Returns error if file missing.
// Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file is missing.
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

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.Getenv.
func (c *Config) ApplyEnv(lookup func(string) string) {
	if v := strings.TrimSpace(lookup(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(lookup(EnvWSURL)); v != "" {
		c.WSURL = v
	}
	if v := strings.TrimSpace(lookup(EnvProfile)); v != "" {
		c.DefaultProfile = v
	}
}

// PushURL returns the WebSocket endpoint, derived from BaseURL when ws_url
// is unset.
func (c *Config) PushURL() (string, error) {
	if c.WSURL != "" {
		return c.WSURL, nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported base_url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/chat"
	u.RawQuery = ""
	return u.String(), nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	for _, pair := range []struct{ v, def *Duration }{
		{&c.HistoryInterval, &d.HistoryInterval},
		{&c.PresenceInterval, &d.PresenceInterval},
		{&c.FallbackInterval, &d.FallbackInterval},
		{&c.OnlineWindow, &d.OnlineWindow},
		{&c.RequestTimeout, &d.RequestTimeout},
	} {
		if pair.v.Duration <= 0 {
			*pair.v = *pair.def
		}
	}
}
