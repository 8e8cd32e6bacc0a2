package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Gifts controls the discovery/delivery scheduler.
	Gifts GiftsConfig `json:"gifts"`

	Storage StorageConfig  `json:"storage"`
	Janitor *JanitorConfig `json:"janitor,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// ChannelID is the channel new gifts are announced to.
	ChannelID int64 `json:"channel_id"`

	// RatePerSec caps outgoing Bot API calls (default 25).
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// GiftsConfig tunes the background gift scheduler.
//
// All durations are Go duration strings (e.g. "500ms", "15s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - batch_size: 50
//   - call_timeout: "15s"
//   - max_attempts: 8
//   - retry_base: "250ms"
//   - retry_max_delay: "10s"
type GiftsConfig struct {
	// VIPPollInterval is how often the vip-tier catalog scan is due.
	VIPPollInterval string `json:"vip_poll_interval"`

	// DefaultPollInterval is how often the all-users catalog scan is due.
	DefaultPollInterval string `json:"default_poll_interval"`

	// BatchSize is the fan-out partition width (users per concurrent batch).
	BatchSize int `json:"batch_size,omitempty"`

	// CallTimeout bounds every external call made by the scheduler.
	CallTimeout string `json:"call_timeout,omitempty"`

	// MaxAttempts bounds the per-user purchase retry loop.
	MaxAttempts   int    `json:"max_attempts,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// JanitorConfig controls background maintenance sweeps.
// If the whole section is omitted, the janitor defaults to enabled.
type JanitorConfig struct {
	Enabled       bool   `json:"enabled"`
	SweepEvery    string `json:"sweep_every,omitempty"`     // default "10m"
	PendingMaxAge string `json:"pending_max_age,omitempty"` // default "30m"
	InvoiceMaxAge string `json:"invoice_max_age,omitempty"` // default "24h"
}

// Validate checks the parts that cannot be defaulted away.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if c.Telegram.ChannelID == 0 {
		return errors.New("telegram.channel_id is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if _, _, err := c.Gifts.Intervals(); err != nil {
		return err
	}
	if c.Gifts.BatchSize < 0 {
		return errors.New("gifts.batch_size must be >= 0")
	}
	return nil
}

// Intervals parses and validates the two polling intervals.
func (g GiftsConfig) Intervals() (vip, def time.Duration, err error) {
	vip, err = ParseDurationField("gifts.vip_poll_interval", g.VIPPollInterval)
	if err != nil {
		return 0, 0, err
	}
	def, err = ParseDurationField("gifts.default_poll_interval", g.DefaultPollInterval)
	if err != nil {
		return 0, 0, err
	}
	if vip <= 0 {
		return 0, 0, errors.New("gifts.vip_poll_interval must be set and positive")
	}
	if def <= 0 {
		return 0, 0, errors.New("gifts.default_poll_interval must be set and positive")
	}
	return vip, def, nil
}

// ParseDurationField parses one duration-string field. An empty field parses
// to zero so callers can distinguish "unset" from "set to a bad value"; path
// is the config key, used to label errors.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative durations are not allowed", path)
	}
	return d, nil
}

// ParseDurationOrDefault substitutes def when the field is unset.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
