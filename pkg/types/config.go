package types

import (
	"errors"
	"time"
)

// Config holds backend selection and engine parameters.
type Config struct {
	Backend           string        `json:"backend" yaml:"backend"`
	DataDir           string        `json:"data_dir" yaml:"data_dir"`
	LayoutID          string        `json:"layout_id" yaml:"layout_id"`
	InUseAfter        time.Duration `json:"in_use_after" yaml:"in_use_after"`
	ExpiryWarningDays int           `json:"expiry_warning_days" yaml:"expiry_warning_days"`
	Notify            NotifyConfig  `json:"notify" yaml:"notify"`
}

// NotifyConfig selects how change signals travel between processes.
type NotifyConfig struct {
	Driver    string        `json:"driver" yaml:"driver"`
	RedisAddr string        `json:"redis_addr" yaml:"redis_addr"`
	Channel   string        `json:"channel" yaml:"channel"`
	Debounce  time.Duration `json:"debounce" yaml:"debounce"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Supported notify drivers.
const (
	NotifyNone  = "none"
	NotifyFile  = "file"
	NotifyRedis = "redis"
)

// Engine defaults.
const (
	DefaultInUseAfter        = 10 * time.Minute
	DefaultExpiryWarningDays = 30
	DefaultNotifyChannel     = "smartgrid:changes"
	DefaultDebounce          = 200 * time.Millisecond
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrNotifyUnknown      = errors.New("unknown notify driver")
	ErrRedisAddrEmpty     = errors.New("redis notify driver requires redis_addr")
	ErrThresholdInvalid   = errors.New("in_use_after must not be negative")
	ErrWarningDaysInvalid = errors.New("expiry_warning_days must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

var knownNotifyDrivers = map[string]bool{
	"":          true,
	NotifyNone:  true,
	NotifyFile:  true,
	NotifyRedis: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.InUseAfter < 0 {
		return ErrThresholdInvalid
	}
	if c.ExpiryWarningDays < 0 {
		return ErrWarningDaysInvalid
	}
	if !knownNotifyDrivers[c.Notify.Driver] {
		return ErrNotifyUnknown
	}
	if c.Notify.Driver == NotifyRedis && c.Notify.RedisAddr == "" {
		return ErrRedisAddrEmpty
	}
	return nil
}

// WithDefaults returns c with zero-valued engine parameters filled in.
func (c Config) WithDefaults() Config {
	if c.LayoutID == "" {
		c.LayoutID = DefaultLayoutID
	}
	if c.InUseAfter == 0 {
		c.InUseAfter = DefaultInUseAfter
	}
	if c.ExpiryWarningDays == 0 {
		c.ExpiryWarningDays = DefaultExpiryWarningDays
	}
	if c.Notify.Driver == "" {
		c.Notify.Driver = NotifyNone
	}
	if c.Notify.Channel == "" {
		c.Notify.Channel = DefaultNotifyChannel
	}
	if c.Notify.Debounce == 0 {
		c.Notify.Debounce = DefaultDebounce
	}
	return c
}
