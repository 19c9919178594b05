package config

import (
	"fmt"
	"time"

	"github.com/kbukum/backstop/resilience"
	"github.com/kbukum/backstop/validation"
)

// Config aggregates every policy section of the resilience layer. Each
// section owns its defaults and validation; Load wires the whole struct
// from config.yml, .env, and environment variables.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Breaker       BreakerSection       `yaml:"breaker" mapstructure:"breaker"`
	RateLimit     RateLimitSection     `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache         CacheSection         `yaml:"cache" mapstructure:"cache"`
	Queue         QueueSection         `yaml:"queue" mapstructure:"queue"`
	Retry         RetrySection         `yaml:"retry" mapstructure:"retry"`
	Recovery      RecoverySection      `yaml:"recovery" mapstructure:"recovery"`
	Connectivity  ConnectivitySection  `yaml:"connectivity" mapstructure:"connectivity"`
	Observability ObservabilitySection `yaml:"observability" mapstructure:"observability"`
}

// BreakerSection is the per-service circuit breaker template.
type BreakerSection struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"gte=0"`
	Cooldown         time.Duration `yaml:"cooldown" mapstructure:"cooldown" validate:"gte=0"`
}

func (s *BreakerSection) ApplyDefaults() {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.Cooldown == 0 {
		s.Cooldown = 60 * time.Second
	}
}

// RateLimitSection configures the sliding window limiter. Rule overrides
// must pass the same validation as the built-in defaults.
type RateLimitSection struct {
	Rules   map[string]resilience.LimitRule `yaml:"rules" mapstructure:"rules"`
	Default resilience.LimitRule            `yaml:"default" mapstructure:"default"`
	// SweepInterval is how often empty buckets are garbage collected.
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval" validate:"gte=0"`
}

func (s *RateLimitSection) ApplyDefaults() {
	defaults := resilience.DefaultRateLimiterConfig("")
	if s.Default.MaxRequests == 0 && s.Default.Window == 0 {
		s.Default = defaults.Default
	}
	if s.Rules == nil {
		s.Rules = defaults.Rules
	} else {
		for op, rule := range defaults.Rules {
			if _, ok := s.Rules[op]; !ok {
				s.Rules[op] = rule
			}
		}
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = 5 * time.Minute
	}
}

func (s *RateLimitSection) Validate() error {
	if err := validation.Validate(&s.Default); err != nil {
		return fmt.Errorf("rate_limit.default: %w", err)
	}
	for op, rule := range s.Rules {
		if err := validation.Validate(&rule); err != nil {
			return fmt.Errorf("rate_limit.rules[%s]: %w", op, err)
		}
	}
	return nil
}

// CacheSection configures the shared cache.
type CacheSection struct {
	MaxEntries    int           `yaml:"max_entries" mapstructure:"max_entries" validate:"gte=0"`
	DefaultTTL    time.Duration `yaml:"default_ttl" mapstructure:"default_ttl" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval" validate:"gte=0"`
}

func (s *CacheSection) ApplyDefaults() {
	if s.MaxEntries == 0 {
		s.MaxEntries = 500
	}
	if s.DefaultTTL == 0 {
		s.DefaultTTL = 5 * time.Minute
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = time.Minute
	}
}

// QueueSection configures the request queue.
type QueueSection struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
}

func (s *QueueSection) ApplyDefaults() {
	if s.MaxConcurrent == 0 {
		s.MaxConcurrent = 5
	}
}

// RetrySection configures the retry manager.
type RetrySection struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`
	MaxDelay   time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gte=0"`
}

func (s *RetrySection) ApplyDefaults() {
	if s.MaxRetries == 0 {
		s.MaxRetries = 3
	}
	if s.BaseDelay == 0 {
		s.BaseDelay = time.Second
	}
	if s.MaxDelay == 0 {
		s.MaxDelay = 30 * time.Second
	}
}

func (s *RetrySection) Validate() error {
	if s.MaxDelay < s.BaseDelay {
		return fmt.Errorf("retry.max_delay must not be below retry.base_delay")
	}
	return nil
}

// RecoverySection configures the error recovery orchestrator.
type RecoverySection struct {
	AuthService      string        `yaml:"auth_service" mapstructure:"auth_service"`
	HistorySize      int           `yaml:"history_size" mapstructure:"history_size" validate:"gte=0"`
	HistoryRetention time.Duration `yaml:"history_retention" mapstructure:"history_retention" validate:"gte=0"`
	NotifyThreshold  int           `yaml:"notify_threshold" mapstructure:"notify_threshold" validate:"gte=0"`
	NotifyWindow     time.Duration `yaml:"notify_window" mapstructure:"notify_window" validate:"gte=0"`
}

func (s *RecoverySection) ApplyDefaults() {
	if s.AuthService == "" {
		s.AuthService = "auth"
	}
	if s.HistorySize == 0 {
		s.HistorySize = 100
	}
	if s.HistoryRetention == 0 {
		s.HistoryRetention = 30 * time.Minute
	}
	if s.NotifyThreshold == 0 {
		s.NotifyThreshold = 3
	}
	if s.NotifyWindow == 0 {
		s.NotifyWindow = time.Minute
	}
}

// ConnectivitySection configures the connectivity monitor.
type ConnectivitySection struct {
	Interval       time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout" validate:"gte=0"`
	ConfirmSamples int           `yaml:"confirm_samples" mapstructure:"confirm_samples" validate:"gte=0"`
}

func (s *ConnectivitySection) ApplyDefaults() {
	if s.Interval == 0 {
		s.Interval = 30 * time.Second
	}
	if s.ProbeTimeout == 0 {
		s.ProbeTimeout = 5 * time.Second
	}
	if s.ConfirmSamples == 0 {
		s.ConfirmSamples = 2
	}
}

// ObservabilitySection configures metrics and tracing export.
type ObservabilitySection struct {
	MetricsEnabled bool          `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`
	TracingEnabled bool          `yaml:"tracing_enabled" mapstructure:"tracing_enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

func (s *ObservabilitySection) ApplyDefaults() {
	if s.Endpoint == "" {
		s.Endpoint = "localhost:4318"
	}
	if s.Interval == 0 {
		s.Interval = 15 * time.Second
	}
}

// Default returns a fully defaulted Config named after the library.
func Default() *Config {
	cfg := &Config{}
	cfg.Name = "backstop"
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Breaker.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.Queue.ApplyDefaults()
	c.Retry.ApplyDefaults()
	c.Recovery.ApplyDefaults()
	c.Connectivity.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return nil
}
