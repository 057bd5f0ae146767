// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete enchanted configuration.
type Config struct {
	// Provider selects the backend used for chat: "ollama" or "openai".
	Provider string `toml:"provider" json:"provider"`

	// SystemPrompt is prepended to conversations that have none.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`

	// PingInterval is how often the selected provider is probed. Zero
	// disables the monitor.
	PingInterval Duration `toml:"ping_interval" json:"ping_interval"`

	Ollama    OllamaConfig    `toml:"ollama" json:"ollama"`
	OpenAI    OpenAIConfig    `toml:"openai" json:"openai"`
	Transport TransportConfig `toml:"transport" json:"transport"`
	Stream    StreamConfig    `toml:"stream" json:"stream"`
	Log       LogConfig       `toml:"log" json:"log"`
}

// OllamaConfig holds settings for the native Ollama backend.
type OllamaConfig struct {
	URL          string `toml:"url" json:"url"`
	BearerToken  string `toml:"bearer_token" json:"bearer_token"`
	DefaultModel string `toml:"default_model" json:"default_model"`
}

// OpenAIConfig holds settings for an OpenAI-compatible gateway.
type OpenAIConfig struct {
	URL          string `toml:"url" json:"url"`
	APIKey       string `toml:"api_key" json:"api_key"`
	DefaultModel string `toml:"default_model" json:"default_model"`
}

// TransportConfig holds HTTP settings shared by both backends.
type TransportConfig struct {
	ProbeTimeout      Duration `toml:"probe_timeout" json:"probe_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second" json:"requests_per_second"` // 0 = unlimited
	Burst             int      `toml:"burst" json:"burst"`
}

// StreamConfig holds stream decoding settings.
type StreamConfig struct {
	// MaxConsecutiveSkips aborts a stream after this many malformed frames
	// in a row. 0 never aborts.
	MaxConsecutiveSkips int `toml:"max_consecutive_skips" json:"max_consecutive_skips"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`   // trace, debug, info, warn, error, disabled
	Format string `toml:"format" json:"format"` // console or json
}

// Duration is a time.Duration written as a string such as "5s".
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A bare number is read
// as seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		d.Duration = time.Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	d.Duration = v
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Built-in defaults.
const (
	DefaultProvider     = "ollama"
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultOpenAIURL    = "http://localhost:4000/v1"
	DefaultPingInterval = 5 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "console"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:     DefaultProvider,
		PingInterval: NewDuration(DefaultPingInterval),
		Ollama: OllamaConfig{
			URL: DefaultOllamaURL,
		},
		OpenAI: OpenAIConfig{
			URL: DefaultOpenAIURL,
		},
		Transport: TransportConfig{
			ProbeTimeout: NewDuration(DefaultProbeTimeout),
			Burst:        1,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// SetDefaults fills empty fields that must not stay empty.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = DefaultOllamaURL
	}
	if c.OpenAI.URL == "" {
		c.OpenAI.URL = DefaultOpenAIURL
	}
	if c.Transport.ProbeTimeout.Duration == 0 {
		c.Transport.ProbeTimeout = NewDuration(DefaultProbeTimeout)
	}
	if c.Transport.Burst == 0 {
		c.Transport.Burst = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	r := c.Clone()
	if r.Ollama.BearerToken != "" {
		r.Ollama.BearerToken = "[REDACTED]"
	}
	if r.OpenAI.APIKey != "" {
		r.OpenAI.APIKey = "[REDACTED]"
	}
	return r
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the configuration directory, ~/.enchanted unless
// ENCHANTED_HOME is set.
func Dir() (string, error) {
	if dir := os.Getenv("ENCHANTED_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".enchanted"), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads path over the defaults, then applies environment overrides,
// fills defaults and validates. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg.ApplyEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads the config file at Path.
func LoadDefault() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// LoadTOML decodes a TOML file into cfg. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads .env from the working directory and from Dir, when
// present. Variables already set in the environment win.
func LoadDotEnv() error {
	candidates := []string{".env"}
	if dir, err := Dir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration as TOML. The file holds credentials, so it
// is written atomically with 0600 permissions.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	buf.WriteString("# enchanted configuration file\n")
	buf.WriteString("# Environment variables (ENCHANTED_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variable names.
const (
	EnvProvider     = "ENCHANTED_PROVIDER"
	EnvSystemPrompt = "ENCHANTED_SYSTEM_PROMPT"
	EnvOllamaURL    = "ENCHANTED_OLLAMA_URL"
	EnvOllamaToken  = "ENCHANTED_OLLAMA_TOKEN"
	EnvOllamaModel  = "ENCHANTED_OLLAMA_MODEL"
	EnvOpenAIURL    = "ENCHANTED_OPENAI_URL"
	EnvOpenAIKey    = "ENCHANTED_OPENAI_API_KEY"
	EnvOpenAIModel  = "ENCHANTED_OPENAI_MODEL"
	EnvLogLevel     = "ENCHANTED_LOG_LEVEL"
)

// ApplyEnv overrides fields from ENCHANTED_* variables.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		name  string
		field *string
	}{
		{EnvProvider, &c.Provider},
		{EnvSystemPrompt, &c.SystemPrompt},
		{EnvOllamaURL, &c.Ollama.URL},
		{EnvOllamaToken, &c.Ollama.BearerToken},
		{EnvOllamaModel, &c.Ollama.DefaultModel},
		{EnvOpenAIURL, &c.OpenAI.URL},
		{EnvOpenAIKey, &c.OpenAI.APIKey},
		{EnvOpenAIModel, &c.OpenAI.DefaultModel},
		{EnvLogLevel, &c.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field = v
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validProviders  = map[string]bool{"ollama": true, "openai": true}
	validLogLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	validLogFormats = map[string]bool{"console": true, "json": true}
)

// Validate checks field values. Endpoint URLs are checked by the providers
// when they are configured.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if !validProviders[strings.ToLower(c.Provider)] {
		errs = append(errs, ValidationError{"provider", fmt.Sprintf("invalid provider '%s', must be one of: ollama, openai", c.Provider)})
	}
	if c.PingInterval.Duration < 0 {
		errs = append(errs, ValidationError{"ping_interval", "must not be negative"})
	}
	if c.Transport.ProbeTimeout.Duration <= 0 {
		errs = append(errs, ValidationError{"transport.probe_timeout", "must be positive"})
	}
	if c.Transport.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{"transport.requests_per_second", "must not be negative"})
	}
	if c.Transport.Burst < 0 {
		errs = append(errs, ValidationError{"transport.burst", "must not be negative"})
	}
	if c.Stream.MaxConsecutiveSkips < 0 {
		errs = append(errs, ValidationError{"stream.max_consecutive_skips", "must not be negative"})
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("invalid level '%s'", c.Log.Level)})
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ValidationError{"log.format", fmt.Sprintf("invalid format '%s', must be console or json", c.Log.Format)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
