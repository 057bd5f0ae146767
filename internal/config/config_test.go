// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every override so the developer's shell cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvProvider, EnvSystemPrompt, EnvOllamaURL, EnvOllamaToken, EnvOllamaModel,
		EnvOpenAIURL, EnvOpenAIKey, EnvOpenAIModel, EnvLogLevel,
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
provider = "openai"
system_prompt = "be brief"
ping_interval = "30s"

[openai]
url = "https://gateway.example.com"
api_key = "sk-test"
default_model = "gpt-4o"

[transport]
probe_timeout = 2
requests_per_second = 4.5

[stream]
max_consecutive_skips = 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "be brief", cfg.SystemPrompt)
	assert.Equal(t, 30*time.Second, cfg.PingInterval.Duration)
	assert.Equal(t, "https://gateway.example.com", cfg.OpenAI.URL)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.DefaultModel)
	assert.Equal(t, 2*time.Second, cfg.Transport.ProbeTimeout.Duration)
	assert.Equal(t, 4.5, cfg.Transport.RequestsPerSecond)
	assert.Equal(t, 1, cfg.Transport.Burst, "unset burst falls back to 1")
	assert.Equal(t, 10, cfg.Stream.MaxConsecutiveSkips)
	assert.Equal(t, DefaultOllamaURL, cfg.Ollama.URL)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[ollama]\nurll = \"http://x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama.urll")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "provider = \"bard\"\n[log]\nformat = \"xml\"\n")

	_, err := Load(path)
	require.Error(t, err)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[ollama]\nurl = \"http://file:11434\"\n")

	t.Setenv(EnvOllamaURL, "http://env:11434")
	t.Setenv(EnvOllamaToken, "tok")
	t.Setenv(EnvProvider, "openai")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:11434", cfg.Ollama.URL)
	assert.Equal(t, "tok", cfg.Ollama.BearerToken)
	assert.Equal(t, "openai", cfg.Provider)
}

func TestSave_RoundTripAndPermissions(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.PingInterval = NewDuration(time.Minute)
	require.NoError(t, cfg.Save(path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("ollama.url")
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaURL, v)

	v, err = cfg.Get("transport.probe_timeout")
	require.NoError(t, err)
	assert.Equal(t, "5s", v)

	require.NoError(t, cfg.Set("openai.default-model", "gpt-4o"))
	assert.Equal(t, "gpt-4o", cfg.OpenAI.DefaultModel)

	require.NoError(t, cfg.Set("ping_interval", "1m"))
	assert.Equal(t, time.Minute, cfg.PingInterval.Duration)

	require.NoError(t, cfg.Set("transport.burst", "3"))
	assert.Equal(t, 3, cfg.Transport.Burst)

	require.NoError(t, cfg.Set("transport.requests_per_second", 2.5))
	assert.Equal(t, 2.5, cfg.Transport.RequestsPerSecond)

	assert.Error(t, cfg.Set("transport.burst", "many"))
	assert.Error(t, cfg.Set("ollama", "x"), "sections are not values")
	_, err = cfg.Get("ollama.nope")
	assert.Error(t, err)
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "provider")
	assert.Contains(t, keys, "ping_interval")
	assert.Contains(t, keys, "ollama.bearer_token")
	assert.Contains(t, keys, "openai.api_key")
	assert.Contains(t, keys, "stream.max_consecutive_skips")
	assert.NotContains(t, keys, "ollama")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Ollama.BearerToken = "tok"
	cfg.OpenAI.APIKey = "sk-secret"

	r := cfg.Redacted()
	assert.Equal(t, "[REDACTED]", r.Ollama.BearerToken)
	assert.Equal(t, "[REDACTED]", r.OpenAI.APIKey)
	assert.Equal(t, "sk-secret", cfg.OpenAI.APIKey, "original untouched")
	assert.NotContains(t, cfg.String(), "sk-secret")
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1.5")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.Duration)
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("ENCHANTED_HOME", home)
	writeFile(t, filepath.Join(home, ".env"), EnvOpenAIKey+"=sk-from-dotenv\n")
	os.Unsetenv(EnvOpenAIKey)

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "sk-from-dotenv", os.Getenv(EnvOpenAIKey))
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "provider = \"ollama\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zerolog.Nop(), func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "provider = \"openai\"\n")

	select {
	case cfg := <-changes:
		assert.Equal(t, "openai", cfg.Provider)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_SkipsInvalidReload(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "provider = \"ollama\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	go Watch(ctx, path, zerolog.Nop(), func(c *Config) { changes <- c })

	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "provider = \"bard\"\n")

	select {
	case <-changes:
		t.Fatal("invalid config must not be delivered")
	case <-time.After(3 * WatchDebounce):
	}
}
