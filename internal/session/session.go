// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/cloud"
	"github.com/jeranaias/enchanted/internal/config"
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/ollama"
	"github.com/jeranaias/enchanted/internal/provider"
	"github.com/jeranaias/enchanted/internal/registry"
	"github.com/jeranaias/enchanted/internal/stream"
	"github.com/jeranaias/enchanted/internal/transport"
)

// =============================================================================
// SESSION
// =============================================================================

// Session owns both providers, their model registries, the selected
// provider and the system prompt. It replaces any process-wide state;
// pass it to whatever needs to chat.
type Session struct {
	id        string
	startTime time.Time
	logger    zerolog.Logger

	providers  map[model.ProviderKind]*provider.Client
	registries map[model.ProviderKind]*registry.Registry

	mu           sync.RWMutex
	active       model.ProviderKind
	systemPrompt string

	// Last values Apply took from a config. A reload only overrides a
	// runtime /provider or /system change when the config value changed.
	appliedProvider string
	appliedPrompt   string
	applied         bool
}

// ChatOptions are per-request settings for Session.Chat.
type ChatOptions struct {
	// Model overrides the registry's choice when set.
	Model string

	// Temperature overrides the server default when set.
	Temperature *float64
}

// New builds a session from cfg. Both providers share one transport.
func New(cfg *config.Config, logger zerolog.Logger) (*Session, error) {
	topts := transport.DefaultOptions()
	topts.ProbeTimeout = cfg.Transport.ProbeTimeout.Duration
	topts.RequestsPerSecond = cfg.Transport.RequestsPerSecond
	topts.Burst = cfg.Transport.Burst
	topts.Logger = logger
	tr := transport.New(topts)

	popts := provider.Options{
		Transport:           tr,
		MaxConsecutiveSkips: cfg.Stream.MaxConsecutiveSkips,
		Logger:              logger,
	}

	s := &Session{
		id:         "sess_" + uuid.NewString(),
		startTime:  time.Now(),
		logger:     logger.With().Str("component", "session").Logger(),
		providers:  make(map[model.ProviderKind]*provider.Client, 2),
		registries: make(map[model.ProviderKind]*registry.Registry, 2),
		active:     model.ProviderOllama,
	}
	for _, c := range []*provider.Client{ollama.New(popts), cloud.New(popts)} {
		s.providers[c.Kind()] = c
		s.registries[c.Kind()] = registry.New(c, logger)
	}

	if err := s.Apply(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// StartTime is when the session was created.
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// Apply pushes cfg into the providers and registries. Every setting is
// attempted; failures are joined. A provider whose URL is rejected keeps
// its previous endpoint. Model lists are not reloaded; call RefreshModels.
//
// The provider and system prompt are only taken when they differ from the
// previous Apply, so a reload keeps a choice made at runtime.
func (s *Session) Apply(cfg *config.Config) error {
	var errs []error

	settings := []struct {
		kind         model.ProviderKind
		url          string
		credential   string
		defaultModel string
	}{
		{model.ProviderOllama, cfg.Ollama.URL, cfg.Ollama.BearerToken, cfg.Ollama.DefaultModel},
		{model.ProviderOpenAI, cfg.OpenAI.URL, cfg.OpenAI.APIKey, cfg.OpenAI.DefaultModel},
	}
	for _, st := range settings {
		p := s.providers[st.kind]
		if err := p.Configure(st.url, st.credential); err != nil {
			errs = append(errs, err)
		}
		p.SetMaxConsecutiveSkips(cfg.Stream.MaxConsecutiveSkips)
		s.registries[st.kind].SetDefault(strings.TrimSpace(st.defaultModel))
	}

	s.mu.Lock()
	first := !s.applied
	providerChanged := first || cfg.Provider != s.appliedProvider
	promptChanged := first || cfg.SystemPrompt != s.appliedPrompt
	s.applied = true
	s.appliedPrompt = cfg.SystemPrompt
	s.mu.Unlock()

	if cfg.Provider != "" && providerChanged {
		if err := s.Select(cfg.Provider); err != nil {
			errs = append(errs, err)
		} else {
			s.mu.Lock()
			s.appliedProvider = cfg.Provider
			s.mu.Unlock()
		}
	}
	if promptChanged {
		s.SetSystemPrompt(cfg.SystemPrompt)
	}

	s.logger.Debug().
		Str("provider", string(s.Active())).
		Str("ollama", s.providers[model.ProviderOllama].Endpoint().BaseURL).
		Str("openai", s.providers[model.ProviderOpenAI].Endpoint().BaseURL).
		Msg("settings applied")

	return errors.Join(errs...)
}

// Provider returns the client for kind, or nil for an unknown kind.
func (s *Session) Provider(kind model.ProviderKind) *provider.Client {
	return s.providers[kind]
}

// Registry returns the model registry for kind, or nil for an unknown kind.
func (s *Session) Registry(kind model.ProviderKind) *registry.Registry {
	return s.registries[kind]
}

// Active reports the selected provider.
func (s *Session) Active() model.ProviderKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ActiveProvider returns the client for the selected provider.
func (s *Session) ActiveProvider() *provider.Client {
	return s.providers[s.Active()]
}

// Select switches the active provider. Names are parsed leniently, so
// "openai-compatible" works as well as "openai".
func (s *Session) Select(name string) error {
	kind, err := model.ParseProviderKind(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	changed := s.active != kind
	s.active = kind
	s.mu.Unlock()

	if changed {
		s.logger.Info().Str("provider", string(kind)).Msg("provider selected")
	}
	return nil
}

// SystemPrompt returns the prompt prepended to new conversations.
func (s *Session) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemPrompt
}

// SetSystemPrompt replaces the system prompt. Empty disables it.
func (s *Session) SetSystemPrompt(prompt string) {
	s.mu.Lock()
	s.systemPrompt = strings.TrimSpace(prompt)
	s.mu.Unlock()
}

// RefreshModels reloads both model lists concurrently. A failure for one
// provider does not stop the other; errors are joined.
func (s *Session) RefreshModels(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for kind, reg := range s.registries {
		wg.Add(1)
		go func(kind model.ProviderKind, reg *registry.Registry) {
			defer wg.Done()
			if err := reg.Refresh(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", kind.DisplayName(), err))
				mu.Unlock()
			}
		}(kind, reg)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// ResolveModel picks the model Chat would use with no override. When
// nothing is known yet it refreshes the active registry once.
func (s *Session) ResolveModel(ctx context.Context) string {
	reg := s.registries[s.Active()]
	if id := reg.Resolve(); id != "" {
		return id
	}
	if err := reg.Refresh(ctx); err != nil {
		return ""
	}
	return reg.Resolve()
}

// Chat streams an answer from the active provider. The system prompt is
// prepended when conv has no system message.
func (s *Session) Chat(ctx context.Context, conv model.Conversation, opts ChatOptions) (*stream.Stream, error) {
	kind := s.Active()
	p := s.providers[kind]

	modelID := strings.TrimSpace(opts.Model)
	if modelID == "" {
		modelID = s.ResolveModel(ctx)
	}
	if modelID == "" {
		return nil, provider.ErrNoModel
	}

	if conv.HasImages() && !model.SupportsImages(modelID) {
		s.logger.Warn().
			Str("model", modelID).
			Msg("conversation has images but the model does not look vision-capable")
	}

	return p.Chat(ctx, modelID, conv.WithSystem(s.SystemPrompt()), provider.ChatOptions{
		Temperature: opts.Temperature,
	})
}

// Status probes every provider concurrently.
func (s *Session) Status(ctx context.Context) map[model.ProviderKind]bool {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make(map[model.ProviderKind]bool, len(s.providers))
	)
	for kind, p := range s.providers {
		wg.Add(1)
		go func(kind model.ProviderKind, p *provider.Client) {
			defer wg.Done()
			ok := p.Reachable(ctx)
			mu.Lock()
			out[kind] = ok
			mu.Unlock()
		}(kind, p)
	}
	wg.Wait()
	return out
}
