// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry caches the models a provider offers and remembers which
// one is the default.
package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/model"
)

// Lister is the part of a provider the registry needs.
type Lister interface {
	Kind() model.ProviderKind
	ListModels(ctx context.Context) ([]model.Descriptor, error)
}

// snapshot is one complete listing. It is never modified after it is
// published.
type snapshot struct {
	models      []model.Descriptor
	refreshedAt time.Time
}

// Registry holds the latest model listing for one provider. Readers see
// either the old or the new listing, never a mix.
type Registry struct {
	source Lister
	logger zerolog.Logger

	current atomic.Pointer[snapshot]
	def     atomic.Pointer[string]

	// refreshMu serializes refreshes so an older listing cannot land after
	// a newer one.
	refreshMu sync.Mutex
}

// New creates an empty registry backed by source.
func New(source Lister, logger zerolog.Logger) *Registry {
	r := &Registry{
		source: source,
		logger: logger.With().Str("component", "registry").Str("provider", string(source.Kind())).Logger(),
	}
	r.current.Store(&snapshot{})
	empty := ""
	r.def.Store(&empty)
	return r
}

// Kind reports which provider the registry tracks.
func (r *Registry) Kind() model.ProviderKind {
	return r.source.Kind()
}

// Refresh fetches a new listing and swaps it in. On failure the previous
// listing stays in place and the error is returned.
func (r *Registry) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	models, err := r.source.ListModels(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("model refresh failed, keeping previous list")
		return err
	}

	r.current.Store(&snapshot{models: models, refreshedAt: time.Now()})
	r.logger.Debug().Int("models", len(models)).Msg("model list refreshed")
	return nil
}

// Current returns a copy of the cached listing.
func (r *Registry) Current() []model.Descriptor {
	snap := r.current.Load()
	out := make([]model.Descriptor, len(snap.models))
	copy(out, snap.models)
	return out
}

// RefreshedAt is the time of the last successful refresh, or zero.
func (r *Registry) RefreshedAt() time.Time {
	return r.current.Load().refreshedAt
}

// Lookup finds a model by identifier in the cached listing.
func (r *Registry) Lookup(id string) (model.Descriptor, bool) {
	for _, d := range r.current.Load().models {
		if d.ID == id {
			return d, true
		}
	}
	return model.Descriptor{}, false
}

// SetDefault records the preferred model. It does not touch the network
// and does not require the model to be listed.
func (r *Registry) SetDefault(id string) {
	r.def.Store(&id)
}

// Default returns the stored preference, which may be empty.
func (r *Registry) Default() string {
	return *r.def.Load()
}

// Resolve picks the model to use: the default when it is listed, else the
// first listed model, else the stored default as is.
func (r *Registry) Resolve() string {
	def := r.Default()
	snap := r.current.Load()
	if len(snap.models) == 0 {
		return def
	}
	for _, d := range snap.models {
		if d.ID == def {
			return def
		}
	}
	return snap.models[0].ID
}
