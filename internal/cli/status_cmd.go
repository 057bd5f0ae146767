// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/ollama"
)

// startWait is how long status --start waits for a launched server.
const startWait = 15 * time.Second

func (a *App) handleStatus(ctx context.Context, raw []string) (interface{}, error) {
	args := NewArgParser(raw, "start")

	if args.BoolFlag("start") {
		p := a.Session.Provider(model.ProviderOllama)
		a.infof("Checking Ollama at %s...\n", p.Endpoint().BaseURL)
		if err := ollama.EnsureRunning(ctx, p, startWait, a.Logger); err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
	}

	reachable := a.Session.Status(ctx)
	data := StatusData{Active: a.Session.Active()}
	for _, kind := range model.ProviderKinds {
		p := a.Session.Provider(kind)
		ep := p.Endpoint()
		ps := ProviderStatusData{
			Kind:      kind,
			Name:      kind.DisplayName(),
			BaseURL:   ep.BaseURL,
			Reachable: reachable[kind],
			Default:   a.Session.Registry(kind).Default(),
		}
		if ep.HasCredential() {
			ps.Credential = ep.MaskedCredential()
		}
		data.Providers = append(data.Providers, ps)
	}

	if !a.JSON {
		a.printStatus(data)
	}
	return data, nil
}

func (a *App) printStatus(data StatusData) {
	w := a.Out
	fmt.Fprintln(w, TitleStyle.Render("enchanted status"))
	for _, p := range data.Providers {
		name := p.Name
		if p.Kind == data.Active {
			name += " (active)"
		}
		fmt.Fprintf(w, "%s %s\n", RenderStatus(p.Reachable), ValueStyle.Render(name))
		fmt.Fprintf(w, "     %s%s\n", RenderLabel("Endpoint"), p.BaseURL)
		if p.Credential != "" {
			fmt.Fprintf(w, "     %s%s\n", RenderLabel("Credential"), p.Credential)
		}
		if p.Default != "" {
			fmt.Fprintf(w, "     %s%s\n", RenderLabel("Default model"), p.Default)
		}
	}
	fmt.Fprintf(w, "%s\n", DimStyle.Render("Session "+a.Session.ID()))
}
