// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/registry"
)

// modelColumnWidth bounds the model name column.
const modelColumnWidth = 48

func (a *App) handleModels(ctx context.Context, raw []string) (interface{}, error) {
	args := NewArgParser(raw, "refresh-only")
	countsOnly := args.BoolFlag("refresh-only")

	refreshErr := a.Session.RefreshModels(ctx)

	var (
		out       []ModelsData
		anyListed bool
	)
	for _, kind := range model.ProviderKinds {
		reg := a.Session.Registry(kind)
		data := ModelsData{
			Provider: kind,
			Default:  reg.Resolve(),
			Models:   reg.Current(),
		}
		if reg.RefreshedAt().IsZero() {
			data.Error = "unreachable"
		} else {
			anyListed = true
		}
		out = append(out, data)

		if a.JSON {
			continue
		}
		if countsOnly {
			fmt.Fprintf(a.Out, "%-20s %d models\n", kind.DisplayName(), len(data.Models))
			continue
		}
		a.printModels(a.Out, kind, reg, data)
	}

	// Only fail when nothing could be listed at all.
	if !anyListed && refreshErr != nil {
		return nil, refreshErr
	}
	if refreshErr != nil {
		a.Logger.Debug().Err(refreshErr).Msg("partial model refresh")
	}
	return out, nil
}

func (a *App) printModels(w io.Writer, kind model.ProviderKind, reg *registry.Registry, data ModelsData) {
	title := kind.DisplayName()
	if kind == a.Session.Active() {
		title += " (active)"
	}
	fmt.Fprintln(w, TitleStyle.Render(title))

	if data.Error != "" {
		fmt.Fprintf(w, "  %s\n\n", ErrorStyle.Render("not reachable at "+a.Session.Provider(kind).Endpoint().BaseURL))
		return
	}
	if len(data.Models) == 0 {
		fmt.Fprintf(w, "  %s\n\n", DimStyle.Render("no models installed"))
		return
	}

	for _, d := range data.Models {
		marker := "  "
		name := PadRight(Truncate(d.ID, modelColumnWidth), modelColumnWidth)
		if d.ID == data.Default {
			marker = HighlightStyle.Render("* ")
			name = HighlightStyle.Render(name)
		}
		var caps []string
		if d.SupportsImages {
			caps = append(caps, "images")
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, name, DimStyle.Render(strings.Join(caps, ",")))
	}
	if def := reg.Default(); def != "" && def != data.Default {
		fmt.Fprintf(w, "  %s\n", WarningStyle.Render(fmt.Sprintf("configured default %q is not installed", def)))
	}
	fmt.Fprintln(w)
}
