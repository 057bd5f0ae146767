// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question with a streamed answer.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/provider"
	"github.com/jeranaias/enchanted/internal/session"
)

const (
	// MaxImageSize caps attachments read from disk.
	MaxImageSize = 20 * 1024 * 1024

	// MaxStdinSize caps prompt text read from stdin.
	MaxStdinSize = 1024 * 1024
)

// askBoolFlags never take a value.
var askBoolFlags = []string{"render", "r"}

func (a *App) handleAsk(ctx context.Context, raw []string) (interface{}, error) {
	args := NewArgParser(raw, askBoolFlags...)

	prompt, err := a.readPrompt(args.PositionalFrom(0))
	if err != nil {
		return nil, err
	}

	temp, err := args.FlagFloat("temperature", "t")
	if err != nil {
		return nil, err
	}

	var image []byte
	if path := args.Flag("image", "i"); path != "" {
		if image, err = readImage(path); err != nil {
			return nil, err
		}
	}

	conv := model.Conversation{}
	if sys := args.Flag("system", "s"); sys != "" {
		conv = conv.Append(model.NewSystemMessage(sys))
	}
	conv = conv.Append(model.NewMessage(model.RoleUser, prompt, image))

	sess := a.Session
	modelID := strings.TrimSpace(args.Flag("model", "m"))
	if modelID == "" {
		modelID = sess.ResolveModel(ctx)
	}
	if modelID == "" {
		return nil, fmt.Errorf("%w: set %s.default_model or pass --model", provider.ErrNoModel, sess.Active())
	}

	s, err := sess.Chat(ctx, conv, session.ChatOptions{Model: modelID, Temperature: temp})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	render := args.BoolFlag("render", "r") && a.interactive()
	streamOut := !a.JSON && !render

	var answer strings.Builder
	for d, err := range s.Deltas() {
		if err != nil {
			if streamOut && answer.Len() > 0 {
				fmt.Fprintln(a.Out)
			}
			return nil, err
		}
		answer.WriteString(d.Text)
		if streamOut && d.Text != "" {
			fmt.Fprint(a.Out, d.Text)
		}
	}

	switch {
	case render:
		fmt.Fprint(a.Out, renderMarkdown(answer.String(), terminalWidth(a.Out), markdownStyle()))
	case streamOut:
		fmt.Fprintln(a.Out)
	}

	stats := s.Stats()
	if !a.JSON {
		a.infof("%s\n", DimStyle.Render(fmt.Sprintf("%s · %s", modelID, stats.Format())))
	}

	return AskData{
		Provider: sess.Active(),
		Model:    modelID,
		Response: answer.String(),
		Stats:    newStreamStatsData(stats),
	}, nil
}

// readPrompt joins the positional words. Piped stdin is appended, so
// "git diff | enchanted ask review this" sends both. A lone "-" or an
// empty prompt requires stdin.
func (a *App) readPrompt(words []string) (string, error) {
	prompt := strings.TrimSpace(strings.Join(words, " "))
	if prompt == "-" {
		prompt = ""
	}

	if a.In != nil && !isTerminal(a.In) {
		data, err := io.ReadAll(io.LimitReader(a.In, MaxStdinSize+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if len(data) > MaxStdinSize {
			return "", &UsageError{Message: fmt.Sprintf("stdin is larger than %d bytes", MaxStdinSize)}
		}
		if piped := strings.TrimSpace(string(data)); piped != "" {
			if prompt == "" {
				prompt = piped
			} else {
				prompt += "\n\n" + piped
			}
		}
	}

	if prompt == "" {
		return "", ErrMissingArgument("prompt", `enchanted ask "why is the sky blue?"`)
	}
	return prompt, nil
}

func readImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &UsageError{Message: fmt.Sprintf("cannot read image: %v", err)}
	}
	if info.Size() > MaxImageSize {
		return nil, &UsageError{Message: fmt.Sprintf("image %s is larger than %d MB", path, MaxImageSize/1024/1024)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UsageError{Message: fmt.Sprintf("cannot read image: %v", err)}
	}
	if len(data) == 0 {
		return nil, &UsageError{Message: fmt.Sprintf("image %s is empty", path)}
	}
	return data, nil
}
