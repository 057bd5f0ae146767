// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
)

// commandNames lists the commands offered as suggestions.
var commandNames = []string{
	"ask", "chat", "models", "status", "config", "version", "help",
}

// SuggestCommand returns the command a mistyped input most likely meant,
// or "" when nothing is close. A unique prefix wins outright; otherwise
// the nearest name within a small edit distance is picked.
func SuggestCommand(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if len(input) < 2 {
		return ""
	}

	var prefixed []string
	for _, name := range commandNames {
		if name == input {
			return ""
		}
		if strings.HasPrefix(name, input) {
			prefixed = append(prefixed, name)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0]
	}

	limit := 1
	if len(input) >= 4 {
		limit = 2
	}
	best, bestDist := "", limit+1
	for _, name := range commandNames {
		if d := editDistance(input, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between two ASCII strings.
func editDistance(a, b string) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			sub := diag
			if a[i-1] != b[j-1] {
				sub++
			}
			diag = row[j]
			row[j] = min(row[j]+1, row[j-1]+1, sub)
		}
	}
	return row[len(b)]
}
