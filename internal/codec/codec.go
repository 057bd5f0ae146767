// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codec defines the contract between a provider's wire format and
// the stream decoder, plus the line framing shared by every dialect.
package codec

import (
	"errors"
	"fmt"

	"github.com/jeranaias/enchanted/internal/model"
)

// =============================================================================
// CODEC CONTRACT
// =============================================================================

// Codec converts conversations into request bodies and response lines into
// fragments for one provider dialect. Implementations must be safe for
// concurrent use; they hold no per-request state.
type Codec interface {
	Decoder

	// EncodeRequest builds the JSON body of a chat request. A nil
	// temperature leaves the server default in place.
	EncodeRequest(conv model.Conversation, modelID string, streaming bool, temperature *float64) ([]byte, error)

	// DecodeModels extracts model identifiers from a model-listing body.
	DecodeModels(body []byte) ([]string, error)
}

// Decoder turns one response line into a Fragment. Decoding never fails:
// anything unusable becomes a Skip.
type Decoder interface {
	DecodeFragment(line string) Fragment
}

// =============================================================================
// FRAGMENT
// =============================================================================

// Kind discriminates the Fragment union.
type Kind int

const (
	// KindSkip advances the stream without emitting anything.
	KindSkip Kind = iota

	// KindText carries a piece of the answer.
	KindText

	// KindEnd terminates the stream, optionally after forwarding Text.
	KindEnd
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindText:
		return "text"
	case KindEnd:
		return "end"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fragment is the decoded form of one response line.
type Fragment struct {
	Kind Kind
	Text string

	// Reason is set on a Skip produced by a malformed frame. Blank lines
	// and frames that simply carry nothing leave it nil.
	Reason error
}

// Skip returns a Skip fragment. reason may be nil.
func Skip(reason error) Fragment {
	return Fragment{Kind: KindSkip, Reason: reason}
}

// Text returns a Text fragment, or a plain Skip when s is empty.
func Text(s string) Fragment {
	if s == "" {
		return Fragment{Kind: KindSkip}
	}
	return Fragment{Kind: KindText, Text: s}
}

// End returns a terminal fragment carrying any trailing text.
func End(s string) Fragment {
	return Fragment{Kind: KindEnd, Text: s}
}

// Malformed reports whether the fragment is a Skip caused by a bad frame.
func (f Fragment) Malformed() bool {
	return f.Kind == KindSkip && f.Reason != nil
}

// =============================================================================
// DECODE ERRORS
// =============================================================================

// ErrMalformed is matched by every DecodeError.
var ErrMalformed = errors.New("malformed frame")

// maxQuoted bounds how much of a bad payload ends up in an error message.
const maxQuoted = 120

// DecodeError explains why a frame was skipped.
type DecodeError struct {
	Framing Framing
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	p := e.Payload
	if len(p) > maxQuoted {
		p = p[:maxQuoted] + "..."
	}
	return fmt.Sprintf("%s frame %q: %v", e.Framing, p, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformed) true for any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

// IsMalformed reports whether err describes a skipped frame.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
