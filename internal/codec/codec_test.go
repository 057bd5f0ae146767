// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrame(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantPayload string
		wantFraming Framing
	}{
		{"sse", `data: {"a":1}`, `{"a":1}`, FramingSSE},
		{"sse keeps extra space", `data:  {"a":1}`, ` {"a":1}`, FramingSSE},
		{"sse crlf", "data: [DONE]\r\n", "[DONE]", FramingSSE},
		{"native", `{"done":false}`, `{"done":false}`, FramingNative},
		{"native newline", "{\"done\":true}\n", `{"done":true}`, FramingNative},
		{"no space is not sse", `data:{"a":1}`, `data:{"a":1}`, FramingNative},
		{"blank", "", "", FramingNone},
		{"whitespace", "  \r\n", "", FramingNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload, framing := SplitFrame(tc.line)
			assert.Equal(t, tc.wantPayload, payload)
			assert.Equal(t, tc.wantFraming, framing)
		})
	}
}

func TestDecode_SharedRules(t *testing.T) {
	var calls int
	decode := func(payload []byte, framing Framing) Fragment {
		calls++
		var v struct{ T string }
		if err := json.Unmarshal(payload, &v); err != nil {
			return Skip(&DecodeError{Framing: framing, Payload: string(payload), Err: err})
		}
		return Text(v.T)
	}

	assert.Equal(t, End(""), Decode("data: [DONE]", decode))
	assert.Equal(t, End(""), Decode("[DONE]", decode))
	assert.Equal(t, Skip(nil), Decode("", decode))
	assert.Equal(t, Skip(nil), Decode("data: ", decode))
	assert.Zero(t, calls, "dialect decoder should not see framing-level lines")

	assert.Equal(t, Text("hi"), Decode(`data: {"T":"hi"}`, decode))
	assert.Equal(t, Text("yo"), Decode(`{"T":"yo"}`, decode))

	bad := Decode(`data: {"T":`, decode)
	assert.True(t, bad.Malformed())
	assert.True(t, IsMalformed(bad.Reason))
}

func TestFragmentConstructors(t *testing.T) {
	assert.Equal(t, KindSkip, Text("").Kind, "empty text collapses to skip")
	assert.False(t, Text("").Malformed())
	assert.Equal(t, KindEnd, End("tail").Kind)
	assert.Equal(t, "tail", End("tail").Text)
	assert.Equal(t, "end", KindEnd.String())
}

func TestDecodeError(t *testing.T) {
	inner := errors.New("boom")
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := &DecodeError{Framing: FramingNative, Payload: string(long), Err: inner}

	require.ErrorIs(t, err, inner)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Less(t, len(err.Error()), 200)
}

func TestImageDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,AQID", ImageDataURL([]byte{1, 2, 3}))
	assert.Equal(t, "AQID", Base64([]byte{1, 2, 3}))
}
