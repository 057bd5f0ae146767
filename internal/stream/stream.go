// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a line-oriented response body into an ordered,
// cancellable sequence of chat deltas.
//
// One producer goroutine reads the body a line at a time and hands each
// line to a codec.Decoder. Deltas travel over an unbuffered channel, so
// every fragment reaches the consumer as soon as it is decoded and nothing
// is coalesced. The sequence ends with exactly one Final delta or with an
// error, never both.
package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/codec"
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/transport"
)

// readerSize is the initial line buffer. Lines longer than this still
// decode; the reader grows as needed.
const readerSize = 64 * 1024

var (
	// ErrClosed is returned by Next after Close.
	ErrClosed = errors.New("stream closed")

	// ErrTooManyMalformed ends a stream whose skip bound was reached.
	ErrTooManyMalformed = errors.New("too many consecutive malformed frames")
)

// Options configures a Stream.
type Options struct {
	// ID correlates log lines with the request that opened the stream.
	ID string

	// URL is reported in read errors.
	URL string

	// MaxConsecutiveSkips ends the stream with ErrTooManyMalformed after
	// this many malformed frames in a row. Zero never aborts.
	MaxConsecutiveSkips int

	Logger zerolog.Logger
}

// Stream is a single-pass sequence of deltas for one request. Next and
// Deltas are meant for one consumer; Close may be called from any
// goroutine.
type Stream struct {
	id       string
	url      string
	maxSkips int
	logger   zerolog.Logger

	body      io.ReadCloser
	bodyOnce  sync.Once
	deltas    chan model.Delta
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    atomic.Bool

	// err is written by the producer before deltas is closed.
	err error

	mu    sync.Mutex
	stats Stats
}

// Open starts decoding body and returns the stream. The stream owns body
// and closes it when decoding ends, when ctx is cancelled, or on Close.
func Open(ctx context.Context, body io.ReadCloser, dec codec.Decoder, opts Options) *Stream {
	ctx, cancel := context.WithCancel(ctx)

	s := &Stream{
		id:       opts.ID,
		url:      opts.URL,
		maxSkips: opts.MaxConsecutiveSkips,
		logger:   opts.Logger.With().Str("component", "stream").Str("request_id", opts.ID).Logger(),
		body:     body,
		deltas:   make(chan model.Delta),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	s.stats.StartedAt = time.Now()

	go s.produce(ctx, dec)
	return s
}

// ID returns the request identifier the stream was opened with.
func (s *Stream) ID() string {
	return s.id
}

// Next blocks until the next delta is available. After the Final delta it
// returns io.EOF. If the stream failed it returns that error instead, and
// no Final delta was delivered.
func (s *Stream) Next() (model.Delta, error) {
	if s.closed.Load() {
		return model.Delta{}, ErrClosed
	}
	d, ok := <-s.deltas
	if !ok {
		if s.closed.Load() {
			return model.Delta{}, ErrClosed
		}
		if s.err != nil {
			return model.Delta{}, s.err
		}
		return model.Delta{}, io.EOF
	}
	return d, nil
}

// Deltas returns the remaining deltas as an iterator. An error is yielded
// once as the last pair. Breaking out of the loop closes the stream.
func (s *Stream) Deltas() iter.Seq2[model.Delta, error] {
	return func(yield func(model.Delta, error) bool) {
		defer s.Close()
		for {
			d, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(model.Delta{}, err)
				return
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}

// Collect drains the stream and returns the concatenated text. On error
// the text received so far is returned with it.
func (s *Stream) Collect() (string, error) {
	var b strings.Builder
	for d, err := range s.Deltas() {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(d.Text)
	}
	return b.String(), nil
}

// Close abandons the stream. The connection is closed, the producer is
// stopped, and no further deltas are delivered. Close is idempotent and
// returns once the producer has exited.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		<-s.done
	})
	return nil
}

// Done is closed when the producer has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// =============================================================================
// PRODUCER
// =============================================================================

func (s *Stream) produce(ctx context.Context, dec codec.Decoder) {
	defer close(s.done)
	defer close(s.deltas)
	defer s.cancel()
	defer s.closeBody()

	// A blocked Read only returns once the body is closed.
	stop := context.AfterFunc(ctx, s.closeBody)
	defer stop()

	s.err = s.run(ctx, dec)

	s.mu.Lock()
	s.stats.EndedAt = time.Now()
	stats := s.stats
	s.mu.Unlock()

	ev := s.logger.Debug()
	if s.err != nil && !errors.Is(s.err, context.Canceled) {
		ev = s.logger.Warn().Err(s.err)
	}
	ev.Int("frames", stats.Frames).
		Int("malformed", stats.Malformed).
		Int("deltas", stats.Deltas).
		Dur("ttft", stats.TTFT()).
		Dur("elapsed", stats.Duration()).
		Msg("stream finished")
}

func (s *Stream) run(ctx context.Context, dec codec.Decoder) error {
	reader := bufio.NewReaderSize(s.body, readerSize)
	consecutive := 0

	for {
		line, readErr := reader.ReadString('\n')
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if line != "" {
			frag := dec.DecodeFragment(line)
			s.countFrame(frag)

			switch frag.Kind {
			case codec.KindSkip:
				if frag.Malformed() {
					consecutive++
					s.logger.Debug().Err(frag.Reason).Int("consecutive", consecutive).Msg("skipping malformed frame")
					if s.maxSkips > 0 && consecutive >= s.maxSkips {
						return ErrTooManyMalformed
					}
				}

			case codec.KindText:
				consecutive = 0
				if err := s.emit(ctx, model.Delta{Text: frag.Text}); err != nil {
					return err
				}

			case codec.KindEnd:
				if frag.Text != "" {
					if err := s.emit(ctx, model.Delta{Text: frag.Text}); err != nil {
						return err
					}
				}
				return s.emit(ctx, model.Delta{Final: true})
			}
		}

		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(readErr, io.EOF) {
				// The server closed the body without an explicit end frame.
				s.logger.Debug().Msg("body ended without end frame")
				return s.emit(ctx, model.Delta{Final: true})
			}
			return &transport.TransportError{Op: "read", URL: s.url, Err: readErr}
		}
	}
}

// emit hands d to the consumer, giving up if the stream is cancelled.
func (s *Stream) emit(ctx context.Context, d model.Delta) error {
	select {
	case s.deltas <- d:
		s.countDelta(d)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stream) closeBody() {
	s.bodyOnce.Do(func() {
		_ = s.body.Close()
	})
}

func (s *Stream) countFrame(f codec.Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Frames++
	if f.Kind == codec.KindSkip {
		s.stats.Skipped++
		if f.Malformed() {
			s.stats.Malformed++
		}
	}
}

func (s *Stream) countDelta(d model.Delta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Text == "" {
		return
	}
	if s.stats.FirstTextAt.IsZero() {
		s.stats.FirstTextAt = time.Now()
	}
	s.stats.Deltas++
	s.stats.Bytes += len(d.Text)
}
