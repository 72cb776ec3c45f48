// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package xselinput

import (
	"context"
	"io"
)

// ReadResult is delivered on the channel ReadAsync returns.
type ReadResult struct {
	N   int
	Err error
}

// pendingRead is the single-slot future backing ReadAsync: at most one may
// be parked on a Stream at a time (spec.md §4.3 invariant). It is resolved
// either immediately, inline in ReadAsync, or later by flush() when a
// filter callback delivers the bytes it's waiting on.
type pendingRead struct {
	buf    []byte
	result chan ReadResult
}

func readResult(n int, bufLen int) ReadResult {
	if n == 0 && bufLen > 0 {
		return ReadResult{N: 0, Err: io.EOF}
	}
	return ReadResult{N: n}
}

// Read implements io.Reader: a synchronous, blocking read of up to
// len(p) bytes. It returns (0, io.EOF) once the stream has delivered its
// sentinel, sticky on every subsequent call (spec.md §3 invariant 4).
// Read and ReadAsync share the same pending-read slot; calling Read while
// a ReadAsync is parked returns ErrPendingRead.
func (s *Stream) Read(p []byte) (int, error) {
	return s.ReadContext(context.Background(), p)
}

// ReadContext is Read bounded by ctx, for callers that want the blocking
// wait to be cancellable even though spec.md itself imposes no timeout.
func (s *Stream) ReadContext(ctx context.Context, p []byte) (int, error) {
	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return 0, ErrPendingRead
	}
	s.mu.Unlock()

	if len(p) == 0 {
		return 0, nil
	}

	n, err := s.chunks.FillBuffer(ctx, p)
	if err != nil {
		return n, err
	}
	res := readResult(n, len(p))
	return res.N, res.Err
}

// ReadAsync is the completion-style counterpart to Read (spec.md §4.3): it
// never blocks the calling goroutine. If bytes are already buffered (or
// the stream is already complete) the channel is resolved before
// ReadAsync returns; otherwise it is resolved later, from whichever
// goroutine is running the event filter, when enough data arrives or the
// stream completes. Calling ReadAsync while a read is already parked
// resolves the new channel immediately with ErrPendingRead and leaves the
// first one parked.
func (s *Stream) ReadAsync(p []byte) <-chan ReadResult {
	ch := make(chan ReadResult, 1)

	if len(p) == 0 {
		ch <- ReadResult{}
		return ch
	}

	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		ch <- ReadResult{Err: ErrPendingRead}
		return ch
	}

	if n, ok := s.chunks.TryFillBuffer(p); ok {
		s.mu.Unlock()
		ch <- readResult(n, len(p))
		return ch
	}

	s.pending = &pendingRead{buf: p, result: ch}
	s.mu.Unlock()
	return ch
}

// flush attempts to satisfy a parked read with whatever is now buffered.
// It is a no-op if nothing is parked, or if the buffer is still empty.
// Called from the event-filter goroutine after every chunk arrival and on
// completion, so a parked ReadAsync is never left hanging once the
// sentinel has been pushed.
func (s *Stream) flush() {
	s.mu.Lock()
	pr := s.pending
	if pr == nil {
		s.mu.Unlock()
		return
	}
	n, ok := s.chunks.TryFillBuffer(pr.buf)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	pr.result <- readResult(n, len(pr.buf))
}

var _ io.Reader = (*Stream)(nil)
