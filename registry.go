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
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/go-x11/xselinput/x11"
)

// MetricsSink receives lifecycle and byte-count events as streams make
// progress. It is satisfied by *internal/metrics.Collector; tests and
// callers that don't care about observability simply never set one.
type MetricsSink interface {
	AddBytes(n int)
	Opened()
	Completed()
	Refused()
	IncrStarted()
}

// Conn owns a single x11.Display and every Stream currently reading from
// it. Property names handed out for new streams are UUID-derived so two
// Conns sharing a display (or a requestor window reused across restarts)
// can never collide on an atom the way the original's pointer-address
// naming scheme could.
type Conn struct {
	disp    x11.Display
	metrics MetricsSink

	mu      sync.Mutex
	streams map[*Stream]struct{}
	closed  bool
}

// ConnOption configures a Conn at construction time.
type ConnOption func(*Conn)

// WithMetrics attaches a sink that every Stream opened on this Conn
// reports byte counts to.
func WithMetrics(sink MetricsSink) ConnOption {
	return func(c *Conn) { c.metrics = sink }
}

// NewConn wraps disp. disp must already be usable (e.g. xlib.Open has
// returned); replies only arrive once the caller is running disp.Run.
func NewConn(disp x11.Display, opts ...ConnOption) *Conn {
	c := &Conn{
		disp:    disp,
		streams: make(map[*Stream]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Conn) display() x11.Display { return c.disp }

// newPropertyName returns a property name guaranteed unique to this
// process: "XSELINPUT_" plus a UUIDv4. It replaces the original's
// "GDK_SELECTION_" + pointer address scheme and is collision-free without
// relying on heap addresses.
func (c *Conn) newPropertyName() string {
	return "XSELINPUT_" + uuid.NewString()
}

// isClosed reports whether Close has already run on this Conn.
func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) register(s *Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams[s] = struct{}{}
}

func (c *Conn) unregister(s *Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.streams, s)
}

// Open starts a new selection transfer on this Conn. See Open for
// semantics. Returns ErrClosed if this Conn's Close has already run.
func (c *Conn) Open(selectionName, targetName string, timestamp x11.Timestamp) (*Stream, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return Open(c, selectionName, targetName, timestamp)
}

// Snapshot returns the selection/target pair of every stream currently
// in flight, for operator visibility (cmd/xselwatch's SIGUSR1 handler).
func (c *Conn) Snapshot() []StreamInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StreamInfo, 0, len(c.streams))
	for s := range c.streams {
		out = append(out, StreamInfo{
			SelectionName: s.SelectionName,
			TargetName:    s.TargetName,
			PropertyName:  s.propertyName,
			Complete:      s.isComplete(),
		})
	}
	return out
}

// StreamInfo is a point-in-time view of one in-flight Stream.
type StreamInfo struct {
	SelectionName string
	TargetName    string
	PropertyName  string
	Complete      bool
}

// Close force-completes every live stream and tears down the underlying
// display filter registrations. Individual stream teardown errors are
// aggregated rather than short-circuited, so one misbehaving stream can't
// hide the rest. Safe to call more than once; later calls are no-ops.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	live := make([]*Stream, 0, len(c.streams))
	for s := range c.streams {
		live = append(live, s)
	}
	c.mu.Unlock()

	var result *multierror.Error
	for _, s := range live {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
