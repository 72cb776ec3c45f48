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

	"github.com/pkg/errors"

	"github.com/go-x11/xselinput/x11"
)

// Stream is one in-flight selection transfer — spec.md §3's
// SelectionStream. It implements io.Reader (blocking) and also exposes
// ReadAsync for the completion-style read of §4.3.
type Stream struct {
	conn      *Conn
	disp      x11.Display
	requestor x11.Window

	SelectionName string
	TargetName    string

	selectionAtom x11.Atom
	targetAtom    x11.Atom
	incrAtom      x11.Atom
	propertyAtom  x11.Atom
	propertyName  string

	chunks *ChunkBuffer

	mu       sync.Mutex
	pending  *pendingRead
	complete bool
	incrMode bool

	removeFilter func()

	bytesDelivered int64
}

// Open issues XConvertSelection for selectionName/targetName and returns a
// Stream that will receive the reply. timestamp is passed straight
// through to ConvertSelection (CurrentTime is x11.Timestamp(0) in most
// bindings).
func Open(conn *Conn, selectionName, targetName string, timestamp x11.Timestamp) (*Stream, error) {
	disp := conn.display()

	selectionAtom, err := disp.InternAtom(selectionName)
	if err != nil {
		return nil, errors.Wrap(err, "intern selection atom")
	}
	targetAtom, err := disp.InternAtom(targetName)
	if err != nil {
		return nil, errors.Wrap(err, "intern target atom")
	}
	incrAtom, err := disp.InternAtom("INCR")
	if err != nil {
		return nil, errors.Wrap(err, "intern INCR atom")
	}

	propertyName := conn.newPropertyName()
	propertyAtom, err := disp.InternAtom(propertyName)
	if err != nil {
		return nil, errors.Wrap(err, "intern property atom")
	}

	s := &Stream{
		conn:          conn,
		disp:          disp,
		requestor:     disp.RequestorWindow(),
		SelectionName: selectionName,
		TargetName:    targetName,
		selectionAtom: selectionAtom,
		targetAtom:    targetAtom,
		incrAtom:      incrAtom,
		propertyAtom:  propertyAtom,
		propertyName:  propertyName,
		chunks:        NewChunkBuffer(),
	}

	s.removeFilter = disp.AddEventFilter(s.handleEvent)
	conn.register(s)

	if err := disp.ConvertSelection(selectionAtom, targetAtom, propertyAtom, s.requestor, timestamp); err != nil {
		s.forceComplete()
		return nil, errors.Wrap(err, "convert selection")
	}

	if conn.metrics != nil {
		conn.metrics.Opened()
	}

	return s, nil
}

// handleEvent is the event filter installed on Open; it implements the
// S0->S3 transition table of spec.md §4.1. It must never block.
func (s *Stream) handleEvent(ev x11.Event) x11.FilterResult {
	switch e := ev.(type) {
	case x11.SelectionNotifyEvent:
		if e.Window != s.requestor || e.Selection != s.selectionAtom || e.Target != s.targetAtom {
			return x11.FilterContinue
		}
		s.handleSelectionNotify(e)
		return x11.FilterRemove

	case x11.PropertyNotifyEvent:
		if e.Window != s.requestor || e.Atom != s.propertyAtom || e.State != x11.PropertyNewValue {
			return x11.FilterContinue
		}
		s.mu.Lock()
		incr := s.incrMode
		s.mu.Unlock()
		if !incr {
			// Outside INCR mode this is most likely our own
			// DeleteProperty call bouncing back; not ours to act on.
			return x11.FilterContinue
		}
		s.handlePropertyNotify(e)
		return x11.FilterContinue

	default:
		return x11.FilterContinue
	}
}

func (s *Stream) handleSelectionNotify(e x11.SelectionNotifyEvent) {
	if e.Property == x11.None {
		// Refused: S0 -> S3.
		if s.conn.metrics != nil {
			s.conn.metrics.Refused()
		}
		s.forceComplete()
		return
	}

	prop, err := s.disp.GetWindowProperty(s.requestor, e.Property)
	_ = s.disp.DeleteProperty(s.requestor, e.Property)
	if err != nil {
		s.forceComplete()
		return
	}

	if prop.Type == s.incrAtom {
		// S0 -> S2: the size hint in prop.Data is intentionally
		// discarded (spec.md §9 open question; original_source does the
		// same).
		if prop.Release != nil {
			prop.Release()
		}
		s.mu.Lock()
		s.incrMode = true
		s.mu.Unlock()
		if s.conn.metrics != nil {
			s.conn.metrics.IncrStarted()
		}
		return
	}

	// S0 -> S3: single, non-incremental transfer.
	s.pushChunk(Chunk{Data: prop.Data, Release: prop.Release})
	s.forceComplete()
}

func (s *Stream) handlePropertyNotify(e x11.PropertyNotifyEvent) {
	prop, err := s.disp.GetWindowProperty(s.requestor, e.Atom)
	_ = s.disp.DeleteProperty(s.requestor, e.Atom)
	if err != nil {
		// Malformed property / read failure mid-INCR: normal
		// termination (spec.md §7).
		s.forceComplete()
		return
	}

	if len(prop.Data) == 0 || prop.Type == x11.None {
		if prop.Release != nil {
			prop.Release()
		}
		s.forceComplete()
		return
	}

	s.pushChunk(Chunk{Data: prop.Data, Release: prop.Release})
	s.flush()
}

func (s *Stream) pushChunk(c Chunk) {
	s.chunks.PushBack(c)
	s.mu.Lock()
	s.bytesDelivered += int64(len(c.Data))
	s.mu.Unlock()
	if s.conn.metrics != nil {
		s.conn.metrics.AddBytes(len(c.Data))
	}
}

// forceComplete pushes the EOF sentinel, resolves any parked read with 0,
// and deregisters the stream. It is idempotent (spec.md §3 invariant 2).
func (s *Stream) forceComplete() {
	s.mu.Lock()
	if s.complete {
		s.mu.Unlock()
		return
	}
	s.complete = true
	s.mu.Unlock()

	if s.conn.metrics != nil {
		s.conn.metrics.Completed()
	}

	s.chunks.PushBack(Chunk{})
	s.flush()

	if s.removeFilter != nil {
		s.removeFilter()
	}
	s.conn.unregister(s)
}

// Close tears the stream down from the consumer side (spec.md §3
// "Destroyed when..."). Safe to call more than once.
func (s *Stream) Close() error {
	s.forceComplete()
	return nil
}

func (s *Stream) isComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}
