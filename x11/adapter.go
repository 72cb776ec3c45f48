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

// Package x11 defines the thin adapter the xselinput core consumes to talk
// to an X11 display. Nothing in this package knows how to open a real
// connection; package xlib is one concrete implementation, but any type
// satisfying Display works (tests in the xselinput package use a
// fully in-memory one).
package x11

import "context"

// Atom is a server-interned identifier for a string.
type Atom uint32

// None is the atom value ICCCM reserves to mean "no atom" / "no property".
const None Atom = 0

// Window identifies an X11 window.
type Window uint32

// NoWindow is the Window value SelectionOwner returns when nobody owns the
// selection. It is distinct from None: Go forbids comparing values across
// two different defined types even when both are backed by uint32, so a
// Window must be compared against a Window sentinel, not Atom's None.
const NoWindow Window = 0

// Timestamp is an X11 server timestamp, as passed to XConvertSelection.
type Timestamp uint32

// PropertyFormat is the unit size XGetWindowProperty reports data in.
type PropertyFormat int

const (
	Format8  PropertyFormat = 8
	Format16 PropertyFormat = 16
	Format32 PropertyFormat = 32
)

// Property is the result of a successful GetWindowProperty call. Data has
// already been expanded to its true byte length per Format (8 -> nitems,
// 16 -> 2*nitems, 32 -> sizeof(long)*nitems), matching the original C
// get_selection_property's rule. Release must be called exactly once, when
// the caller is done with Data; it is where a real binding frees the
// underlying C buffer.
type Property struct {
	Type    Atom
	Format  PropertyFormat
	Data    []byte
	Release func()
}

// PropertyState mirrors the XPropertyNotifyEvent state field.
type PropertyState int

const (
	PropertyNewValue PropertyState = iota
	PropertyDeleted
)

// Event is the closed union of X11 events the core understands. Only
// SelectionNotifyEvent and PropertyNotifyEvent implement it; every other
// X11 event kind the adapter may see is simply never passed to the core.
type Event interface {
	xEvent()
}

// SelectionNotifyEvent is delivered in response to a ConvertSelection call.
type SelectionNotifyEvent struct {
	Window    Window
	Selection Atom
	Target    Atom
	Property  Atom // None if the owner refused the conversion
	Time      Timestamp
}

func (SelectionNotifyEvent) xEvent() {}

// PropertyNotifyEvent is delivered when a window property changes; the
// core only cares about these during an INCR transfer.
type PropertyNotifyEvent struct {
	Window Window
	Atom   Atom
	State  PropertyState
	Time   Timestamp
}

func (PropertyNotifyEvent) xEvent() {}

// FilterResult tells the adapter what to do with an event after a filter
// has seen it.
type FilterResult int

const (
	// FilterContinue lets other filters on the same window see the event.
	FilterContinue FilterResult = iota
	// FilterRemove consumes the event; no other filter sees it.
	FilterRemove
	// FilterTranslate asks the adapter to translate the raw event into a
	// higher-level one before continuing dispatch. The xselinput core
	// never returns this; it exists so Display implementations can share
	// one FilterResult type with a richer caller.
	FilterTranslate
)

// EventFilter is invoked once per event for every window/display match.
// It must not block.
type EventFilter func(Event) FilterResult

// Display is the seam between the xselinput core and a real X11
// connection. All methods must be safe to call from any goroutine except
// where documented otherwise.
type Display interface {
	// InternAtom returns the atom for name, interning it on the server if
	// necessary.
	InternAtom(name string) (Atom, error)

	// ConvertSelection issues XConvertSelection. The reply arrives later
	// as a SelectionNotifyEvent delivered to a registered filter.
	ConvertSelection(selection, target, property Atom, requestor Window, timestamp Timestamp) error

	// GetWindowProperty reads the named property on window in its
	// entirety, using AnyPropertyType. Returns an error if the property
	// does not exist or the read otherwise fails.
	GetWindowProperty(window Window, property Atom) (Property, error)

	// DeleteProperty deletes the named property; this is what signals an
	// INCR owner to send its next chunk.
	DeleteProperty(window Window, property Atom) error

	// AddEventFilter registers f to observe every event this display
	// delivers. The returned func removes that one registration; calling
	// it more than once is a no-op.
	AddEventFilter(f EventFilter) (remove func())

	// RequestorWindow returns the window used to receive selection
	// replies — typically a hidden leader window shared by every stream
	// on this display.
	RequestorWindow() Window

	// SelectionOwner returns the window currently owning selection, or
	// NoWindow if nobody does. Used to detect ownership changes by
	// polling, since XFixes selection-change notification is out of
	// scope.
	SelectionOwner(selection Atom) (Window, error)

	// Run pumps events and dispatches them to registered filters until
	// ctx is done or Close is called, whichever comes first. It blocks
	// the calling goroutine; callers that need it alongside other
	// long-running work typically run it under an errgroup.
	Run(ctx context.Context) error
}
