//go:build cgo && unix

// Package xlib is the concrete x11.Display backed by real Xlib. It owns a
// single Display* and a 1x1 leader/requestor window; callers drive the
// event pump themselves by calling Run, which pumps XNextEvent and fans
// events out to registered filters until stopped.
package xlib

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/Xatom.h>
#include <stdlib.h>
#include <string.h>

static Window x11_create_leader_window(Display *d) {
	return XCreateSimpleWindow(d, DefaultRootWindow(d), 0, 0, 1, 1, 0, 0, 0);
}

static int x11_get_window_property(Display *d, Window w, Atom property,
                                    Atom *type_ret, int *format_ret,
                                    unsigned long *nitems_ret,
                                    unsigned char **data_ret) {
	unsigned long bytes_after;
	return XGetWindowProperty(d, w, property, 0, 0x1FFFFFFF, False,
	                          AnyPropertyType, type_ret, format_ret,
	                          nitems_ret, &bytes_after, data_ret);
}
*/
import "C"

import (
	"context"
	"runtime"
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/go-x11/xselinput"
	"github.com/go-x11/xselinput/x11"
)

// Display is the cgo-backed x11.Display. Create one with Open, then start
// Run before issuing any ConvertSelection — nothing arrives until Run is
// pumping.
type Display struct {
	d         *C.Display
	requestor x11.Window

	mu      sync.Mutex
	filters map[int]x11.EventFilter
	nextID  int
	closed  bool
	runDone chan struct{}
}

// Open connects to the named X display ("" means $DISPLAY) and creates the
// leader/requestor window. It does not start pumping events — call Run,
// typically in its own goroutine, to do that.
func Open(name string) (*Display, error) {
	var cname *C.char
	if name != "" {
		cname = C.CString(name)
		defer C.free(unsafe.Pointer(cname))
	}

	d := C.XOpenDisplay(cname)
	if d == nil {
		return nil, errors.Errorf("xlib: XOpenDisplay(%q) failed", name)
	}

	leader := C.x11_create_leader_window(d)

	disp := &Display{
		d:         d,
		requestor: x11.Window(leader),
		filters:   make(map[int]x11.EventFilter),
		runDone:   make(chan struct{}),
	}

	return disp, nil
}

// Run implements x11.Display: it runs XNextEvent in a loop on a locked OS
// thread — Xlib's default (non-XInitThreads) mode requires every call on a
// Display to come from the same thread that opened it — until ctx is done
// or Close is called. Close blocks until a Run call started earlier has
// returned, so Run must be started (and left running) before Close can be
// expected to complete.
func (disp *Display) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(disp.runDone)

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			disp.wake()
		case <-watchDone:
		}
	}()

	var ev C.XEvent
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		disp.mu.Lock()
		closed := disp.closed
		disp.mu.Unlock()
		if closed {
			return nil
		}

		C.XNextEvent(disp.d, &ev)

		translated, ok := disp.translate(&ev)
		if !ok {
			continue
		}
		disp.dispatch(translated)
	}
}

func (disp *Display) translate(ev *C.XEvent) (x11.Event, bool) {
	switch eventType(ev) {
	case C.SelectionNotify:
		xsel := (*C.XSelectionEvent)(unsafe.Pointer(ev))
		return x11.SelectionNotifyEvent{
			Window:    x11.Window(xsel.requestor),
			Selection: x11.Atom(xsel.selection),
			Target:    x11.Atom(xsel.target),
			Property:  x11.Atom(xsel.property),
			Time:      x11.Timestamp(xsel.time),
		}, true
	case C.PropertyNotify:
		xprop := (*C.XPropertyEvent)(unsafe.Pointer(ev))
		state := x11.PropertyNewValue
		if xprop.state == C.PropertyDelete {
			state = x11.PropertyDeleted
		}
		return x11.PropertyNotifyEvent{
			Window: x11.Window(xprop.window),
			Atom:   x11.Atom(xprop.atom),
			State:  state,
			Time:   x11.Timestamp(xprop.time),
		}, true
	default:
		return nil, false
	}
}

func eventType(ev *C.XEvent) C.int {
	return *(*C.int)(unsafe.Pointer(ev))
}

func (disp *Display) dispatch(ev x11.Event) {
	disp.mu.Lock()
	fs := make([]x11.EventFilter, 0, len(disp.filters))
	for _, f := range disp.filters {
		fs = append(fs, f)
	}
	disp.mu.Unlock()

	for _, f := range fs {
		if f(ev) == x11.FilterRemove {
			return
		}
	}
}

// InternAtom implements x11.Display.
func (disp *Display) InternAtom(name string) (x11.Atom, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	atom := C.XInternAtom(disp.d, cname, C.False)
	if atom == C.None {
		return x11.None, errors.Errorf("xlib: XInternAtom(%q) failed", name)
	}
	return x11.Atom(atom), nil
}

// ConvertSelection implements x11.Display.
func (disp *Display) ConvertSelection(selection, target, property x11.Atom, requestor x11.Window, timestamp x11.Timestamp) error {
	C.XConvertSelection(disp.d, C.Atom(selection), C.Atom(target), C.Atom(property),
		C.Window(requestor), C.Time(timestamp))
	C.XFlush(disp.d)
	return nil
}

// GetWindowProperty implements x11.Display. Format 8/16/32 byte-length
// expansion matches the original's get_selection_property exactly,
// including its use of sizeof(long) (not 4) for format 32 — Xlib always
// hands back format-32 data as an array of C long, padded to the host
// word size.
func (disp *Display) GetWindowProperty(window x11.Window, property x11.Atom) (x11.Property, error) {
	var propType C.Atom
	var format C.int
	var nitems C.ulong
	var data *C.uchar

	ret := C.x11_get_window_property(disp.d, C.Window(window), C.Atom(property),
		&propType, &format, &nitems, &data)
	if ret != C.Success {
		return x11.Property{}, errors.Errorf("xlib: XGetWindowProperty failed (status %d)", int(ret))
	}
	if propType == C.None {
		if data != nil {
			C.XFree(unsafe.Pointer(data))
		}
		return x11.Property{}, errors.New("xlib: property does not exist")
	}

	var length int
	var pf x11.PropertyFormat
	switch format {
	case 8:
		length = int(nitems)
		pf = x11.Format8
	case 16:
		length = int(unsafe.Sizeof(C.short(0))) * int(nitems)
		pf = x11.Format16
	case 32:
		length = int(unsafe.Sizeof(C.long(0))) * int(nitems)
		pf = x11.Format32
	default:
		if data != nil {
			C.XFree(unsafe.Pointer(data))
		}
		return x11.Property{}, xselinput.ErrUnknownFormat
	}

	buf := C.GoBytes(unsafe.Pointer(data), C.int(length))
	ptr := unsafe.Pointer(data)

	return x11.Property{
		Type:    x11.Atom(propType),
		Format:  pf,
		Data:    buf,
		Release: func() { C.XFree(ptr) },
	}, nil
}

// DeleteProperty implements x11.Display.
func (disp *Display) DeleteProperty(window x11.Window, property x11.Atom) error {
	C.XDeleteProperty(disp.d, C.Window(window), C.Atom(property))
	return nil
}

// AddEventFilter implements x11.Display.
func (disp *Display) AddEventFilter(f x11.EventFilter) (remove func()) {
	disp.mu.Lock()
	id := disp.nextID
	disp.nextID++
	disp.filters[id] = f
	disp.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			disp.mu.Lock()
			delete(disp.filters, id)
			disp.mu.Unlock()
		})
	}
}

// RequestorWindow implements x11.Display.
func (disp *Display) RequestorWindow() x11.Window { return disp.requestor }

// SelectionOwner implements x11.Display.
func (disp *Display) SelectionOwner(selection x11.Atom) (x11.Window, error) {
	w := C.XGetSelectionOwner(disp.d, C.Atom(selection))
	return x11.Window(w), nil
}

// wake unblocks a Run call's XNextEvent wait with a harmless event
// addressed to our own leader window.
func (disp *Display) wake() {
	var ev C.XClientMessageEvent
	ev._type = C.ClientMessage
	ev.window = C.Window(disp.requestor)
	ev.format = 32
	evPtr := (*C.XEvent)(unsafe.Pointer(&ev))
	C.XSendEvent(disp.d, C.Window(disp.requestor), C.False, 0, evPtr)
	C.XFlush(disp.d)
}

// Close shuts down the event pump and the underlying connection, blocking
// until a Run call started earlier has returned. Pending Xlib calls from
// other goroutines are not safe to make once Close has started; callers
// should Close every xselinput.Conn using this Display first.
func (disp *Display) Close() error {
	disp.mu.Lock()
	if disp.closed {
		disp.mu.Unlock()
		return nil
	}
	disp.closed = true
	disp.mu.Unlock()

	disp.wake()
	<-disp.runDone

	C.XCloseDisplay(disp.d)
	return nil
}

var _ x11.Display = (*Display)(nil)
