package xselinput

import (
	"context"
	"sync"

	"github.com/go-x11/xselinput/x11"
)

// fakeDisplay is an in-memory x11.Display double. Tests drive it directly
// by calling setProperty/deliver instead of talking to a real server.
type fakeDisplay struct {
	mu        sync.Mutex
	atoms     map[string]x11.Atom
	names     map[x11.Atom]string
	nextAtom  x11.Atom
	props     map[x11.Atom]x11.Property
	filters   map[int]x11.EventFilter
	nextID    int
	requestor x11.Window
	owner     x11.Window

	converted []convertCall
	deleted   []x11.Atom

	convertErr error
}

type convertCall struct {
	Selection, Target, Property x11.Atom
	Requestor                   x11.Window
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		atoms:     make(map[string]x11.Atom),
		names:     make(map[x11.Atom]string),
		nextAtom:  1,
		props:     make(map[x11.Atom]x11.Property),
		filters:   make(map[int]x11.EventFilter),
		requestor: 1,
	}
}

func (d *fakeDisplay) InternAtom(name string) (x11.Atom, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.atoms[name]; ok {
		return a, nil
	}
	a := d.nextAtom
	d.nextAtom++
	d.atoms[name] = a
	d.names[a] = name
	return a, nil
}

func (d *fakeDisplay) ConvertSelection(selection, target, property x11.Atom, requestor x11.Window, timestamp x11.Timestamp) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.convertErr != nil {
		return d.convertErr
	}
	d.converted = append(d.converted, convertCall{selection, target, property, requestor})
	return nil
}

func (d *fakeDisplay) GetWindowProperty(window x11.Window, property x11.Atom) (x11.Property, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.props[property]
	if !ok {
		return x11.Property{}, errPropertyNotFound
	}
	return p, nil
}

func (d *fakeDisplay) DeleteProperty(window x11.Window, property x11.Atom) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.props, property)
	d.deleted = append(d.deleted, property)
	return nil
}

func (d *fakeDisplay) AddEventFilter(f x11.EventFilter) (remove func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.filters[id] = f
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.filters, id)
			d.mu.Unlock()
		})
	}
}

func (d *fakeDisplay) RequestorWindow() x11.Window { return d.requestor }

func (d *fakeDisplay) SelectionOwner(selection x11.Atom) (x11.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner, nil
}

// Run implements x11.Display. Tests drive fakeDisplay directly via
// deliver, so there is no real pump to run; it just blocks until ctx is
// done, the way a real adapter's Run would once stopped.
func (d *fakeDisplay) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// setOwner stages the result SelectionOwner will return.
func (d *fakeDisplay) setOwner(w x11.Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.owner = w
}

// setProperty stages a property value as if the selection owner had
// already XChangeProperty'd it onto the requestor window.
func (d *fakeDisplay) setProperty(atom x11.Atom, p x11.Property) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props[atom] = p
}

// deliver fans ev out to every registered filter, stopping at the first
// one that returns FilterRemove — mirroring a real adapter's dispatch
// loop.
func (d *fakeDisplay) deliver(ev x11.Event) {
	d.mu.Lock()
	filters := make([]x11.EventFilter, 0, len(d.filters))
	for _, f := range d.filters {
		filters = append(filters, f)
	}
	d.mu.Unlock()

	for _, f := range filters {
		if f(ev) == x11.FilterRemove {
			return
		}
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errPropertyNotFound = fakeErr("property not found")
