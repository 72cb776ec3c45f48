package xselinput

import (
	"testing"

	"github.com/go-x11/xselinput/x11"
)

func TestReadAsyncZeroLengthBufferResolvesImmediately(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	ch := s.ReadAsync(nil)
	res := <-ch
	if res.N != 0 || res.Err != nil {
		t.Fatalf("ReadAsync(nil) returned %+v, want zero value", res)
	}
}

func TestReadZeroLengthBufferDoesNotTouchPendingSlot(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	n, err := s.Read(nil)
	if n != 0 || err != nil {
		t.Fatalf("Read(nil) returned (%d, %v), want (0, nil)", n, err)
	}

	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending != nil {
		t.Fatalf("Read(nil) parked a pending read")
	}
}

func TestReadReturnsErrPendingReadWhileAsyncParked(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	incrAtom, _ := d.InternAtom("INCR")
	selAtom, _ := d.InternAtom("CLIPBOARD")
	targetAtom, _ := d.InternAtom("UTF8_STRING")
	propAtom := d.converted[0].Property
	d.setProperty(propAtom, x11.Property{Type: incrAtom})
	d.deliver(x11.SelectionNotifyEvent{Window: d.RequestorWindow(), Selection: selAtom, Target: targetAtom, Property: propAtom})

	_ = s.ReadAsync(make([]byte, 8))

	_, err := s.Read(make([]byte, 8))
	if err != ErrPendingRead {
		t.Fatalf("Read returned %v, want ErrPendingRead", err)
	}
}
