package xselinput

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-x11/xselinput/x11"
)

func openTestStream(t *testing.T, d *fakeDisplay) *Stream {
	t.Helper()
	conn := NewConn(d)
	s, err := conn.Open("CLIPBOARD", "UTF8_STRING", x11.Timestamp(0))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	return s
}

func TestStreamRefusedSelectionCompletesEmpty(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	selAtom, _ := d.InternAtom("CLIPBOARD")
	targetAtom, _ := d.InternAtom("UTF8_STRING")

	d.deliver(x11.SelectionNotifyEvent{
		Window:    d.RequestorWindow(),
		Selection: selAtom,
		Target:    targetAtom,
		Property:  x11.None,
	})

	buf := make([]byte, 16)
	n, err := s.Read(buf)
	if n != 0 || err != io.EOF {
		t.Fatalf("Read after refusal returned (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestStreamSingleChunkTransfer(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	selAtom, _ := d.InternAtom("CLIPBOARD")
	targetAtom, _ := d.InternAtom("UTF8_STRING")
	propAtom := d.converted[0].Property

	d.setProperty(propAtom, x11.Property{Type: targetAtom, Format: x11.Format8, Data: []byte("hello")})
	d.deliver(x11.SelectionNotifyEvent{
		Window:    d.RequestorWindow(),
		Selection: selAtom,
		Target:    targetAtom,
		Property:  propAtom,
	})

	buf := make([]byte, 32)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("Read returned %q, want %q", buf[:n], "hello")
	}

	n2, err := s.Read(buf)
	if n2 != 0 || err != io.EOF {
		t.Fatalf("second Read returned (%d, %v), want (0, io.EOF)", n2, err)
	}

	if len(d.deleted) != 1 || d.deleted[0] != propAtom {
		t.Fatalf("property was not deleted after being read: %v", d.deleted)
	}
}

func TestStreamIncrTransfer(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	selAtom, _ := d.InternAtom("CLIPBOARD")
	targetAtom, _ := d.InternAtom("UTF8_STRING")
	incrAtom, _ := d.InternAtom("INCR")
	propAtom := d.converted[0].Property

	d.setProperty(propAtom, x11.Property{Type: incrAtom, Format: x11.Format32, Data: []byte{0, 0, 0, 0}})
	d.deliver(x11.SelectionNotifyEvent{
		Window:    d.RequestorWindow(),
		Selection: selAtom,
		Target:    targetAtom,
		Property:  propAtom,
	})

	d.setProperty(propAtom, x11.Property{Type: targetAtom, Format: x11.Format8, Data: []byte("chunk-one-")})
	d.deliver(x11.PropertyNotifyEvent{Window: d.RequestorWindow(), Atom: propAtom, State: x11.PropertyNewValue})

	d.setProperty(propAtom, x11.Property{Type: targetAtom, Format: x11.Format8, Data: []byte("chunk-two")})
	d.deliver(x11.PropertyNotifyEvent{Window: d.RequestorWindow(), Atom: propAtom, State: x11.PropertyNewValue})

	d.setProperty(propAtom, x11.Property{Type: targetAtom, Format: x11.Format8, Data: nil})
	d.deliver(x11.PropertyNotifyEvent{Window: d.RequestorWindow(), Atom: propAtom, State: x11.PropertyNewValue})

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}
	if string(got) != "chunk-one-chunk-two" {
		t.Fatalf("ReadAll returned %q, want %q", got, "chunk-one-chunk-two")
	}
}

func TestStreamReadAsyncParksUntilDataArrives(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	selAtom, _ := d.InternAtom("CLIPBOARD")
	targetAtom, _ := d.InternAtom("UTF8_STRING")
	incrAtom, _ := d.InternAtom("INCR")
	propAtom := d.converted[0].Property

	d.setProperty(propAtom, x11.Property{Type: incrAtom})
	d.deliver(x11.SelectionNotifyEvent{
		Window:    d.RequestorWindow(),
		Selection: selAtom,
		Target:    targetAtom,
		Property:  propAtom,
	})

	buf := make([]byte, 16)
	ch := s.ReadAsync(buf)

	select {
	case res := <-ch:
		t.Fatalf("ReadAsync resolved before data arrived: %+v", res)
	case <-time.After(20 * time.Millisecond):
	}

	second := s.ReadAsync(buf)
	res := <-second
	if res.Err != ErrPendingRead {
		t.Fatalf("second ReadAsync returned %+v, want ErrPendingRead", res)
	}

	d.setProperty(propAtom, x11.Property{Type: targetAtom, Data: []byte("async")})
	d.deliver(x11.PropertyNotifyEvent{Window: d.RequestorWindow(), Atom: propAtom, State: x11.PropertyNewValue})

	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("ReadAsync resolved with error: %v", res.Err)
		}
		if string(buf[:res.N]) != "async" {
			t.Fatalf("ReadAsync delivered %q, want %q", buf[:res.N], "async")
		}
	case <-time.After(time.Second):
		t.Fatal("ReadAsync never resolved")
	}
}

func TestStreamCloseIsIdempotentAndUnparksReaders(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	buf := make([]byte, 16)
	ch := s.ReadAsync(buf)

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}

	select {
	case res := <-ch:
		if res.Err != io.EOF {
			t.Fatalf("parked ReadAsync resolved with %+v, want io.EOF", res)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unpark the pending ReadAsync")
	}
}

func TestStreamReadContextCancellation(t *testing.T) {
	d := newFakeDisplay()
	s := openTestStream(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.ReadContext(ctx, make([]byte, 4))
	if err == nil {
		t.Fatal("ReadContext returned nil error, want context deadline error")
	}
}
