package xselinput

import (
	"errors"
	"testing"

	"github.com/go-x11/xselinput/x11"
)

func TestConnNewPropertyNameIsUnique(t *testing.T) {
	d := newFakeDisplay()
	conn := NewConn(d)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := conn.newPropertyName()
		if seen[name] {
			t.Fatalf("newPropertyName produced a duplicate: %s", name)
		}
		seen[name] = true
	}
}

func TestConnSnapshotReflectsLiveStreams(t *testing.T) {
	d := newFakeDisplay()
	conn := NewConn(d)

	s, err := conn.Open("CLIPBOARD", "UTF8_STRING", x11.Timestamp(0))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	snap := conn.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot returned %d entries, want 1", len(snap))
	}
	if snap[0].Complete {
		t.Fatalf("Snapshot reported a fresh stream as complete")
	}

	s.Close()

	if got := conn.Snapshot(); len(got) != 0 {
		t.Fatalf("Snapshot after Close returned %d entries, want 0", len(got))
	}
}

func TestConnCloseForceCompletesLiveStreams(t *testing.T) {
	d := newFakeDisplay()
	conn := NewConn(d)

	s1, err := conn.Open("CLIPBOARD", "UTF8_STRING", x11.Timestamp(0))
	if err != nil {
		t.Fatalf("Open #1 returned error: %v", err)
	}
	s2, err := conn.Open("PRIMARY", "STRING", x11.Timestamp(0))
	if err != nil {
		t.Fatalf("Open #2 returned error: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if !s1.isComplete() || !s2.isComplete() {
		t.Fatalf("Close did not force-complete every live stream")
	}
}

func TestConnOpenAfterCloseReturnsErrClosed(t *testing.T) {
	d := newFakeDisplay()
	conn := NewConn(d)

	if err := conn.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if _, err := conn.Open("CLIPBOARD", "UTF8_STRING", x11.Timestamp(0)); !errors.Is(err, ErrClosed) {
		t.Fatalf("Open after Close = %v, want ErrClosed", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("second Close returned error: %v, want nil (idempotent)", err)
	}
}

func TestOpenPropagatesConvertSelectionFailure(t *testing.T) {
	d := newFakeDisplay()
	d.convertErr = errors.New("boom")
	conn := NewConn(d)

	_, err := conn.Open("CLIPBOARD", "UTF8_STRING", x11.Timestamp(0))
	if err == nil {
		t.Fatal("Open returned nil error, want the ConvertSelection failure wrapped")
	}
}
