package metrics

import "testing"

func TestCollectorToSliceMatchesHeaderLength(t *testing.T) {
	c := New()
	c.Opened()
	c.Completed()
	c.Refused()
	c.IncrStarted()
	c.AddBytes(128)

	header := c.Header()
	row := c.ToSlice()
	if len(header) != len(row) {
		t.Fatalf("Header has %d columns, ToSlice has %d", len(header), len(row))
	}

	want := []string{"1", "1", "1", "1", "128"}
	for i, v := range row {
		if v != want[i] {
			t.Fatalf("row[%d] = %q, want %q", i, v, want[i])
		}
	}
}

func TestCollectorAddBytesAccumulates(t *testing.T) {
	c := New()
	c.AddBytes(10)
	c.AddBytes(32)

	row := c.ToSlice()
	if got := row[len(row)-1]; got != "42" {
		t.Fatalf("BytesDelivered = %q, want %q", got, "42")
	}
}
