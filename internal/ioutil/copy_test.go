package ioutil

import (
	"bytes"
	"io"
	"testing"
)

type writerToStub struct {
	data          []byte
	writeToCalled bool
	readCalled    bool
}

func (w *writerToStub) Read(p []byte) (int, error) {
	w.readCalled = true
	return copy(p, w.data), io.EOF
}

func (w *writerToStub) WriteTo(dst io.Writer) (int64, error) {
	w.writeToCalled = true
	n, err := dst.Write(w.data)
	return int64(n), err
}

type readerFromStub struct {
	bytes.Buffer
	readFromCalled bool
}

func (r *readerFromStub) ReadFrom(src io.Reader) (int64, error) {
	r.readFromCalled = true
	return r.Buffer.ReadFrom(src)
}

type noWriterToReader struct {
	data   []byte
	offset int
}

func (r *noWriterToReader) Read(p []byte) (int, error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.offset:])
	r.offset += n
	return n, nil
}

func TestCopyPrefersWriterTo(t *testing.T) {
	src := &writerToStub{data: []byte("hello selection")}
	var dst bytes.Buffer

	n, err := Copy(&dst, src)
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	if n != int64(len(src.data)) {
		t.Fatalf("Copy returned %d, want %d", n, len(src.data))
	}
	if !src.writeToCalled {
		t.Fatalf("WriteTo was not used")
	}
	if src.readCalled {
		t.Fatalf("Read should not be called when WriteTo is available")
	}
}

func TestCopyPrefersReaderFrom(t *testing.T) {
	src := &noWriterToReader{data: []byte("reader from data")}
	dst := &readerFromStub{}

	n, err := Copy(dst, src)
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	if n != int64(len("reader from data")) {
		t.Fatalf("Copy returned %d, want %d", n, len("reader from data"))
	}
	if !dst.readFromCalled {
		t.Fatalf("ReadFrom was not used")
	}
}

func TestCopyFallsBackToCopyBuffer(t *testing.T) {
	// Wrapping hides bytes.Reader's WriteTo and bytes.Buffer's ReadFrom,
	// so Copy has to take the CopyBuffer path.
	src := struct{ io.Reader }{bytes.NewReader(bytes.Repeat([]byte("x"), bufSize*3+17))}
	var buf bytes.Buffer
	dst := struct{ io.Writer }{&buf}

	n, err := Copy(dst, src)
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	if n != int64(bufSize*3+17) {
		t.Fatalf("Copy returned %d, want %d", n, bufSize*3+17)
	}
}
