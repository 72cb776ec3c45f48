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

import "errors"

var (
	// ErrPendingRead is returned by Read, ReadContext and ReadAsync when
	// they are called while an asynchronous read is already parked.
	// Spec.md §7 classifies this as a programmer error.
	ErrPendingRead = errors.New("xselinput: a read is already pending on this stream")

	// ErrClosed is returned by Conn.Open once that Conn's Close has run.
	// Reads on a closed Stream are not affected; they return io.EOF.
	ErrClosed = errors.New("xselinput: stream closed")

	// ErrUnknownFormat is returned when GetWindowProperty reports a
	// format other than 8, 16 or 32. Spec.md §4.1 treats this as a hard
	// error that completes the stream.
	ErrUnknownFormat = errors.New("xselinput: unknown property format")
)
