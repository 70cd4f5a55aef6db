//////////////////////////////////////////////////////////////////////////////
//
// Reference-counted graphics buffer handles
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package tvinput

import "sync/atomic"

// A SharedBuffer is a byte buffer passed between a surface, a buffer
// producer, and a capture device. Ownership is shared: the producer holds a
// reference for as long as the buffer is in flight, and either the loop
// goroutine or a rebind/shutdown path may drop it. Whichever Release brings
// the count to zero returns the buffer to its surface.
type SharedBuffer struct {
	data []byte

	count   int32
	release func()
}

// NewSharedBuffer wraps data with an initial reference count of one. The
// release callback, if non-nil, runs exactly once, when the count reaches
// zero.
func NewSharedBuffer(data []byte, release func()) *SharedBuffer {
	return &SharedBuffer{data: data, count: 1, release: release}
}

// Bytes returns the underlying storage. Valid only while the caller holds a
// reference.
func (buf *SharedBuffer) Bytes() []byte {
	return buf.data
}

// Len returns the buffer capacity in bytes.
func (buf *SharedBuffer) Len() int {
	return len(buf.data)
}

// Hold takes an additional reference.
func (buf *SharedBuffer) Hold() {
	atomic.AddInt32(&buf.count, 1)
}

// Release drops one reference. Safe to call on a nil buffer.
func (buf *SharedBuffer) Release() {
	if buf == nil {
		return
	}
	if atomic.AddInt32(&buf.count, -1) == 0 && buf.release != nil {
		buf.release()
	}
}
