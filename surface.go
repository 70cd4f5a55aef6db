package tvinput

// Surface is the display sink capability: an opaque window that buffers can
// be dequeued from and queued back to for presentation.
//
// Implementations are owned by the consuming framework. The HAL only ever
// holds borrowed references to them.
type Surface interface {
	// IsValid reports whether the underlying window is still usable. The
	// framework may tear a surface down while the HAL still references it.
	IsValid() bool

	// Buffer geometry, applied before the first dequeue.
	SetUsage(usage uint64) error
	SetBufferDimensions(width, height int) error
	SetBufferFormat(format int) error

	// DequeueBuffer returns a free buffer to capture into. May block until
	// the window has one available.
	DequeueBuffer() (*SharedBuffer, error)

	// QueueBuffer hands a filled buffer back for presentation. The surface
	// must take its own reference (Hold) if it retains the buffer beyond
	// this call; the caller releases its reference afterwards.
	QueueBuffer(buf *SharedBuffer) error

	// SetSidebandStream attaches a device sideband channel to the window,
	// or detaches it when handle is nil.
	SetSidebandStream(handle SourceHandle) error
}

// Notifier is the boundary toward the consuming framework. The HAL raises
// these from its control goroutine; implementations should return promptly.
type Notifier interface {
	DeviceAvailable(info DeviceInfo)
	DeviceUnavailable(deviceID int)
	StreamConfigsChanged(deviceID int, cableStatus CableConnectionStatus)
	FirstFrameCaptured(deviceID, streamID int)
}
