package hwsim

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/tvinput"
)

// Window is a minimal tvinput.Surface backed by a fixed pool of byte
// buffers. Dequeued buffers return to the pool when their last reference is
// released. Queued buffers are handed to the OnPresent callback.
type Window struct {
	// OnPresent, if set, observes each presented buffer. The bytes are only
	// valid for the duration of the call.
	OnPresent func(data []byte)

	free chan []byte

	mu       sync.Mutex
	valid    bool
	usage    uint64
	width    int
	height   int
	format   int
	sideband tvinput.SourceHandle
}

// NewWindow creates a window with count buffers of size bytes each.
func NewWindow(count, size int) *Window {
	w := &Window{
		free:  make(chan []byte, count),
		valid: true,
	}
	for i := 0; i < count; i++ {
		w.free <- make([]byte, size)
	}
	return w
}

// Destroy invalidates the window. Buffers still out stay usable until
// released.
func (w *Window) Destroy() {
	w.mu.Lock()
	w.valid = false
	w.mu.Unlock()
}

func (w *Window) IsValid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.valid
}

func (w *Window) SetUsage(usage uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.usage = usage
	return nil
}

func (w *Window) SetBufferDimensions(width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = width, height
	return nil
}

func (w *Window) SetBufferFormat(format int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.format = format
	return nil
}

// DequeueBuffer blocks until the pool has a free buffer.
func (w *Window) DequeueBuffer() (*tvinput.SharedBuffer, error) {
	data, ok := <-w.free
	if !ok {
		return nil, errors.New("window destroyed")
	}
	return tvinput.NewSharedBuffer(data, func() { w.free <- data }), nil
}

func (w *Window) QueueBuffer(buf *tvinput.SharedBuffer) error {
	if w.OnPresent != nil {
		w.OnPresent(buf.Bytes())
	}
	return nil
}

func (w *Window) SetSidebandStream(handle tvinput.SourceHandle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sideband = handle
	return nil
}

// Sideband returns the currently attached sideband handle, if any.
func (w *Window) Sideband() tvinput.SourceHandle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sideband
}
