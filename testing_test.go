package tvinput

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// fakeDevice is a scriptable Device that records every call.
type fakeDevice struct {
	mu sync.Mutex

	configs    []StreamConfig
	configsErr error
	openErr    error
	closeErr   error

	configCalls int
	opened      []int
	closed      []int
	requests    []uint32
	cancels     []uint32

	// Optional hooks, invoked without the fake's lock held.
	onRequest func(buf *SharedBuffer, seq uint32)
	onCancel  func(seq uint32)

	sink EventSink
}

func (d *fakeDevice) GetStreamConfigurations(deviceID int) ([]StreamConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configCalls++
	if d.configsErr != nil {
		return nil, d.configsErr
	}
	return append([]StreamConfig(nil), d.configs...), nil
}

func (d *fakeDevice) OpenStream(deviceID, streamID int) (SourceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened = append(d.opened, streamID)
	return &fakeHandle{}, nil
}

func (d *fakeDevice) CloseStream(deviceID, streamID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closeErr != nil {
		return d.closeErr
	}
	d.closed = append(d.closed, streamID)
	return nil
}

func (d *fakeDevice) RequestCapture(deviceID, streamID int, buf *SharedBuffer, seq uint32) error {
	d.mu.Lock()
	d.requests = append(d.requests, seq)
	hook := d.onRequest
	d.mu.Unlock()
	if hook != nil {
		hook(buf, seq)
	}
	return nil
}

func (d *fakeDevice) CancelCapture(deviceID, streamID int, seq uint32) error {
	d.mu.Lock()
	d.cancels = append(d.cancels, seq)
	hook := d.onCancel
	d.mu.Unlock()
	if hook != nil {
		hook(seq)
	}
	return nil
}

func (d *fakeDevice) SetEventSink(sink EventSink) {
	d.mu.Lock()
	d.sink = sink
	d.mu.Unlock()
}

func (d *fakeDevice) requestSeqs() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint32(nil), d.requests...)
}

func (d *fakeDevice) closedStreams() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.closed...)
}

// fakeHandle counts releases.
type fakeHandle struct {
	released int32
}

func (h *fakeHandle) Release() {
	atomic.AddInt32(&h.released, 1)
}

var errSurfaceGone = errors.New("surface torn down")

// fakeSurface dispenses buffers from a channel and records everything queued
// back to it.
type fakeSurface struct {
	mu sync.Mutex

	invalid bool
	usage   uint64
	width   int
	height  int
	format  int

	buffers  chan *SharedBuffer
	queued   []*SharedBuffer
	sideband []SourceHandle
}

func newFakeSurface(n int) *fakeSurface {
	return &fakeSurface{buffers: make(chan *SharedBuffer, n)}
}

func (s *fakeSurface) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.invalid
}

func (s *fakeSurface) SetUsage(usage uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = usage
	return nil
}

func (s *fakeSurface) SetBufferDimensions(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	return nil
}

func (s *fakeSurface) SetBufferFormat(format int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = format
	return nil
}

func (s *fakeSurface) DequeueBuffer() (*SharedBuffer, error) {
	buf, ok := <-s.buffers
	if !ok {
		return nil, errSurfaceGone
	}
	return buf, nil
}

func (s *fakeSurface) QueueBuffer(buf *SharedBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, buf)
	return nil
}

func (s *fakeSurface) SetSidebandStream(handle SourceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sideband = append(s.sideband, handle)
	return nil
}

func (s *fakeSurface) queuedBuffers() []*SharedBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*SharedBuffer(nil), s.queued...)
}

func (s *fakeSurface) sidebandCalls() []SourceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SourceHandle(nil), s.sideband...)
}

// fakeNotifier records notifications in arrival order.
type fakeNotifier struct {
	mu sync.Mutex

	available      []DeviceInfo
	unavailable    []int
	configsChanged []int
	cableStatuses  []CableConnectionStatus
	firstFrames    [][2]int
}

func (n *fakeNotifier) DeviceAvailable(info DeviceInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.available = append(n.available, info)
}

func (n *fakeNotifier) DeviceUnavailable(deviceID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unavailable = append(n.unavailable, deviceID)
}

func (n *fakeNotifier) StreamConfigsChanged(deviceID int, cableStatus CableConnectionStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.configsChanged = append(n.configsChanged, deviceID)
	n.cableStatuses = append(n.cableStatuses, cableStatus)
}

func (n *fakeNotifier) FirstFrameCaptured(deviceID, streamID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.firstFrames = append(n.firstFrames, [2]int{deviceID, streamID})
}

func (n *fakeNotifier) firstFrameCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.firstFrames)
}
