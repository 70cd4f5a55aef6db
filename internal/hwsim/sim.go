// Package hwsim simulates a TV input device in process: a fixed stream
// configuration list, sideband source handles, and synthesized capture
// completions. It backs the daemon's demo mode and end-to-end tests, the
// same role the stub media sources play for the streaming stack.
package hwsim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/tvinput"
	"github.com/lanikai/tvinput/internal/logging"
)

var log = logging.DefaultLogger.WithTag("hwsim")

// Simulator implements tvinput.Device for a single simulated device.
type Simulator struct {
	info    tvinput.DeviceInfo
	configs []tvinput.StreamConfig

	// Delay between a capture request and its completion.
	captureDelay time.Duration

	mu       sync.Mutex
	sink     tvinput.EventSink
	open     map[int]*sourceHandle
	pending  map[uint32]bool // in-flight capture sequences
	canceled map[uint32]bool
}

// New creates a simulator for a device with the given descriptor and stream
// configurations.
func New(info tvinput.DeviceInfo, configs []tvinput.StreamConfig) *Simulator {
	return &Simulator{
		info:         info,
		configs:      configs,
		captureDelay: 10 * time.Millisecond,
		open:         make(map[int]*sourceHandle),
		pending:      make(map[uint32]bool),
		canceled:     make(map[uint32]bool),
	}
}

// SetCaptureDelay overrides how long simulated captures take.
func (s *Simulator) SetCaptureDelay(d time.Duration) {
	s.captureDelay = d
}

// PlugIn announces the device to the registered sink.
func (s *Simulator) PlugIn() {
	s.mu.Lock()
	s.info.CableConnectionStatus = tvinput.CableStatusConnected
	info := s.info
	s.mu.Unlock()

	s.emit(tvinput.Event{Type: tvinput.EventDeviceAvailable, DeviceInfo: info})
}

// Unplug withdraws the device.
func (s *Simulator) Unplug() {
	s.mu.Lock()
	s.info.CableConnectionStatus = tvinput.CableStatusDisconnected
	info := s.info
	s.mu.Unlock()

	s.emit(tvinput.Event{Type: tvinput.EventDeviceUnavailable, DeviceInfo: info})
}

// ChangeConfigs swaps the configuration list and announces the change.
func (s *Simulator) ChangeConfigs(configs []tvinput.StreamConfig, cable tvinput.CableConnectionStatus) {
	s.mu.Lock()
	s.configs = configs
	s.info.CableConnectionStatus = cable
	info := s.info
	s.mu.Unlock()

	s.emit(tvinput.Event{Type: tvinput.EventStreamConfigurationsChanged, DeviceInfo: info})
}

func (s *Simulator) GetStreamConfigurations(deviceID int) ([]tvinput.StreamConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deviceID != s.info.DeviceID {
		return nil, errors.Errorf("no such device: %d", deviceID)
	}
	return append([]tvinput.StreamConfig(nil), s.configs...), nil
}

func (s *Simulator) OpenStream(deviceID, streamID int) (tvinput.SourceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deviceID != s.info.DeviceID {
		return nil, errors.Errorf("no such device: %d", deviceID)
	}
	if _, ok := s.open[streamID]; ok {
		return nil, errors.Errorf("stream %d already open", streamID)
	}
	handle := &sourceHandle{streamID: streamID}
	s.open[streamID] = handle
	log.Debug("opened stream %d on device %d", streamID, deviceID)
	return handle, nil
}

func (s *Simulator) CloseStream(deviceID, streamID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deviceID != s.info.DeviceID {
		return errors.Errorf("no such device: %d", deviceID)
	}
	if _, ok := s.open[streamID]; !ok {
		return errors.Errorf("stream %d not open", streamID)
	}
	delete(s.open, streamID)
	log.Debug("closed stream %d on device %d", streamID, deviceID)
	return nil
}

func (s *Simulator) RequestCapture(deviceID, streamID int, buf *tvinput.SharedBuffer, seq uint32) error {
	s.mu.Lock()
	if deviceID != s.info.DeviceID {
		s.mu.Unlock()
		return errors.Errorf("no such device: %d", deviceID)
	}
	s.pending[seq] = true
	delay := s.captureDelay
	s.mu.Unlock()

	// The buffer reference stays valid until the completion is delivered:
	// the producer holds it for the whole capturing state.
	go func() {
		time.Sleep(delay)

		s.mu.Lock()
		if !s.pending[seq] {
			s.mu.Unlock()
			return
		}
		delete(s.pending, seq)
		canceled := s.canceled[seq]
		delete(s.canceled, seq)
		info := s.info
		s.mu.Unlock()

		if !canceled {
			fill(buf.Bytes(), seq)
		}
		s.emit(tvinput.Event{
			Type:       tvinput.EventCaptureFinished,
			DeviceInfo: info,
			StreamID:   streamID,
			Seq:        seq,
			Succeeded:  !canceled,
		})
	}()
	return nil
}

func (s *Simulator) CancelCapture(deviceID, streamID int, seq uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deviceID != s.info.DeviceID {
		return errors.Errorf("no such device: %d", deviceID)
	}
	if !s.pending[seq] {
		log.Debug("cancel for seq %d with no capture in flight", seq)
		return nil
	}
	s.canceled[seq] = true
	return nil
}

func (s *Simulator) SetEventSink(sink tvinput.EventSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *Simulator) emit(ev tvinput.Event) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		log.Debug("dropping event type %d: no sink registered", ev.Type)
		return
	}
	sink.Notify(ev)
}

// fill writes a deterministic test pattern derived from the capture
// sequence.
func fill(data []byte, seq uint32) {
	for i := range data {
		data[i] = byte(seq) + byte(i)
	}
}

// sourceHandle stands in for a device-owned sideband channel.
type sourceHandle struct {
	streamID int
	released int32
}

func (h *sourceHandle) Release() {
	atomic.AddInt32(&h.released, 1)
}
