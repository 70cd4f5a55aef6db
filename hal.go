//////////////////////////////////////////////////////////////////////////////
//
// TV input HAL: connection registry and stream lifecycle
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package tvinput

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/tvinput/internal/logging"
)

var log = logging.DefaultLogger.WithTag("tvinput")

// HAL multiplexes many concurrent (device, stream) pairs over the buffer
// pipeline. It owns the connection tables, mediates the stream
// add/update/remove protocol, and serializes asynchronous device events onto
// a single control goroutine.
//
// Lock discipline: mu guards the connection tables and connection fields.
// Each buffer producer has its own finer-grained lock; producer internals
// are never touched while mu is held, so a slow surface operation on one
// stream cannot stall unrelated devices.
type HAL struct {
	mu sync.Mutex

	// deviceId -> streamId -> connection. A device's table exists between
	// its available and unavailable notifications.
	connections map[int]map[int]*connection

	device     Device
	notifier   Notifier
	dispatcher *dispatcher
}

// New creates a HAL bound to the given capture device and registers for its
// events.
func New(config Config) (*HAL, error) {
	if config.Device == nil {
		return nil, errors.Wrap(ErrBadValue, "no capture device")
	}

	h := &HAL{
		connections: make(map[int]map[int]*connection),
		device:      config.Device,
		notifier:    config.Notifier,
	}
	if h.notifier == nil {
		h.notifier = nopNotifier{}
	}
	h.dispatcher = newDispatcher(h.handleEvent)
	h.device.SetEventSink(h.dispatcher)
	return h, nil
}

// Close unregisters from the device and stops the control goroutine. Streams
// still open are left to the device; callers wanting a clean teardown should
// remove them first.
func (h *HAL) Close() error {
	h.device.SetEventSink(nil)
	h.dispatcher.stop()
	return nil
}

// AddOrUpdateStream binds surface as the sink for (deviceID, streamID),
// performing first-time stream setup on the device if this connection has
// never carried one. Rebinding the same surface is a no-op.
func (h *HAL) AddOrUpdateStream(deviceID, streamID int, surface Surface) error {
	if surface == nil || !surface.IsValid() {
		return ErrBadValue
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[deviceID]
	if !ok {
		log.Error("no connection table for device %d", deviceID)
		return ErrNotFound
	}
	conn, ok := conns[streamID]
	if !ok {
		conn = &connection{}
		conns[streamID] = conn
	}
	if conn.surface == surface {
		// Nothing to do.
		return nil
	}

	// Detach the previous surface first.
	if conn.surface != nil {
		if conn.streamType == StreamIndependentVideoSource && conn.surface.IsValid() {
			conn.surface.SetSidebandStream(nil)
		}
		conn.surface = nil
	}

	if conn.sourceHandle == nil && conn.producer == nil {
		// First use of this stream: validate it against the device's
		// configuration list and open it.
		configs, err := h.device.GetStreamConfigurations(deviceID)
		if err != nil {
			log.Error("couldn't get stream configurations for device %d: %v", deviceID, err)
			return ErrUnknown
		}
		var config *StreamConfig
		for i := range configs {
			if configs[i].StreamID == streamID {
				config = &configs[i]
				break
			}
		}
		if config == nil {
			log.Error("no configuration with stream id %d on device %d", streamID, deviceID)
			return ErrNotFound
		}
		log.Debug("stream %d on device %d: max %dx%d", streamID, deviceID,
			config.MaxWidth, config.MaxHeight)

		conn.streamType = StreamIndependentVideoSource

		handle, err := h.device.OpenStream(deviceID, streamID)
		if err != nil {
			log.Error("couldn't open stream %d on device %d: %v", streamID, deviceID, err)
			return ErrUnknown
		}
		if handle == nil {
			log.Error("device %d returned no source handle for stream %d", deviceID, streamID)
			return ErrUnknown
		}
		conn.sourceHandle = handle
	}

	conn.surface = surface
	if conn.streamType == StreamIndependentVideoSource {
		conn.surface.SetSidebandStream(conn.sourceHandle)
	}
	return nil
}

// RemoveStream detaches the surface bound to (deviceID, streamID), shuts
// down any buffer producer, and closes the stream on the device. The
// connection record itself persists until the owning device goes away.
func (h *HAL) RemoveStream(deviceID, streamID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeStreamLocked(deviceID, streamID)
}

// removeStreamLocked implements the remove protocol. mu must be held; it is
// dropped temporarily around the producer shutdown, which can block for a
// bounded interval.
func (h *HAL) removeStreamLocked(deviceID, streamID int) error {
	conns, ok := h.connections[deviceID]
	if !ok {
		return ErrNotFound
	}
	conn, ok := conns[streamID]
	if !ok {
		return ErrNotFound
	}
	if conn.surface == nil {
		// Nothing to do.
		return nil
	}
	if conn.surface.IsValid() {
		conn.surface.SetSidebandStream(nil)
	}
	conn.surface = nil

	if conn.producer != nil {
		producer := conn.producer
		conn.producer = nil
		h.mu.Unlock()
		producer.Shutdown()
		h.mu.Lock()
	}

	if err := h.device.CloseStream(deviceID, streamID); err != nil {
		log.Error("couldn't close stream %d on device %d: %v", streamID, deviceID, err)
		return ErrUnknown
	}
	if conn.sourceHandle != nil {
		conn.sourceHandle.Release()
		conn.sourceHandle = nil
	}
	return nil
}

// GetStreamConfigs queries the device's current stream configuration list.
// The generation tag is stamped onto every returned config and otherwise
// uninterpreted; callers use it to detect stale snapshots.
func (h *HAL) GetStreamConfigs(deviceID, generation int) ([]StreamConfig, error) {
	configs, err := h.device.GetStreamConfigurations(deviceID)
	if err != nil {
		log.Error("couldn't get stream configurations for device %d: %v", deviceID, err)
		return nil, ErrUnknown
	}
	out := make([]StreamConfig, len(configs))
	for i, c := range configs {
		c.Type = StreamIndependentVideoSource
		c.Generation = generation
		out[i] = c
	}
	return out, nil
}

// handleEvent runs on the dispatcher goroutine.
func (h *HAL) handleEvent(ev Event) {
	switch ev.Type {
	case EventDeviceAvailable:
		h.onDeviceAvailable(ev.DeviceInfo)
	case EventDeviceUnavailable:
		h.onDeviceUnavailable(ev.DeviceInfo.DeviceID)
	case EventStreamConfigurationsChanged:
		h.onStreamConfigurationsChanged(ev.DeviceInfo.DeviceID, ev.DeviceInfo.CableConnectionStatus)
	case EventCaptureFinished:
		h.onCaptured(ev.DeviceInfo.DeviceID, ev.StreamID, ev.Seq, ev.Succeeded)
	default:
		log.Error("unrecognizable event type %d", ev.Type)
	}
}

func (h *HAL) onDeviceAvailable(info DeviceInfo) {
	h.mu.Lock()
	if _, ok := h.connections[info.DeviceID]; !ok {
		h.connections[info.DeviceID] = make(map[int]*connection)
	}
	h.mu.Unlock()

	h.notifier.DeviceAvailable(info)
}

func (h *HAL) onDeviceUnavailable(deviceID int) {
	h.mu.Lock()
	h.removeAllStreamsLocked(deviceID)
	delete(h.connections, deviceID)
	h.mu.Unlock()

	h.notifier.DeviceUnavailable(deviceID)
}

func (h *HAL) onStreamConfigurationsChanged(deviceID int, cableStatus CableConnectionStatus) {
	h.mu.Lock()
	// Force renegotiation of every stream, but keep the device table.
	h.removeAllStreamsLocked(deviceID)
	h.mu.Unlock()

	h.notifier.StreamConfigsChanged(deviceID, cableStatus)
}

// removeAllStreamsLocked unwinds every connection of a device, best effort:
// individual removal failures are logged and do not abort the sweep.
func (h *HAL) removeAllStreamsLocked(deviceID int) {
	conns, ok := h.connections[deviceID]
	if !ok {
		return
	}
	ids := make([]int, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if err := h.removeStreamLocked(deviceID, id); err != nil {
			log.Warn("couldn't remove stream %d on device %d: %v", id, deviceID, err)
		}
		delete(conns, id)
	}
}

func (h *HAL) onCaptured(deviceID, streamID int, seq uint32, succeeded bool) {
	h.mu.Lock()
	conns, ok := h.connections[deviceID]
	if !ok {
		h.mu.Unlock()
		log.Warn("capture completion for unknown device %d", deviceID)
		return
	}
	conn, ok := conns[streamID]
	if !ok || conn.producer == nil {
		h.mu.Unlock()
		// Races with stream teardown; not fatal.
		log.Warn("no buffer producer for device %d stream %d", deviceID, streamID)
		return
	}
	producer := conn.producer
	firstFrame := false
	if seq == 0 && !conn.firstFrameReported {
		conn.firstFrameReported = true
		firstFrame = true
	}
	h.mu.Unlock()

	producer.OnCaptured(seq, succeeded)
	if firstFrame {
		h.notifier.FirstFrameCaptured(deviceID, streamID)
	}
}

// nopNotifier discards notifications.
type nopNotifier struct{}

func (nopNotifier) DeviceAvailable(DeviceInfo)                      {}
func (nopNotifier) DeviceUnavailable(int)                           {}
func (nopNotifier) StreamConfigsChanged(int, CableConnectionStatus) {}
func (nopNotifier) FirstFrameCaptured(int, int)                     {}
