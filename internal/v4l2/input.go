// +build linux

package v4l2

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lanikai/tvinput"
	"github.com/lanikai/tvinput/internal/logging"
)

var log = logging.DefaultLogger.WithTag("v4l2")

// Input adapts one capture node to the tvinput.Device capability. The node
// is exposed as a single device with stream 0; captures are serviced by
// reading frames from the driver into the supplied buffer.
type Input struct {
	path string

	// Serializes frame reads. The driver queue holds a single buffer, so
	// only one capture can be in flight against the node at a time.
	captureMu sync.Mutex

	mu        sync.Mutex
	dev       *device
	info      tvinput.DeviceInfo
	config    tvinput.StreamConfig
	sink      tvinput.EventSink
	announced bool
	streaming bool
	pending   map[uint32]bool // in-flight capture sequences
	canceled  map[uint32]bool
}

// Open brings up the capture node at path, usually "/dev/video0".
func Open(path string, config Config) (tvinput.Device, error) {
	dev, err := openDevice(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	if config.Width <= 0 {
		config.Width = 1280
	}
	if config.Height <= 0 {
		config.Height = 720
	}
	if config.Format == 0 {
		config.Format = V4L2_PIX_FMT_YUYV
	}
	if err := dev.setPixelFormat(uint32(config.Width), uint32(config.Height), config.Format); err != nil {
		dev.close()
		return nil, errors.Wrapf(err, "set pixel format on %s", path)
	}
	if err := dev.setFlip(config.HFlip, config.VFlip); err != nil {
		// Many drivers do not expose the flip controls.
		log.Debug("flip controls unavailable on %s: %v", path, err)
	}

	if card, err := dev.name(); err == nil {
		log.Info("opened %s (%s)", path, card)
	} else {
		log.Info("opened %s", path)
	}

	return &Input{
		path: path,
		dev:  dev,
		info: tvinput.DeviceInfo{
			DeviceID:              config.DeviceID,
			Type:                  config.Type,
			CableConnectionStatus: tvinput.CableStatusConnected,
		},
		config: tvinput.StreamConfig{
			StreamID:  0,
			Type:      tvinput.StreamBufferProducer,
			MaxWidth:  config.Width,
			MaxHeight: config.Height,
			Width:     config.Width,
			Height:    config.Height,
			Format:    int(config.Format),
		},
		pending:  make(map[uint32]bool),
		canceled: make(map[uint32]bool),
	}, nil
}

// Close withdraws the device and releases the capture node.
func (in *Input) Close() error {
	in.mu.Lock()
	dev := in.dev
	in.dev = nil
	in.streaming = false
	info := in.info
	sink := in.sink
	in.mu.Unlock()

	if dev == nil {
		return nil
	}

	if sink != nil {
		sink.Notify(tvinput.Event{Type: tvinput.EventDeviceUnavailable, DeviceInfo: info})
	}
	return dev.close()
}

func (in *Input) GetStreamConfigurations(deviceID int) ([]tvinput.StreamConfig, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if deviceID != in.info.DeviceID {
		return nil, errors.Errorf("no such device: %d", deviceID)
	}
	return []tvinput.StreamConfig{in.config}, nil
}

func (in *Input) OpenStream(deviceID, streamID int) (tvinput.SourceHandle, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.checkStreamLocked(deviceID, streamID); err != nil {
		return nil, err
	}
	if in.streaming {
		return nil, errors.Errorf("stream %d already open", streamID)
	}

	if err := in.dev.start(); err != nil {
		return nil, errors.Wrapf(err, "start capture on %s", in.path)
	}
	in.streaming = true
	log.Debug("streaming on from %s", in.path)
	return &streamHandle{}, nil
}

func (in *Input) CloseStream(deviceID, streamID int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.checkStreamLocked(deviceID, streamID); err != nil {
		return err
	}
	if !in.streaming {
		return errors.Errorf("stream %d not open", streamID)
	}

	if err := in.dev.stop(); err != nil {
		return errors.Wrapf(err, "stop capture on %s", in.path)
	}
	in.streaming = false
	log.Debug("streaming off from %s", in.path)
	return nil
}

func (in *Input) RequestCapture(deviceID, streamID int, buf *tvinput.SharedBuffer, seq uint32) error {
	in.mu.Lock()
	if err := in.checkStreamLocked(deviceID, streamID); err != nil {
		in.mu.Unlock()
		return err
	}
	if !in.streaming {
		in.mu.Unlock()
		return errors.Errorf("stream %d not open", streamID)
	}
	dev := in.dev
	in.pending[seq] = true
	in.mu.Unlock()

	buf.Hold()
	go func() {
		defer buf.Release()

		in.captureMu.Lock()
		n, err := dev.readFrame(buf.Bytes())
		in.captureMu.Unlock()

		in.mu.Lock()
		delete(in.pending, seq)
		canceled := in.canceled[seq]
		delete(in.canceled, seq)
		info := in.info
		sink := in.sink
		in.mu.Unlock()

		if err != nil {
			log.Warn("capture %d on %s failed: %v", seq, in.path, err)
		} else if n > len(buf.Bytes()) {
			log.Warn("capture %d truncated: frame is %d bytes, buffer holds %d", seq, n, len(buf.Bytes()))
		}

		if sink == nil {
			return
		}
		sink.Notify(tvinput.Event{
			Type:       tvinput.EventCaptureFinished,
			DeviceInfo: info,
			StreamID:   streamID,
			Seq:        seq,
			Succeeded:  err == nil && !canceled,
		})
	}()
	return nil
}

func (in *Input) CancelCapture(deviceID, streamID int, seq uint32) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.checkStreamLocked(deviceID, streamID); err != nil {
		return err
	}
	if !in.pending[seq] {
		log.Debug("cancel for seq %d with no capture in flight", seq)
		return nil
	}
	// A blocked frame read cannot be interrupted. Let it finish and report
	// the completion as failed instead.
	in.canceled[seq] = true
	return nil
}

func (in *Input) SetEventSink(sink tvinput.EventSink) {
	in.mu.Lock()
	in.sink = sink
	announce := sink != nil && !in.announced && in.dev != nil
	if announce {
		in.announced = true
	}
	info := in.info
	in.mu.Unlock()

	if announce {
		sink.Notify(tvinput.Event{Type: tvinput.EventDeviceAvailable, DeviceInfo: info})
	}
}

func (in *Input) checkStreamLocked(deviceID, streamID int) error {
	if in.dev == nil {
		return errors.Errorf("device %d is closed", deviceID)
	}
	if deviceID != in.info.DeviceID {
		return errors.Errorf("no such device: %d", deviceID)
	}
	if streamID != in.config.StreamID {
		return errors.Errorf("no such stream: %d", streamID)
	}
	return nil
}

// streamHandle is the sideband reference handed back from OpenStream. The
// capture node has no separate sideband channel, so releasing it is a
// bookkeeping no-op.
type streamHandle struct {
	released int32
}

func (h *streamHandle) Release() {
	atomic.AddInt32(&h.released, 1)
}
