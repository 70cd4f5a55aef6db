package tvinput

// DeviceType classifies a TV input device.
type DeviceType int

const (
	DeviceOther DeviceType = iota
	DeviceTuner
	DeviceHDMI
)

// CableConnectionStatus reports whether a physical cable is attached to an
// input port.
type CableConnectionStatus int

const (
	CableStatusUnknown CableConnectionStatus = iota
	CableStatusConnected
	CableStatusDisconnected
)

// AudioType describes how audio for an input is routed.
type AudioType int

const (
	AudioNone AudioType = iota
	AudioHDMI
	AudioLine
)

// DeviceInfo describes a TV input device as reported by the device service.
type DeviceInfo struct {
	DeviceID int
	Type     DeviceType

	// Port the input is attached to. Meaningful only for HDMI inputs.
	PortID int

	CableConnectionStatus CableConnectionStatus

	AudioType AudioType

	// Routing address for the audio device. Empty unless AudioType is
	// something other than AudioNone.
	AudioAddress string
}

// StreamType distinguishes how frames travel from the device to the surface.
type StreamType int

const (
	// The device pushes frames through an out-of-band channel attached
	// directly to the surface. No per-frame buffer exchange.
	StreamIndependentVideoSource StreamType = iota + 1

	// Frames are cycled one buffer at a time through a buffer producer.
	StreamBufferProducer
)

// StreamConfig describes one stream a device can produce.
type StreamConfig struct {
	StreamID  int
	Type      StreamType
	MaxWidth  int
	MaxHeight int

	// Opaque staleness tag. Stamped onto configs returned by
	// HAL.GetStreamConfigs and otherwise ignored.
	Generation int

	// Buffer geometry for StreamBufferProducer streams.
	Usage  uint64
	Width  int
	Height int
	Format int
}

// SourceHandle is an opaque reference to a device-owned sideband channel.
// Release must be safe to call from any goroutine, exactly once.
type SourceHandle interface {
	Release()
}

// EventType identifies an asynchronous device notification.
type EventType int

const (
	EventDeviceAvailable EventType = iota + 1
	EventDeviceUnavailable
	EventStreamConfigurationsChanged
	EventCaptureFinished
)

// Event is a device notification. DeviceInfo is populated for every event
// kind; StreamID, Seq and Succeeded are meaningful only for
// EventCaptureFinished.
type Event struct {
	Type       EventType
	DeviceInfo DeviceInfo
	StreamID   int
	Seq        uint32
	Succeeded  bool
}

// EventSink receives device events. Implementations must not block: events
// may be delivered from arbitrary goroutines, including ones holding device
// driver locks.
type EventSink interface {
	Notify(ev Event)
}

// Device is the capture device capability. Implementations wrap whatever
// transport actually reaches the hardware; the HAL treats the device as
// opaque.
//
// All methods may be called from multiple goroutines. Calls other than
// RequestCapture are expected to complete quickly.
type Device interface {
	// GetStreamConfigurations lists the streams the device can produce.
	GetStreamConfigurations(deviceID int) ([]StreamConfig, error)

	// OpenStream opens a stream and returns its sideband source handle.
	OpenStream(deviceID, streamID int) (SourceHandle, error)

	// CloseStream closes a previously opened stream.
	CloseStream(deviceID, streamID int) error

	// RequestCapture asks the device to fill buf asynchronously. Completion
	// arrives later as an EventCaptureFinished carrying the same seq.
	RequestCapture(deviceID, streamID int, buf *SharedBuffer, seq uint32) error

	// CancelCapture asks the device to abandon an in-flight capture. The
	// device should still deliver a (failed) completion for seq, but callers
	// must tolerate the cancellation never landing.
	CancelCapture(deviceID, streamID int, seq uint32) error

	// SetEventSink registers the single sink for asynchronous events.
	// Passing nil unregisters it.
	SetEventSink(sink EventSink)
}
