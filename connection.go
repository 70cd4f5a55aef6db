package tvinput

// A connection binds a surface to one (device, stream) pair. After first-time
// stream setup it holds a source handle (sideband streams) or a buffer
// producer (per-frame streams), never both.
//
// Fields are guarded by the HAL registry lock.
type connection struct {
	surface    Surface
	streamType StreamType

	// Only valid when streamType == StreamIndependentVideoSource.
	sourceHandle SourceHandle

	// Only valid when streamType == StreamBufferProducer.
	producer *bufferProducer

	// One-shot marker for the first-frame notification. Sequence numbers
	// restart at zero per producer, so the notification is keyed on this
	// rather than on seq equality.
	firstFrameReported bool
}
