//////////////////////////////////////////////////////////////////////////////
//
// Per-stream buffer producer loop
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package tvinput

import (
	"sync"
	"time"
)

// Buffer pipeline states. The in-flight buffer reference is non-nil exactly
// when the state is capturing or captured.
type bufferState int

const (
	stateReleased bufferState = iota
	stateCapturing
	stateCaptured
)

func (s bufferState) String() string {
	switch s {
	case stateReleased:
		return "RELEASED"
	case stateCapturing:
		return "CAPTURING"
	case stateCaptured:
		return "CAPTURED"
	}
	return "INVALID"
}

// All internal waits are bounded by this interval so that surface rebinding
// and shutdown are observed promptly even when nothing else happens.
const defaultWaitInterval = time.Second

// A bufferProducer keeps exactly one buffer in flight between a capture
// device and a display surface: dequeue from the surface, hand to the device
// to fill, queue back to the surface once filled. The target surface can be
// swapped at any time without disturbing device state.
//
// Lock discipline: mu guards every field below it. The loop goroutine holds
// mu for a full iteration, including the (expected) block in DequeueBuffer;
// waitLocked drops it while parked so BindSurface, OnCaptured and Shutdown
// can preempt a wait.
type bufferProducer struct {
	device   Device
	deviceID int
	stream   StreamConfig

	waitInterval time.Duration

	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every state broadcast

	surface  Surface
	buf      *SharedBuffer
	state    bufferState
	seq      uint32 // sequence of the most recent capture request
	nextSeq  uint32 // sequence to tag the next capture request with
	shutdown bool

	done chan struct{} // closed when the loop goroutine exits
}

func newBufferProducer(device Device, deviceID int, stream StreamConfig) *bufferProducer {
	return &bufferProducer{
		device:       device,
		deviceID:     deviceID,
		stream:       stream,
		waitInterval: defaultWaitInterval,
		changed:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// start spawns the capture loop goroutine.
func (p *bufferProducer) start() {
	go p.loop()
}

// BindSurface installs a new target surface, or detaches the current one
// when surface is nil. If a capture is in flight, cancellation is requested
// from the device and the call blocks (bounded) until the completion lands;
// a cancellation that never lands is logged and the rebind proceeds anyway.
func (p *bufferProducer) BindSurface(surface Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindSurfaceLocked(surface)
}

func (p *bufferProducer) bindSurfaceLocked(surface Surface) {
	if surface == p.surface {
		return
	}

	if p.state == stateCapturing {
		if err := p.device.CancelCapture(p.deviceID, p.stream.StreamID, p.seq); err != nil {
			log.Warn("cancel capture failed, device %d stream %d seq %d: %v",
				p.deviceID, p.stream.StreamID, p.seq, err)
		}
	}
	for p.state == stateCapturing {
		if err := p.waitLocked(); err != nil {
			log.Error("error while waiting for buffer state to change: %v", err)
			break
		}
	}
	p.releaseBufferLocked()
	p.state = stateReleased

	p.surface = surface
	if surface != nil {
		p.configureSurface(surface)
	}
	p.broadcastLocked()
}

// configureSurface applies the stream's buffer geometry to a freshly bound
// surface. Failures are logged; the surface stays bound and the loop will
// surface the problem on the first dequeue.
func (p *bufferProducer) configureSurface(surface Surface) {
	if err := surface.SetUsage(p.stream.Usage); err != nil {
		log.Error("error setting surface usage: %v", err)
		return
	}
	if err := surface.SetBufferDimensions(p.stream.Width, p.stream.Height); err != nil {
		log.Error("error setting surface buffer dimensions: %v", err)
		return
	}
	if err := surface.SetBufferFormat(p.stream.Format); err != nil {
		log.Error("error setting surface buffer format: %v", err)
	}
}

// OnCaptured handles a capture completion from the device. Completions for a
// stale sequence, or arriving outside the capturing state, race with surface
// rebinding; they are logged and otherwise ignored.
func (p *bufferProducer) OnCaptured(seq uint32, succeeded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.seq {
		log.Warn("incorrect capture sequence: expected %d actual %d", p.seq, seq)
		return
	}
	if p.state != stateCapturing {
		log.Warn("capture completion ignored in state %v", p.state)
		return
	}
	if succeeded {
		p.state = stateCaptured
	} else {
		p.releaseBufferLocked()
		p.state = stateReleased
	}
	p.broadcastLocked()
}

// Shutdown detaches the surface, stops the loop goroutine and waits for it
// to terminate.
func (p *bufferProducer) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.bindSurfaceLocked(nil)
	p.broadcastLocked()
	p.mu.Unlock()

	<-p.done
}

func (p *bufferProducer) loop() {
	defer close(p.done)
	for p.iterate() {
	}
}

// iterate runs one pass of the capture loop. Returning false terminates the
// loop; the surrounding connection is then surface-less until explicitly
// rebound or removed.
func (p *bufferProducer) iterate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return false
	}

	if p.surface == nil {
		// Nothing to do until a surface is bound. Timing out here is
		// expected and not an error.
		p.waitLocked()
		return !p.shutdown
	}

	for p.state == stateCapturing {
		if err := p.waitLocked(); err != nil {
			log.Error("error while waiting for buffer state to change: %v", err)
			return false
		}
	}

	if p.state == stateCaptured && p.surface != nil {
		if err := p.surface.QueueBuffer(p.buf); err != nil {
			log.Error("error queueing buffer to surface: %v", err)
			return false
		}
		p.releaseBufferLocked()
		p.state = stateReleased
	}

	if p.buf == nil && !p.shutdown && p.surface != nil {
		// The expected blocking point: the surface may stall the loop until
		// it has a free buffer.
		buf, err := p.surface.DequeueBuffer()
		if err != nil {
			log.Error("error dequeueing buffer from surface: %v", err)
			return false
		}
		p.buf = buf
		p.state = stateCapturing
		p.seq = p.nextSeq
		p.nextSeq++
		if err := p.device.RequestCapture(p.deviceID, p.stream.StreamID, p.buf, p.seq); err != nil {
			// No completion will arrive; the bounded wait above will abort
			// the loop if nothing intervenes.
			log.Error("capture request failed, device %d stream %d seq %d: %v",
				p.deviceID, p.stream.StreamID, p.seq, err)
		}
	}

	return true
}

// waitLocked parks until the next broadcast or until the wait interval
// elapses, whichever comes first. mu is released while parked. Returns
// ErrTimeout when the interval passes with no broadcast.
func (p *bufferProducer) waitLocked() error {
	ch := p.changed
	p.mu.Unlock()

	var err error
	t := time.NewTimer(p.waitInterval)
	select {
	case <-ch:
	case <-t.C:
		err = ErrTimeout
	}
	t.Stop()

	p.mu.Lock()
	return err
}

// broadcastLocked wakes every goroutine parked in waitLocked.
func (p *bufferProducer) broadcastLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *bufferProducer) releaseBufferLocked() {
	if p.buf != nil {
		p.buf.Release()
		p.buf = nil
	}
}
