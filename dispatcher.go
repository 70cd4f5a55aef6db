package tvinput

import (
	"sync"
)

// A dispatcher converts device callbacks, which arrive on arbitrary
// goroutines, into an ordered queue drained by one control goroutine.
// Notify copies the event and returns immediately, so callback contexts
// never block on delivery.
type dispatcher struct {
	mu    sync.Mutex
	queue []Event

	wake chan struct{} // single-slot doorbell for the control goroutine
	quit chan struct{} // closed by stop()
	done chan struct{} // closed when the control goroutine exits

	handle func(Event)
}

func newDispatcher(handle func(Event)) *dispatcher {
	d := &dispatcher{
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		handle: handle,
	}
	go d.loop()
	return d
}

// Notify implements EventSink.
func (d *dispatcher) Notify(ev Event) {
	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			return
		case <-d.wake:
		}

		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			ev := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()

			d.handle(ev)
		}
	}
}

// stop terminates the control goroutine and waits for it. Events still
// queued are dropped.
func (d *dispatcher) stop() {
	close(d.quit)
	<-d.done
}
