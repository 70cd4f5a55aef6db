package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lanikai/tvinput"
)

// monitorEvent is the wire form of a pipeline notification.
type monitorEvent struct {
	Kind     string              `json:"kind"`
	Time     time.Time           `json:"time"`
	DeviceID int                 `json:"deviceId"`
	StreamID int                 `json:"streamId,omitempty"`
	Cable    string              `json:"cable,omitempty"`
	Device   *tvinput.DeviceInfo `json:"device,omitempty"`
}

// monitor mirrors pipeline notifications to websocket subscribers on
// /events. Recent events are kept in a bounded backlog and replayed to new
// subscribers, so a late-attaching client still sees how the device reached
// its current state.
type monitor struct {
	server   *http.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	nextSeq uint64
	size    int
	backlog *lru.Cache // event by publication sequence number
	subs    map[string]chan monitorEvent
}

func newMonitor(addr string, backlog int) *monitor {
	m := &monitor{
		size:    backlog,
		backlog: lru.New(backlog),
		subs:    make(map[string]chan monitorEvent),
	}

	router := http.NewServeMux()
	router.HandleFunc("/events", m.handleEvents)
	m.server = &http.Server{Addr: addr, Handler: router}
	return m
}

func (m *monitor) listen() error {
	log.Info("event monitor on ws://%s/events", m.server.Addr)
	return m.server.ListenAndServe()
}

func (m *monitor) shutdown() error {
	return m.server.Shutdown(context.Background())
}

func (m *monitor) DeviceAvailable(info tvinput.DeviceInfo) {
	m.publish(monitorEvent{Kind: "deviceAvailable", DeviceID: info.DeviceID, Device: &info})
}

func (m *monitor) DeviceUnavailable(deviceID int) {
	m.publish(monitorEvent{Kind: "deviceUnavailable", DeviceID: deviceID})
}

func (m *monitor) StreamConfigsChanged(deviceID int, cable tvinput.CableConnectionStatus) {
	m.publish(monitorEvent{Kind: "streamConfigsChanged", DeviceID: deviceID, Cable: cableString(cable)})
}

func (m *monitor) FirstFrameCaptured(deviceID, streamID int) {
	m.publish(monitorEvent{Kind: "firstFrame", DeviceID: deviceID, StreamID: streamID})
}

func (m *monitor) publish(ev monitorEvent) {
	ev.Time = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.backlog.Add(m.nextSeq, ev)
	m.nextSeq++

	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			log.Warn("subscriber %s is not keeping up, dropping event", id)
		}
	}
}

func (m *monitor) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	id := uuid.New().String()
	ch := make(chan monitorEvent, m.size+16)

	m.mu.Lock()
	// Replay the backlog in publication order. Entries already evicted
	// leave gaps, which is fine for a monitoring feed.
	first := uint64(0)
	if m.nextSeq > uint64(m.size) {
		first = m.nextSeq - uint64(m.size)
	}
	for seq := first; seq < m.nextSeq; seq++ {
		if ev, ok := m.backlog.Get(seq); ok {
			ch <- ev.(monitorEvent)
		}
	}
	m.subs[id] = ch
	m.mu.Unlock()

	log.Debug("subscriber %s connected from %s", id, r.RemoteAddr)
	defer func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
		log.Debug("subscriber %s disconnected", id)
	}()

	// Subscribers never send anything meaningful. The read loop just
	// notices when they go away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-ch:
			if err := ws.WriteJSON(ev); err != nil {
				log.Warn("write to subscriber %s: %v", id, err)
				return
			}
		case <-done:
			return
		}
	}
}

func cableString(cable tvinput.CableConnectionStatus) string {
	switch cable {
	case tvinput.CableStatusConnected:
		return "connected"
	case tvinput.CableStatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
