package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/tvinput"
)

func dialMonitor(t *testing.T, m *monitor) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(m.server.Handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	return ws
}

func TestMonitorDeliversEvents(t *testing.T) {
	m := newMonitor("localhost:0", 8)

	// Published before the subscriber attaches, so it arrives via replay.
	m.DeviceAvailable(tvinput.DeviceInfo{DeviceID: 3, Type: tvinput.DeviceHDMI})

	ws := dialMonitor(t, m)

	var ev monitorEvent
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, "deviceAvailable", ev.Kind)
	assert.Equal(t, 3, ev.DeviceID)
	require.NotNil(t, ev.Device)
	assert.Equal(t, tvinput.DeviceHDMI, ev.Device.Type)

	// The first read proves the subscriber is registered, so a live publish
	// is delivered too.
	m.FirstFrameCaptured(3, 1)
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, "firstFrame", ev.Kind)
	assert.Equal(t, 1, ev.StreamID)
}

func TestMonitorReplaysBacklog(t *testing.T) {
	m := newMonitor("localhost:0", 4)

	// More events than the backlog holds. Only the newest four survive.
	for i := 0; i < 10; i++ {
		m.DeviceUnavailable(i)
	}

	ws := dialMonitor(t, m)

	var ids []int
	for i := 0; i < 4; i++ {
		var ev monitorEvent
		require.NoError(t, ws.ReadJSON(&ev))
		assert.Equal(t, "deviceUnavailable", ev.Kind)
		ids = append(ids, ev.DeviceID)
	}
	assert.Equal(t, []int{6, 7, 8, 9}, ids)
}

func TestMonitorStreamConfigsChanged(t *testing.T) {
	m := newMonitor("localhost:0", 8)
	m.StreamConfigsChanged(2, tvinput.CableStatusDisconnected)

	ws := dialMonitor(t, m)

	var ev monitorEvent
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, "streamConfigsChanged", ev.Kind)
	assert.Equal(t, 2, ev.DeviceID)
	assert.Equal(t, "disconnected", ev.Cable)
}

func TestCableString(t *testing.T) {
	assert.Equal(t, "connected", cableString(tvinput.CableStatusConnected))
	assert.Equal(t, "disconnected", cableString(tvinput.CableStatusDisconnected))
	assert.Equal(t, "unknown", cableString(tvinput.CableStatusUnknown))
}
