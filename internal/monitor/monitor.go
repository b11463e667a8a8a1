// Package monitor is the narrow monitoring collaborator this daemon calls
// into: per-stream connection telemetry, a bounded in-memory log buffer,
// and active-alert broadcasts, all pushed out over the WebSocket hub. The
// HTTP dashboard/auth/CORS layer that would consume these events lives
// outside this repo's scope; this package only maintains the state and
// pushes the events.
package monitor

import (
	"sync"
	"time"

	"github.com/wagsendc/eas-listener/internal/state"
	"github.com/wagsendc/eas-listener/internal/telemetry"
	"github.com/wagsendc/eas-listener/internal/ws"
)

// LogEntry is one buffered log line, pushed to clients as it happens.
type LogEntry struct {
	ID        uint64            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// StreamStatus is the point-in-time connection health of one stream.
type StreamStatus struct {
	StreamURL          string     `json:"stream_url"`
	IsConnected        bool       `json:"is_connected"`
	IsReceivingAudio   bool       `json:"is_receiving_audio"`
	ConnectionAttempts uint64     `json:"connection_attempts"`
	AlertsReceived     uint64     `json:"alerts_received"`
	ConnectedSince     *time.Time `json:"connected_since,omitempty"`
	LastActivity       *time.Time `json:"last_activity,omitempty"`
	LastDisconnect     *time.Time `json:"last_disconnect,omitempty"`
	LastAlertReceived  *time.Time `json:"last_alert_received,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
	UptimeSeconds      *int64     `json:"uptime_seconds,omitempty"`
}

type streamTelemetry struct {
	url             string
	isConnected     bool
	connectedSince  *time.Time
	lastActivity    *time.Time
	lastDisconnect  *time.Time
	lastError       string
	attempts        uint64
	alertsReceived  uint64
	lastAlert       *time.Time
}

// Hub tracks stream telemetry and a bounded log buffer, and fans both out
// plus active-alert changes to WebSocket subscribers through ws.Hub.
type Hub struct {
	mu                sync.Mutex
	streams           map[string]*streamTelemetry
	logs              []LogEntry
	maxLogs           int
	activityWindow    time.Duration
	nextLogID         uint64

	ws *ws.Hub
}

// New builds a Hub bound to an existing WebSocket hub for delivery.
func New(wsHub *ws.Hub, maxLogs int, activityWindow time.Duration) *Hub {
	return &Hub{
		streams:        make(map[string]*streamTelemetry),
		maxLogs:        maxLogs,
		activityWindow: activityWindow,
		ws:             wsHub,
	}
}

type event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (h *Hub) NoteConnecting(stream string) {
	h.updateStream(stream, func(t *streamTelemetry) {
		t.attempts++
		t.isConnected = false
		t.connectedSince = nil
		t.lastActivity = nil
		t.lastError = ""
	})
}

func (h *Hub) NoteConnected(stream string) {
	now := time.Now()
	h.updateStream(stream, func(t *streamTelemetry) {
		t.isConnected = true
		t.connectedSince = &now
		t.lastActivity = &now
		t.lastDisconnect = nil
		t.lastError = ""
	})
}

func (h *Hub) NoteActivity(stream string) {
	now := time.Now()
	h.updateStream(stream, func(t *streamTelemetry) {
		t.lastActivity = &now
	})
}

func (h *Hub) NoteDisconnected(stream string) {
	now := time.Now()
	h.updateStream(stream, func(t *streamTelemetry) {
		t.isConnected = false
		t.connectedSince = nil
		t.lastDisconnect = &now
	})
}

func (h *Hub) NoteError(stream, message string) {
	now := time.Now()
	h.updateStream(stream, func(t *streamTelemetry) {
		t.isConnected = false
		t.connectedSince = nil
		t.lastDisconnect = &now
		t.lastError = message
	})
}

func (h *Hub) updateStream(stream string, fn func(*streamTelemetry)) {
	h.mu.Lock()
	t, ok := h.streams[stream]
	if !ok {
		t = &streamTelemetry{url: stream}
		h.streams[stream] = t
	}
	fn(t)
	snapshot := h.snapshotLocked(t)
	h.mu.Unlock()

	if h.ws != nil {
		h.ws.BroadcastJSON(event{Type: "stream", Payload: snapshot})
	}
}

func (h *Hub) snapshotLocked(t *streamTelemetry) StreamStatus {
	now := time.Now()
	receiving := t.lastActivity != nil && now.Sub(*t.lastActivity) <= h.activityWindow
	var uptime *int64
	if t.isConnected && t.connectedSince != nil {
		v := int64(now.Sub(*t.connectedSince).Seconds())
		uptime = &v
	}
	return StreamStatus{
		StreamURL:          t.url,
		IsConnected:        t.isConnected,
		IsReceivingAudio:   receiving,
		ConnectionAttempts: t.attempts,
		AlertsReceived:     t.alertsReceived,
		ConnectedSince:     t.connectedSince,
		LastActivity:       t.lastActivity,
		LastDisconnect:     t.lastDisconnect,
		LastAlertReceived:  t.lastAlert,
		LastError:          t.lastError,
		UptimeSeconds:      uptime,
	}
}

// StreamSnapshots returns the current telemetry for every known stream.
func (h *Hub) StreamSnapshots() []StreamStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]StreamStatus, 0, len(h.streams))
	for _, t := range h.streams {
		out = append(out, h.snapshotLocked(t))
	}
	return out
}

// BroadcastAlerts pushes the current active-alert snapshot to subscribers,
// and bumps the source stream's alert counter if one is given.
func (h *Hub) BroadcastAlerts(alerts []state.ActiveAlert, sourceStream string) {
	if sourceStream != "" {
		h.updateStream(sourceStream, func(t *streamTelemetry) {
			now := time.Now()
			t.alertsReceived++
			t.lastAlert = &now
		})
	}
	if h.ws != nil {
		h.ws.BroadcastJSON(event{Type: "alerts", Payload: alerts})
	}
}

// BroadcastState pushes a state-transition event for one stream's recording
// lifecycle (idle <-> recording) to WebSocket subscribers.
func (h *Hub) BroadcastState(streamLabel, from, to string) {
	if h.ws == nil {
		return
	}
	h.ws.BroadcastJSON(telemetry.StateTransition{
		Event: telemetry.Event{Type: telemetry.EventState, TS: telemetry.NowTS()},
		From:  streamLabel + ":" + from,
		To:    streamLabel + ":" + to,
	})
}

// RecordLog appends a log line to the bounded buffer and broadcasts it.
func (h *Hub) RecordLog(level, message string, fields map[string]string) {
	h.mu.Lock()
	h.nextLogID++
	entry := LogEntry{ID: h.nextLogID, Timestamp: time.Now(), Level: level, Message: message, Fields: fields}
	h.logs = append(h.logs, entry)
	if len(h.logs) > h.maxLogs {
		h.logs = h.logs[len(h.logs)-h.maxLogs:]
	}
	h.mu.Unlock()

	if h.ws != nil {
		h.ws.BroadcastJSON(telemetry.LogLine{
			Event:   telemetry.Event{Type: telemetry.EventLog, TS: telemetry.NowTS()},
			Level:   level,
			Message: message,
		})
	}
}

// RecentLogs returns up to count of the most recent log entries, newest first.
func (h *Hub) RecentLogs(count int) []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.logs)
	if count <= 0 || count > n {
		count = n
	}
	out := make([]LogEntry, count)
	for i := 0; i < count; i++ {
		out[i] = h.logs[n-1-i]
	}
	return out
}
