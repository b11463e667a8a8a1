// Package recording orchestrates the lifecycle of one recording per
// stream: opening the WAV file, draining audio into it until whichever
// comes first of a fixed timeout or an explicit stop signal, then closing
// the file and handing it to the relay/notification collaborators. At
// most one recording is active per stream at a time.
package recording

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wagsendc/eas-listener/internal/recorder"
	"github.com/wagsendc/eas-listener/internal/relay"
)

// chunkQueueCapacity is the bounded producer/consumer queue depth between
// the detection pipeline's OnChunk hook and the WAV writer goroutine, so a
// slow disk write never backpressures SAME/tone detection on the stream.
const chunkQueueCapacity = 32

// Kind distinguishes a SAME-triggered recording (bounded by timeout or an
// explicit NNNN stop signal, whichever comes first) from a tone-triggered
// one (always runs the fixed window; there is no end marker for the NOAA
// attention tone).
type Kind int

const (
	KindSAME Kind = iota
	KindTone
)

// StartRequest describes a recording to begin.
type StartRequest struct {
	StreamLabel string
	Kind        Kind
	EventCode   string
	HeaderText  string
	TailText    string
	// Timeout bounds how long the recording runs if no Stop arrives first
	// (SAME: 300s / NNNN, whichever is sooner; Tone: fixed 120s, no Stop).
	Timeout time.Duration
	// Relay overrides the manager's default relay target for this one
	// recording, e.g. a relay.NoopTarget{} when a filter rule says the
	// alert shouldn't go downstream even though it's still worth recording.
	Relay relay.Target
	// Notify, if set, is called once after the recording has closed (and
	// before the relay hand-off, if any) — the dispatch step of the alert
	// state machine runs once the recording is finished, not on header
	// detection. Nil means no notification is sent.
	Notify func()
}

type session struct {
	writer *recorder.Writer
	// chunks is the bounded, non-blocking handoff from WriteChunk (called
	// on the detection pipeline's goroutine) to drainChunks (the WAV
	// writer's own goroutine), so a slow disk write can never stall
	// detection. Closed by run() once the recording is stopping; the
	// closer also removes the session from Manager.sessions under the
	// same lock WriteChunk checks, so no send-after-close is possible.
	chunks     chan []float32
	chunksDone chan struct{}
	stop       chan struct{}
	done       chan struct{}
}

// Manager tracks the single in-flight recording per stream.
type Manager struct {
	dir   string
	relay relay.Target
	log   *log.Logger

	// OnStateChange, if set, is called whenever a stream's recording state
	// flips between "idle" and "recording", for the monitoring hub to
	// surface as a state-transition event.
	OnStateChange func(streamLabel, from, to string)

	sessions map[string]*session
	mu       chan struct{} // binary semaphore; see lock/unlock below
}

// NewManager builds a Manager that writes recordings under dir and hands
// finished ones to target.
func NewManager(dir string, target relay.Target, logger *log.Logger) *Manager {
	m := &Manager{
		dir:      dir,
		relay:    target,
		log:      logger,
		sessions: make(map[string]*session),
		mu:       make(chan struct{}, 1),
	}
	m.mu <- struct{}{}
	return m
}

func (m *Manager) notifyState(streamLabel, from, to string) {
	if m.OnStateChange != nil {
		m.OnStateChange(streamLabel, from, to)
	}
}

func (m *Manager) lock()   { <-m.mu }
func (m *Manager) unlock() { m.mu <- struct{}{} }

// IsActive reports whether a recording is already running for the stream.
func (m *Manager) IsActive(streamLabel string) bool {
	m.lock()
	defer m.unlock()
	_, ok := m.sessions[streamLabel]
	return ok
}

// Start begins a recording if none is already active for the stream.
// It returns false if a recording was already in progress.
func (m *Manager) Start(ctx context.Context, req StartRequest) bool {
	m.lock()
	if _, exists := m.sessions[req.StreamLabel]; exists {
		m.unlock()
		return false
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path, err := recorder.NextAvailablePath(m.dir, req.EventCode, timestamp, req.StreamLabel)
	if err != nil {
		m.unlock()
		m.logf("recording: %v", err)
		return false
	}
	writer, err := recorder.Create(path, req.HeaderText)
	if err != nil {
		m.unlock()
		m.logf("recording: %v", err)
		return false
	}

	sess := &session{
		writer:     writer,
		chunks:     make(chan []float32, chunkQueueCapacity),
		chunksDone: make(chan struct{}),
		stop:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	m.sessions[req.StreamLabel] = sess
	m.unlock()

	m.notifyState(req.StreamLabel, "idle", "recording")
	go m.drainChunks(sess)
	go m.run(ctx, req, sess, path)
	return true
}

// drainChunks writes queued audio into the WAV file on its own goroutine,
// decoupled from both the caller of WriteChunk and the stop/timeout wait in
// run. It exits once sess.chunks is closed and fully drained.
func (m *Manager) drainChunks(sess *session) {
	defer close(sess.chunksDone)
	for chunk := range sess.chunks {
		if err := sess.writer.WriteBody(chunk); err != nil {
			m.logf("recording: write: %v", err)
		}
	}
}

// run waits for whichever comes first of the timeout or an explicit Stop,
// then finalizes the file, dispatches the notification, and relays it.
func (m *Manager) run(ctx context.Context, req StartRequest, sess *session, path string) {
	defer close(sess.done)

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	// A tone recording always runs its fixed window, so only a SAME
	// recording listens for an explicit Stop.
	stop := sess.stop
	if req.Kind == KindTone {
		stop = nil
	}

	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-stop:
	}

	// Remove the session and close the chunk queue under the same lock
	// WriteChunk takes, so no send can race past this close.
	m.lock()
	delete(m.sessions, req.StreamLabel)
	close(sess.chunks)
	m.unlock()
	<-sess.chunksDone

	if err := sess.writer.Close(req.TailText); err != nil {
		m.logf("recording: close %s: %v", path, err)
	}
	m.notifyState(req.StreamLabel, "recording", "idle")

	if req.Notify != nil {
		req.Notify()
	}

	target := m.relay
	if req.Relay != nil {
		target = req.Relay
	}
	if target != nil {
		relayCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := target.Relay(relayCtx, path, req.EventCode, req.StreamLabel, req.HeaderText); err != nil {
			m.logf("relay: %s: %v", path, err)
		}
	}
}

// WriteChunk streams one chunk of audio into the stream's active recording,
// if any. It is a no-op when no recording is in progress, and drops the
// chunk rather than blocking when the recording's queue is full — the
// detection pipeline must never stall behind a slow disk write.
func (m *Manager) WriteChunk(streamLabel string, chunk []float32) {
	m.lock()
	defer m.unlock()
	sess, ok := m.sessions[streamLabel]
	if !ok {
		return
	}
	cp := append([]float32(nil), chunk...)
	select {
	case sess.chunks <- cp:
	default:
		m.logf("recording: chunk queue full for %s, dropping", streamLabel)
	}
}

// Stop signals the stream's active SAME recording to end now (the NNNN
// marker arrived). It has no effect on a tone recording or an absent one.
func (m *Manager) Stop(streamLabel string) {
	m.lock()
	sess, ok := m.sessions[streamLabel]
	m.unlock()
	if !ok {
		return
	}
	select {
	case sess.stop <- struct{}{}:
	default:
	}
}

func (m *Manager) logf(format string, args ...any) {
	if m.log != nil {
		m.log.Printf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
