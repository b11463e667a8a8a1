// Package alertmgr is the alert state machine: it decodes raw SAME headers,
// filters them by FIPS relevance, deduplicates and expires the active-alert
// set, persists the severe/moderate flag files, writes the dedicated alert
// log, and decides whether a recording gets relayed, logged, or forwarded.
package alertmgr

import (
	"context"
	"log"
	"time"

	"github.com/wagsendc/eas-listener/internal/alertlog"
	"github.com/wagsendc/eas-listener/internal/config"
	"github.com/wagsendc/eas-listener/internal/decoderproc"
	"github.com/wagsendc/eas-listener/internal/filter"
	"github.com/wagsendc/eas-listener/internal/flagfiles"
	"github.com/wagsendc/eas-listener/internal/monitor"
	"github.com/wagsendc/eas-listener/internal/recording"
	"github.com/wagsendc/eas-listener/internal/relay"
	"github.com/wagsendc/eas-listener/internal/same"
	"github.com/wagsendc/eas-listener/internal/state"
)

// SAMEPurgeTime bounds how long a SAME-triggered recording runs if no NNNN
// end marker arrives.
const SAMEPurgeTime = 300 * time.Second

// Manager is the alert state machine. It is safe for concurrent use; the
// underlying active-alert store and filter engine each hold their own lock.
type Manager struct {
	cfg      config.Config
	filters  *filter.Engine
	store    *state.Store
	decoder  decoderproc.Decoder
	alertLog *alertlog.Logger
	recorder *recording.Manager
	monitor  *monitor.Hub
	notifier relay.Notifier
	relay    relay.Target
	log      *log.Logger
}

// New builds a Manager from its collaborators.
func New(cfg config.Config, filters *filter.Engine, decoder decoderproc.Decoder, alertLog *alertlog.Logger,
	recorder *recording.Manager, mon *monitor.Hub, notifier relay.Notifier, target relay.Target, logger *log.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		filters:  filters,
		store:    state.NewStore(),
		decoder:  decoder,
		alertLog: alertLog,
		recorder: recorder,
		monitor:  mon,
		notifier: notifier,
		relay:    target,
		log:      logger,
	}
}

// HandleHeader processes one newly decoded, deduplicated SAME header seen
// on streamLabel: decode, relevance check, active-alert update, flag-file
// and log side effects, and kicking off a bounded recording.
func (m *Manager) HandleHeader(ctx context.Context, streamLabel, rawHeader string) {
	data, err := m.decoder.Decode(ctx, rawHeader)
	if err != nil {
		m.logf("decoder: %v", err)
		data = decoderproc.Fallback(rawHeader)
	}

	if !m.cfg.IsFIPSRelevant(data.FIPS) {
		m.logf("info: %s ignored, no watched FIPS zone matched", data.EventCode)
		return
	}

	// An ActiveAlert's expiry follows the header's own declared valid
	// duration (TTTT), not the fixed recording cap; the pretty-printer's
	// JSON output never carries that field, so it's always parsed locally.
	validFor := SAMEPurgeTime
	if d, ok := same.ParseValidDuration(rawHeader); ok && d > 0 {
		validFor = d
	}
	alert := state.NewActiveAlert(data, rawHeader, validFor)
	snapshot := m.store.Upsert(alert)

	if err := flagfiles.Update(m.cfg.SharedStateDir, snapshot); err != nil {
		m.logf("flag files: %v", err)
	}
	if m.monitor != nil {
		m.monitor.BroadcastAlerts(snapshot, streamLabel)
	}

	action, _ := m.filters.Evaluate(data.EventCode)
	if m.cfg.ShouldLogAllAlerts || m.filters.ShouldLog(data.EventCode) {
		if err := m.alertLog.Log(rawHeader, data.EASText, alert.ReceivedAt); err != nil {
			m.logf("alert log: %v", err)
		}
	}

	// Dispatch per §4.5 step 7 happens once the recording closes, not here
	// on header detection: Log, Forward, and Relay all notify; only Ignore
	// skips it. Only Relay additionally hands the recording to the relay.
	notify := m.notifyFunc(action, alert)

	relayTarget := relay.Target(relay.NoopTarget{Log: m.log})
	if action == filter.ActionRelay && m.cfg.ShouldRelay {
		relayTarget = m.relay
	}

	if m.recorder == nil {
		notify()
		return
	}
	if !m.recorder.IsActive(streamLabel) {
		m.recorder.Start(ctx, recording.StartRequest{
			StreamLabel: streamLabel,
			Kind:        recording.KindSAME,
			EventCode:   data.EventCode,
			HeaderText:  rawHeader,
			TailText:    "NNNN",
			Timeout:     SAMEPurgeTime,
			Relay:       relayTarget,
			Notify:      notify,
		})
	}
}

// notifyFunc builds the post-recording webhook notification for one header,
// a no-op when the verdict is Ignore or no notifier is wired.
func (m *Manager) notifyFunc(action filter.Action, alert state.ActiveAlert) func() {
	if action == filter.ActionIgnore || m.notifier == nil {
		return func() {}
	}
	return func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.notifier.Notify(notifyCtx, alert); err != nil {
			m.logf("notify: %v", err)
		}
	}
}

// HandleEndOfMessage signals the stream's active SAME recording (if any)
// that the NNNN marker arrived, letting it finish early instead of waiting
// out the full purge timeout.
func (m *Manager) HandleEndOfMessage(streamLabel string) {
	if m.recorder != nil {
		m.recorder.Stop(streamLabel)
	}
}

// Sweep drops expired alerts, recomputing flag files and broadcasting only
// if the active set actually changed. Intended to be called on a fixed
// interval (60s) by the supervisor.
func (m *Manager) Sweep() {
	snapshot, changed := m.store.Sweep()
	if !changed {
		return
	}
	if err := flagfiles.Update(m.cfg.SharedStateDir, snapshot); err != nil {
		m.logf("flag files: %v", err)
	}
	if m.monitor != nil {
		m.monitor.BroadcastAlerts(snapshot, "")
	}
}

// Snapshot returns the current active-alert set.
func (m *Manager) Snapshot() []state.ActiveAlert {
	return m.store.Snapshot()
}

func (m *Manager) logf(format string, args ...any) {
	if m.log != nil {
		m.log.Printf(format, args...)
	}
}
