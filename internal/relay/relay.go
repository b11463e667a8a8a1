// Package relay defines the narrow interface this daemon calls into to
// hand off a finished recording to a downstream relay (Icecast mux,
// DASDEC, or similar) and to notify a webhook of an alert. The concrete
// mechanics of either collaborator are out of scope here; this package
// only specifies the boundary and a couple of inert implementations
// useful for configurations that don't want relaying at all.
package relay

import (
	"context"
	"log"

	"github.com/wagsendc/eas-listener/internal/state"
)

// Target hands a completed recording off to whatever downstream system
// actually broadcasts or archives it.
type Target interface {
	Relay(ctx context.Context, recordingPath, eventCode, streamLabel, rawHeader string) error
}

// Notifier sends an alert summary to a webhook or notification dispatcher.
type Notifier interface {
	Notify(ctx context.Context, alert state.ActiveAlert) error
}

// NoopTarget discards every relay request. Used when SHOULD_RELAY is false.
type NoopTarget struct{ Log *log.Logger }

func (n NoopTarget) Relay(_ context.Context, recordingPath, eventCode, streamLabel, _ string) error {
	if n.Log != nil {
		n.Log.Printf("relay: disabled, not forwarding %s (%s/%s)", recordingPath, eventCode, streamLabel)
	}
	return nil
}

// NoopNotifier discards every webhook notification.
type NoopNotifier struct{ Log *log.Logger }

func (n NoopNotifier) Notify(_ context.Context, alert state.ActiveAlert) error {
	if n.Log != nil {
		n.Log.Printf("notify: disabled, not sending webhook for %s", alert.Data.EventCode)
	}
	return nil
}
