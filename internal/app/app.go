// Package app wires the daemon's collaborators together: configuration,
// the alert state machine, the recording manager, the monitoring hub, and
// the supervisor that runs one fetch/decode/detect pipeline per stream. It
// owns the HTTP/WebSocket monitoring listener that the operator CLI and any
// dashboard talk to.
package app

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/wagsendc/eas-listener/internal/alertlog"
	"github.com/wagsendc/eas-listener/internal/alertmgr"
	"github.com/wagsendc/eas-listener/internal/config"
	"github.com/wagsendc/eas-listener/internal/decoderproc"
	"github.com/wagsendc/eas-listener/internal/filter"
	"github.com/wagsendc/eas-listener/internal/monitor"
	"github.com/wagsendc/eas-listener/internal/recording"
	"github.com/wagsendc/eas-listener/internal/relay"
	"github.com/wagsendc/eas-listener/internal/state"
	"github.com/wagsendc/eas-listener/internal/supervisor"
	"github.com/wagsendc/eas-listener/internal/telemetry"
	"github.com/wagsendc/eas-listener/internal/ws"
)

// heartbeatInterval governs how often the daemon broadcasts a heartbeat
// event over the monitoring WebSocket, independent of the hub's own
// ping/pong keepalive.
const heartbeatInterval = 30 * time.Second

// Build-time variables set via -ldflags, mirroring the teacher's own
// version-stamping convention.
var (
	Version   = "dev"
	GoVersion = "unknown"
	BuiltAt   = "unknown"
)

// Options holds everything App needs from its caller (main).
type Options struct {
	Logger           *log.Logger
	Cfg              config.Config
	ConfigPath       string
	ReloadSignalPath string
	Bind             string
}

// App owns the monitoring HTTP/WebSocket listener and the supervisor that
// runs every stream's pipeline. It is the daemon's process-lifetime object.
type App struct {
	log              *log.Logger
	bind             string
	configPath       string
	reloadSignalPath string

	cfgMu sync.RWMutex
	cfg   config.Config

	startedAt  time.Time
	wsHub      *ws.Hub
	monitorHub *monitor.Hub
	filters    *filter.Engine
	alertMgr   *alertmgr.Manager
	sup        *supervisor.Supervisor
	alertLog   *alertlog.Logger

	server *http.Server
}

// New builds every collaborator from cfg but does not start anything; call
// Run to begin serving.
func New(opts Options) *App {
	filters := filter.NewEngine(opts.Cfg.Filters)
	wsHub := ws.NewHub()
	monitorHub := monitor.New(wsHub, opts.Cfg.MonitoringMaxLogEntries,
		time.Duration(opts.Cfg.MonitoringActivityWindowSecs)*time.Second)

	var decoder decoderproc.Decoder = noDecoder{}
	if cmd, ok := os.LookupEnv("EAS_HEADER_DECODER"); ok && cmd != "" {
		decoder = decoderproc.NewScriptDecoder(cmd, opts.Cfg.Timezone)
	}

	alertLog := alertlog.New(opts.Cfg.DedicatedAlertLogFile)

	var relayTarget relay.Target = relay.NoopTarget{Log: opts.Logger}
	var notifier relay.Notifier = relay.NoopNotifier{Log: opts.Logger}

	recordingMgr := recording.NewManager(opts.Cfg.RecordingDir, relayTarget, opts.Logger)
	recordingMgr.OnStateChange = monitorHub.BroadcastState
	alertMgr := alertmgr.New(opts.Cfg, filters, decoder, alertLog, recordingMgr, monitorHub, notifier, relayTarget, opts.Logger)

	sup := supervisor.New(opts.Cfg, opts.ConfigPath, alertMgr, recordingMgr, monitorHub, filters, opts.Logger, opts.ReloadSignalPath)

	return &App{
		log:              opts.Logger,
		bind:             opts.Bind,
		configPath:       opts.ConfigPath,
		reloadSignalPath: opts.ReloadSignalPath,
		cfg:              opts.Cfg,
		startedAt:        time.Now(),
		wsHub:            wsHub,
		monitorHub:       monitorHub,
		filters:          filters,
		alertMgr:         alertMgr,
		sup:              sup,
		alertLog:         alertLog,
	}
}

// noDecoder never shells out; every header resolves straight to the
// synthetic fallback alert data. Used when no external pretty-printer
// command is configured, so the core still runs standalone.
type noDecoder struct{}

func (noDecoder) Decode(_ context.Context, rawHeader string) (state.AlertData, error) {
	return decoderproc.Fallback(rawHeader), nil
}

// Run starts the supervisor's per-stream pipelines and the monitoring HTTP
// server, and blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" {
		bind = a.cfg.MonitoringBindAddr
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/streams", a.handleStreams)
	mux.HandleFunc("/api/alerts", a.handleAlerts)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/reload", a.handleReload)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.Handle("/ws", a.wsHub.Handler())

	a.server = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Printf("monitoring listener on http://%s", bind)
	go a.wsHub.Run(ctx)
	go a.sup.Run(ctx)
	go a.runHeartbeat(ctx)

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		_ = a.alertLog.Close()
	}()

	err = a.server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// runHeartbeat broadcasts a heartbeat event on a fixed interval so watch
// clients (and the ws.Hub's own ping/pong aside) can tell the daemon is
// alive even during a quiet stretch with no alerts.
func (a *App) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hbState := "RUNNING"
			streams := a.monitorHub.StreamSnapshots()
			for _, s := range streams {
				if !s.IsConnected {
					hbState = "DEGRADED"
					break
				}
			}
			a.wsHub.BroadcastJSON(telemetry.Heartbeat{
				Event:         telemetry.Event{Type: telemetry.EventHeartbeat, TS: telemetry.NowTS()},
				State:         hbState,
				UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
			})
		}
	}
}

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()
	streams := a.monitorHub.StreamSnapshots()

	connected := 0
	for _, s := range streams {
		if s.IsConnected {
			connected++
		}
	}

	resp := map[string]any{
		"name":             "eas-listener",
		"uptime_seconds":   int64(time.Since(a.startedAt).Seconds()),
		"streams_total":    len(streams),
		"streams_up":       connected,
		"active_alerts":    len(a.alertMgr.Snapshot()),
		"recording_dir":    cfg.RecordingDir,
		"shared_state_dir": cfg.SharedStateDir,
	}
	if du := diskUsage(cfg.RecordingDir); du != nil {
		resp["disk"] = du
	}

	a.writeJSON(w, resp)
}

func (a *App) handleStreams(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, map[string]any{"streams": a.monitorHub.StreamSnapshots()})
}

func (a *App) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, map[string]any{"alerts": a.alertMgr.Snapshot()})
}

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	a.writeJSON(w, map[string]any{"logs": a.monitorHub.RecentLogs(limit)})
}

func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := a.reloadSignalPath
	if path == "" {
		a.writeJSONStatus(w, http.StatusConflict, map[string]any{"ok": false, "error": "no reload sentinel file configured"})
		return
	}
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		if f, createErr := os.Create(path); createErr == nil {
			_ = f.Close()
		} else {
			a.writeJSONStatus(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": createErr.Error()})
			return
		}
	}
	a.monitorHub.RecordLog("info", "reload signalled via monitoring API", nil)
	a.writeJSON(w, map[string]any{"ok": true, "message": "reload signalled; picked up within 1s"})
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) getConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

func (a *App) writeJSON(w http.ResponseWriter, v any) {
	a.writeJSONStatus(w, http.StatusOK, v)
}

func (a *App) writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
