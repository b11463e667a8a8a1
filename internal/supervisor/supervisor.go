// Package supervisor runs one reconnecting fetch+decode+detect pipeline
// per configured stream, a periodic active-alert sweep, and the config
// reload poller. Every per-stream goroutine and the sweep and reload tasks
// are started and tracked here; the monitoring listener, WebSocket hub and
// heartbeat are run by the app package.
package supervisor

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/wagsendc/eas-listener/internal/alertmgr"
	"github.com/wagsendc/eas-listener/internal/config"
	"github.com/wagsendc/eas-listener/internal/fetch"
	"github.com/wagsendc/eas-listener/internal/filter"
	"github.com/wagsendc/eas-listener/internal/monitor"
	"github.com/wagsendc/eas-listener/internal/pipeline"
	"github.com/wagsendc/eas-listener/internal/recorder"
	"github.com/wagsendc/eas-listener/internal/recording"
	"github.com/wagsendc/eas-listener/internal/state"
)

const (
	sweepInterval    = 60 * time.Second
	reloadInterval   = 1 * time.Second
	reconnectDelay   = 1 * time.Second
	dropWarnInterval = 30 * time.Second
)

// ToneRecordingDuration is the fixed window a NOAA Weather Radio attention
// tone recording runs for; there is no end marker to cut it short early.
const ToneRecordingDuration = 120 * time.Second

// Supervisor owns every stream's reconnect loop plus the sweep and reload
// background tasks.
type Supervisor struct {
	cfg          config.Config
	configPath   string
	client       *http.Client
	alertMgr     *alertmgr.Manager
	recordingMgr *recording.Manager
	monitor      *monitor.Hub
	filters      *filter.Engine
	log          *log.Logger

	reloadSignalPath string

	lastHeaderMu sync.Mutex
	lastHeader   map[string]string // stream label -> most recently seen live SAME header
}

// New builds a Supervisor from its wired collaborators. configPath is
// re-read on every reload signal; reloadSignalPath is the sentinel file
// whose mtime change triggers that re-read.
func New(cfg config.Config, configPath string, alertMgr *alertmgr.Manager, recordingMgr *recording.Manager,
	mon *monitor.Hub, filters *filter.Engine, logger *log.Logger, reloadSignalPath string) *Supervisor {
	return &Supervisor{
		cfg:              cfg,
		configPath:       configPath,
		client:           fetch.NewHTTPClient(),
		alertMgr:         alertMgr,
		recordingMgr:     recordingMgr,
		monitor:          mon,
		filters:          filters,
		log:              logger,
		reloadSignalPath: reloadSignalPath,
		lastHeader:       make(map[string]string),
	}
}

func (s *Supervisor) noteLastHeader(streamLabel, rawHeader string) {
	s.lastHeaderMu.Lock()
	s.lastHeader[streamLabel] = rawHeader
	s.lastHeaderMu.Unlock()
}

func (s *Supervisor) lastHeaderFor(streamLabel string) (string, bool) {
	s.lastHeaderMu.Lock()
	defer s.lastHeaderMu.Unlock()
	h, ok := s.lastHeader[streamLabel]
	return h, ok
}

// Run blocks until ctx is cancelled, running one goroutine per stream plus
// the sweep and reload tasks.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, url := range s.cfg.IcecastStreamURLs {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			s.runStream(ctx, url)
		}(url)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runSweeper(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runReloadPoller(ctx)
	}()

	wg.Wait()
}

func (s *Supervisor) runStream(ctx context.Context, url string) {
	label := recorder.SanitizeLabel(url)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.monitor != nil {
			s.monitor.NoteConnecting(url)
		}

		stream, err := fetch.Open(ctx, s.client, url)
		if err != nil {
			if s.monitor != nil {
				s.monitor.NoteError(url, err.Error())
			}
			s.logf("stream %s: %v", label, err)
			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
			continue
		}

		if s.monitor != nil {
			s.monitor.NoteConnected(url)
		}

		queued := fetch.NewQueuedReader(ctx, stream.Body)
		var lastDropWarn time.Time
		queued.OnDrop = func() {
			if now := time.Now(); now.Sub(lastDropWarn) >= dropWarnInterval {
				lastDropWarn = now
				s.logf("stream %s: byte queue full, dropping chunk", label)
			}
		}

		err = pipeline.Run(ctx, stream.ContentType, &activityReader{r: queued, onRead: func() {
			if s.monitor != nil {
				s.monitor.NoteActivity(url)
			}
		}}, pipeline.Hooks{
			OnChunk: func(samples []float32) {
				s.recordingMgr.WriteChunk(label, samples)
			},
			OnSAMEHeader: func(rawHeader string) {
				s.noteLastHeader(label, rawHeader)
				s.alertMgr.HandleHeader(ctx, label, rawHeader)
			},
			OnSAMEEnd: func() {
				s.alertMgr.HandleEndOfMessage(label)
			},
			OnToneSustained: func() {
				s.startToneRecording(ctx, label, url)
			},
		})
		_ = stream.Body.Close()

		if s.monitor != nil {
			if err != nil {
				s.monitor.NoteError(url, err.Error())
			}
			s.monitor.NoteDisconnected(url)
		}
		if err != nil {
			s.logf("stream %s: %v", label, err)
		}

		if !sleepOrDone(ctx, reconnectDelay) {
			return
		}
	}
}

// startToneRecording begins a fixed-duration recording for the NOAA
// Weather Radio attention tone. Unlike a SAME header, a bare tone carries
// no FIPS codes to filter on, so it always records. It also broadcasts a
// synthetic ??W alert to the monitoring hub alongside the current active
// set; that alert is not added to the alert manager's store, so it does not
// appear in later snapshots and does not affect the flag files.
func (s *Supervisor) startToneRecording(ctx context.Context, label, streamURL string) {
	header, ok := s.lastHeaderFor(label)
	if !ok {
		julian := time.Now().Format("002")
		header = "ZCZC-WXR-??W-000000+0015-" + julian + time.Now().Format("1504") + "-" + s.cfg.EASRelayName + "-"
	}

	started := s.recordingMgr.Start(ctx, recording.StartRequest{
		StreamLabel: label,
		Kind:        recording.KindTone,
		EventCode:   "??W",
		HeaderText:  header,
		TailText:    "NNNN",
		Timeout:     ToneRecordingDuration,
	})
	if !started {
		return
	}

	alert := state.NewActiveAlert(state.AlertData{
		EASText:    "NOAA Weather Radio attention tone detected.",
		EventText:  "Weather Radio Tone Alert",
		EventCode:  "??W",
		FIPS:       []string{"000000"},
		Originator: "WXR",
	}, header, 15*time.Minute)

	if s.monitor != nil && s.alertMgr != nil {
		s.monitor.BroadcastAlerts(append(s.alertMgr.Snapshot(), alert), streamURL)
	}
}

func (s *Supervisor) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.alertMgr.Sweep()
		}
	}
}

func (s *Supervisor) runReloadPoller(ctx context.Context) {
	if s.reloadSignalPath == "" {
		return
	}
	ticker := time.NewTicker(reloadInterval)
	defer ticker.Stop()

	var lastModified time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(s.reloadSignalPath)
			if err != nil {
				continue
			}
			if !info.ModTime().After(lastModified) {
				continue
			}
			lastModified = info.ModTime()
			s.handleReloadSignal()
		}
	}
}

func (s *Supervisor) handleReloadSignal() {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		s.logf("reload: %v", err)
		return
	}
	s.filters.Install(cfg.Filters)
	s.logf("reload: filters reinstalled (%d rules)", len(cfg.Filters))
	if !sameStreamList(cfg.IcecastStreamURLs, s.cfg.IcecastStreamURLs) {
		s.logf("reload: stream URL list changed, a full restart is required to apply it")
	}
	s.cfg = cfg
	_ = os.Remove(s.reloadSignalPath)
}

func sameStreamList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Supervisor) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// sleepOrDone sleeps for d or returns early (with false) if ctx finishes first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// activityReader wraps an io.Reader and calls onRead after every successful
// read, so the supervisor can note stream activity without the pipeline
// needing to know about monitoring at all.
type activityReader struct {
	r      io.Reader
	onRead func()
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 && a.onRead != nil {
		a.onRead()
	}
	return n, err
}
