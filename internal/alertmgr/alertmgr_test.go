package alertmgr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagsendc/eas-listener/internal/alertlog"
	"github.com/wagsendc/eas-listener/internal/config"
	"github.com/wagsendc/eas-listener/internal/filter"
	"github.com/wagsendc/eas-listener/internal/recording"
	"github.com/wagsendc/eas-listener/internal/relay"
	"github.com/wagsendc/eas-listener/internal/state"
)

type fakeDecoder struct {
	data state.AlertData
	err  error
}

func (f fakeDecoder) Decode(context.Context, string) (state.AlertData, error) {
	return f.data, f.err
}

type fakeRelay struct {
	calls []string
}

func (f *fakeRelay) Relay(_ context.Context, recordingPath, eventCode, streamLabel, _ string) error {
	f.calls = append(f.calls, recordingPath+"|"+eventCode+"|"+streamLabel)
	return nil
}

func newTestManager(t *testing.T, decoder fakeDecoder, rules []filter.Rule) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		SharedStateDir:     dir,
		RecordingDir:       filepath.Join(dir, "recordings"),
		ShouldLogAllAlerts: false,
		ShouldRelay:        true,
	}
	require.NoError(t, os.MkdirAll(cfg.RecordingDir, 0o755))

	engine := filter.NewEngine(rules)
	logPath := filepath.Join(dir, "alerts.log")
	alertLog := alertlog.New(logPath)
	recorder := recording.NewManager(cfg.RecordingDir, &fakeRelay{}, nil)

	return New(cfg, engine, decoder, alertLog, recorder, nil, relay.NoopNotifier{}, relay.NoopTarget{}, nil), logPath
}

const sampleHeader = "ZCZC-WXR-TOR-012345+0030-2120015-KXYZ/NWS-"

func TestHandleHeaderStartsRecordingForRelevantAlert(t *testing.T) {
	mgr, _ := newTestManager(t, fakeDecoder{data: state.AlertData{
		EASText:   "Tornado warning",
		EventText: "Tornado Warning",
		EventCode: "TOR",
		FIPS:      []string{"012345"},
	}}, nil)

	mgr.HandleHeader(context.Background(), "stream-a", sampleHeader)

	require.True(t, mgr.recorder.IsActive("stream-a"))
	snapshot := mgr.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, "TOR", snapshot[0].Data.EventCode)
}

func TestHandleHeaderSkipsIrrelevantFIPS(t *testing.T) {
	mgr, _ := newTestManager(t, fakeDecoder{data: state.AlertData{
		EventCode: "TOR",
		FIPS:      []string{"999999"},
	}}, nil)
	mgr.cfg.WatchedFIPS = map[string]struct{}{"012345": {}}

	mgr.HandleHeader(context.Background(), "stream-a", sampleHeader)

	require.False(t, mgr.recorder.IsActive("stream-a"))
	require.Empty(t, mgr.Snapshot())
}

func TestHandleHeaderFallsBackOnDecoderError(t *testing.T) {
	mgr, _ := newTestManager(t, fakeDecoder{err: context.DeadlineExceeded}, nil)

	mgr.HandleHeader(context.Background(), "stream-a", sampleHeader)

	snapshot := mgr.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, "Unknown Event", snapshot[0].Data.EventText)
}

func TestHandleEndOfMessageStopsRecording(t *testing.T) {
	mgr, _ := newTestManager(t, fakeDecoder{data: state.AlertData{EventCode: "TOR", FIPS: []string{"012345"}}}, nil)

	mgr.HandleHeader(context.Background(), "stream-a", sampleHeader)
	require.True(t, mgr.recorder.IsActive("stream-a"))

	mgr.HandleEndOfMessage("stream-a")

	require.Eventually(t, func() bool {
		return !mgr.recorder.IsActive("stream-a")
	}, time.Second, 5*time.Millisecond)
}

func TestHandleHeaderWritesAlertLogWhenConfigured(t *testing.T) {
	mgr, logPath := newTestManager(t, fakeDecoder{data: state.AlertData{
		EASText:   "Tornado warning",
		EventCode: "TOR",
		FIPS:      []string{"012345"},
	}}, nil)
	mgr.cfg.ShouldLogAllAlerts = true

	mgr.HandleHeader(context.Background(), "stream-a", sampleHeader)

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(b), "Tornado warning")
}

func TestSweepDropsExpiredAlerts(t *testing.T) {
	mgr, _ := newTestManager(t, fakeDecoder{data: state.AlertData{EventCode: "TOR", FIPS: []string{"012345"}}}, nil)

	expired := state.NewActiveAlert(state.AlertData{EventCode: "TOR"}, sampleHeader, -time.Second)
	mgr.store.Upsert(expired)
	require.Len(t, mgr.Snapshot(), 1)

	mgr.Sweep()
	require.Empty(t, mgr.Snapshot())
}
