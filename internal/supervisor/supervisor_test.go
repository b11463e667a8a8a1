package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagsendc/eas-listener/internal/filter"
)

func TestSameStreamList(t *testing.T) {
	require.True(t, sameStreamList([]string{"a", "b"}, []string{"a", "b"}))
	require.False(t, sameStreamList([]string{"a"}, []string{"a", "b"}))
	require.False(t, sameStreamList([]string{"a", "b"}, []string{"b", "a"}))
}

func TestHandleReloadSignalReinstallsFilters(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	doc := `{
		"SHARED_STATE_DIR": "` + dir + `",
		"DEDICATED_ALERT_LOG_FILE": "alerts.log",
		"SHOULD_LOG_ALL_ALERTS": false,
		"SHOULD_RELAY": false,
		"SHOULD_RELAY_ICECAST": false,
		"SHOULD_RELAY_DASDEC": false,
		"ALERT_LOG_FILE": "alert.log",
		"ICECAST_STREAM_URL_ARRAY": ["http://example.invalid/stream"],
		"MONITORING_BIND_ADDR": "127.0.0.1:9000",
		"filters": {"filters": [{"name": "tests", "event_codes": ["TOR"], "action": "log"}]}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(doc), 0o644))

	engine := filter.NewEngine(nil)
	s := &Supervisor{
		configPath: configPath,
		filters:    engine,
	}

	s.handleReloadSignal()

	rules := engine.Rules()
	require.Len(t, rules, 1)
	require.Equal(t, "tests", rules[0].Name)
	require.Equal(t, filter.ActionLog, rules[0].Action)
	require.Equal(t, []string{"http://example.invalid/stream"}, s.cfg.IcecastStreamURLs)
}

func TestHandleReloadSignalWarnsOnStreamListChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	doc := `{
		"SHARED_STATE_DIR": "` + dir + `",
		"DEDICATED_ALERT_LOG_FILE": "alerts.log",
		"SHOULD_LOG_ALL_ALERTS": false,
		"SHOULD_RELAY": false,
		"SHOULD_RELAY_ICECAST": false,
		"SHOULD_RELAY_DASDEC": false,
		"ALERT_LOG_FILE": "alert.log",
		"ICECAST_STREAM_URL_ARRAY": ["http://example.invalid/new"],
		"MONITORING_BIND_ADDR": "127.0.0.1:9000"
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(doc), 0o644))

	s := &Supervisor{
		configPath: configPath,
		filters:    filter.NewEngine(nil),
	}
	s.cfg.IcecastStreamURLs = []string{"http://example.invalid/old"}

	// Should not panic even though the stream list changed; it just logs.
	s.handleReloadSignal()
	require.Equal(t, []string{"http://example.invalid/new"}, s.cfg.IcecastStreamURLs)
}

func TestSleepOrDoneReturnsFalseWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, sleepOrDone(ctx, 0))
}
