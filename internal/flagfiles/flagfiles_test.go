package flagfiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagsendc/eas-listener/internal/state"
)

func TestUpdateSevereWinsOverModerate(t *testing.T) {
	dir := t.TempDir()
	alerts := []state.ActiveAlert{
		{Data: state.AlertData{EventCode: "SVA"}},
		{Data: state.AlertData{EventCode: "TOR"}},
	}
	require.NoError(t, Update(dir, alerts))

	_, err := os.Stat(filepath.Join(dir, severeFilename))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, rainyFilename))
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateClearsBothWhenNoAlerts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, severeFilename), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, rainyFilename), nil, 0o644))

	require.NoError(t, Update(dir, nil))

	_, err := os.Stat(filepath.Join(dir, severeFilename))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, rainyFilename))
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateModerateOnly(t *testing.T) {
	dir := t.TempDir()
	alerts := []state.ActiveAlert{
		{Data: state.AlertData{EventCode: "SVA"}, ExpiresAt: time.Now().Add(time.Hour)},
	}
	require.NoError(t, Update(dir, alerts))

	_, err := os.Stat(filepath.Join(dir, rainyFilename))
	assert.NoError(t, err)
}
