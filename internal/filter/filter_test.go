package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineEvaluateFirstMatchWins(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "ignore-tests", Action: ActionIgnore, Matchers: []Matcher{Exact{Code: "RWT"}}},
		{Name: "catch-all", Action: ActionLog, Matchers: []Matcher{Wildcard{}}},
	})

	action, name := e.Evaluate("rwt")
	assert.Equal(t, ActionIgnore, action)
	assert.Equal(t, "ignore-tests", name)

	action, name = e.Evaluate("TOR")
	assert.Equal(t, ActionLog, action)
	assert.Equal(t, "catch-all", name)
}

func TestEngineDefaultsToRelayWhenUnmatched(t *testing.T) {
	e := NewEngine(nil)
	action, name := e.Evaluate("TOR")
	assert.Equal(t, ActionRelay, action)
	assert.Equal(t, "Default Filter", name)
	assert.True(t, e.ShouldRelay("TOR"))
	assert.False(t, e.ShouldLog("TOR"))
	assert.False(t, e.ShouldForward("TOR"))
}

func TestEngineShouldLogAndForward(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "forward-tor", Action: ActionForward, Matchers: []Matcher{Exact{Code: "TOR"}}},
		{Name: "log-svr", Action: ActionLog, Matchers: []Matcher{Exact{Code: "SVR"}}},
	})

	assert.False(t, e.ShouldLog("TOR"))
	assert.True(t, e.ShouldForward("TOR"))
	assert.True(t, e.ShouldLog("SVR"))
	assert.False(t, e.ShouldForward("SVR"))
}

func TestEngineInstallSwapsAtomically(t *testing.T) {
	e := NewEngine([]Rule{{Name: "a", Action: ActionIgnore, Matchers: []Matcher{Wildcard{}}}})
	assert.Equal(t, 1, len(e.Rules()))

	e.Install([]Rule{
		{Name: "b", Action: ActionRelay, Matchers: []Matcher{Wildcard{}}},
		{Name: "c", Action: ActionLog, Matchers: []Matcher{Wildcard{}}},
	})
	rules := e.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "b", rules[0].Name)
}

func TestParseRules(t *testing.T) {
	raw := json.RawMessage(`{
		"filters": [
			{"name": "ignore-tests", "event_codes": ["RWT", "DMO"], "action": "ignore"},
			{"name": "everything-else", "event_codes": ["*"]},
			{"event_codes": ["TOR"]},
			{"name": "no-codes", "event_codes": []}
		]
	}`)
	raw2 := raw
	_ = raw2

	rules, warnings := ParseRules(raw)
	require.Len(t, rules, 2)
	assert.Equal(t, "ignore-tests", rules[0].Name)
	assert.Equal(t, ActionIgnore, rules[0].Action)
	assert.Equal(t, "everything-else", rules[1].Name)
	assert.Equal(t, ActionRelay, rules[1].Action)
	assert.NotEmpty(t, warnings)
}

func TestNormalizeEventCode(t *testing.T) {
	assert.Equal(t, "TOR", NormalizeEventCode("  tor  "))
	assert.Equal(t, "SVR", NormalizeEventCode("Svr"))
}
