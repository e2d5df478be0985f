package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"guardian/pkg/guardian"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withJSONOutput(t *testing.T, on bool) {
	t.Helper()
	orig := jsonOutput
	jsonOutput = on
	t.Cleanup(func() { jsonOutput = orig })
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, json.RawMessage(`{"a":1,"b":[true]}`)))
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}\n", out.String())

	out.Reset()
	require.NoError(t, printJSON(&out, map[string]int{"epoch": 7}))
	assert.Equal(t, "{\n  \"epoch\": 7\n}\n", out.String())

	assert.Error(t, printJSON(&out, json.RawMessage(`{not json`)))
}

func TestOutput(t *testing.T) {
	styledCalled := false
	styled := func() string {
		styledCalled = true
		return "styled"
	}

	withJSONOutput(t, true)
	var out bytes.Buffer
	require.NoError(t, output(&out, "code", styled))
	assert.Equal(t, "\"code\"\n", out.String())
	assert.False(t, styledCalled)

	withJSONOutput(t, false)
	out.Reset()
	require.NoError(t, output(&out, "code", styled))
	assert.Equal(t, "styled\n", out.String())
}

func TestRenderStatus(t *testing.T) {
	status := &guardian.StatusResponse{
		Server:    guardian.ServerConsensusRunning,
		Consensus: &guardian.ConsensusStatus{PeersOnline: 2, PeersOffline: 1, PeersFlagged: 1},
	}

	rendered := renderStatus("ws://127.0.0.1:18174", status)
	assert.Contains(t, rendered, "GUARDIAN STATUS")
	assert.Contains(t, rendered, "ws://127.0.0.1:18174")
	assert.Contains(t, rendered, "ConsensusRunning")
	assert.Contains(t, rendered, "3 / 4")

	setup := renderStatus("ws://x", &guardian.StatusResponse{Server: guardian.ServerAwaitingPassword})
	assert.Contains(t, setup, "AwaitingPassword")
	assert.NotContains(t, setup, "Guardians Online")
}

func TestRenderAudit(t *testing.T) {
	summary := &guardian.AuditSummary{
		NetAssets: 150_000_000_000,
		ModuleSummaries: map[string]guardian.ModuleSummary{
			"wallet": {NetAssets: 150_000_000_000, Kind: "wallet"},
			"mint":   {NetAssets: -2_000, Kind: "mint"},
		},
	}

	rendered := renderAudit(summary)
	assert.Contains(t, rendered, "1.50000000 BTC")
	assert.Contains(t, rendered, "wallet")
	assert.Contains(t, rendered, "mint")
	assert.Less(t, strings.Index(rendered, "mint"), strings.Index(rendered, "wallet"))
}

func TestRenderPeerHashes(t *testing.T) {
	rendered := renderPeerHashes(guardian.PeerHashMap{"bob": "beef", "alice": "cafe"})
	assert.Contains(t, rendered, "cafe")
	assert.Contains(t, rendered, "beef")
	assert.Less(t, strings.Index(rendered, "alice"), strings.Index(rendered, "bob"))
}

func TestRawPanel(t *testing.T) {
	assert.Contains(t, rawPanel("VERSIONS", "📋", nil), "(empty)")
	assert.Contains(t, rawPanel("VERSIONS", "📋", json.RawMessage(`{"core":{"major":0}}`)), `"major": 0`)
}

func TestReadJSONFile(t *testing.T) {
	params, err := readJSONFile(strings.NewReader(`{"meta":{"federation_name":"test"}}`), "-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"meta":{"federation_name":"test"}}`, string(params))

	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"modules":{}}`), 0600))
	params, err = readJSONFile(nil, path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"modules":{}}`, string(params))

	_, err = readJSONFile(strings.NewReader("not json"), "-")
	assert.ErrorContains(t, err, "not valid JSON")

	_, err = readJSONFile(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read parameters")
}
