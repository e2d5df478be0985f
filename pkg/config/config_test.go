package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config source at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GUARDIAN_CONFIG_DIR", dir)
	for _, key := range []string{
		EnvAPIURL, EnvTransport, EnvCACert, EnvRequestTimeout, EnvDialTimeout,
		EnvConsensusGrace, EnvConfirmAttempts, EnvConfirmInterval,
		EnvCredentialStore, EnvSessionDir, EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, cfg.APIURL, "missing API URL is not a load error")
	assert.Equal(t, 5*time.Hour, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.ConfirmAttempts)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)

	yamlConfig := `
api_url: ws://file:18174
transport: websocket
request_timeout: 2h
consensus_grace: 10s
confirm_attempts: 4
credential_store: memory
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlConfig), 0600))

	t.Setenv(EnvAPIURL, "grpc://env:18175")
	t.Setenv(EnvTransport, "grpc")
	t.Setenv(EnvConfirmInterval, "3s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "grpc://env:18175", cfg.APIURL)
	assert.Equal(t, TransportGRPC, cfg.Transport)
	assert.Equal(t, 2*time.Hour, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConsensusGrace)
	assert.Equal(t, 4, cfg.ConfirmAttempts)
	assert.Equal(t, 3*time.Second, cfg.ConfirmInterval)
	assert.Equal(t, CredentialMemory, cfg.CredentialStore)
	assert.Equal(t, 30*time.Second, cfg.DialTimeout, "unset fields keep defaults")
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad transport", map[string]string{EnvTransport: "carrier-pigeon"}, "unknown transport"},
		{"bad store", map[string]string{EnvCredentialStore: "keychain"}, "unknown credential store"},
		{"bad duration", map[string]string{EnvDialTimeout: "soon"}, EnvDialTimeout},
		{"bad attempts", map[string]string{EnvConfirmAttempts: "many"}, EnvConfirmAttempts},
		{"zero attempts", map[string]string{EnvConfirmAttempts: "0"}, "confirm_attempts"},
		{"negative grace", map[string]string{EnvConsensusGrace: "-1s"}, "consensus_grace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FM_CONFIG_API=ws://dotenv:18174\nGUARDIAN_LOG_LEVEL=debug\n"), 0600))

	// registered for restore, then removed so the .env value can apply
	t.Setenv(EnvAPIURL, "placeholder")
	require.NoError(t, os.Unsetenv(EnvAPIURL))
	t.Setenv(EnvLogLevel, "warn")

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "ws://dotenv:18174", os.Getenv(EnvAPIURL))
	assert.Equal(t, "warn", os.Getenv(EnvLogLevel))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}

func TestResolvedTransport(t *testing.T) {
	tests := []struct {
		apiURL    string
		transport Transport
		want      Transport
	}{
		{"ws://127.0.0.1:18174", "", TransportWebSocket},
		{"wss://guardian.example.com", "", TransportWebSocket},
		{"grpc://127.0.0.1:18174", "", TransportGRPC},
		{"grpcs://guardian.example.com:443", "", TransportGRPC},
		{"ws://127.0.0.1:18174", TransportGRPC, TransportGRPC},
	}

	for _, tt := range tests {
		t.Run(tt.apiURL+string(tt.transport), func(t *testing.T) {
			cfg := &Config{APIURL: tt.apiURL, Transport: tt.transport}
			assert.Equal(t, tt.want, cfg.ResolvedTransport())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.APIURL = "ws://saved:18174"
	cfg.ConsensusGrace = 7 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded := Default()
	require.NoError(t, loaded.loadFile(path))
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("GUARDIAN_CONFIG_DIR", "/etc/guardian")
	assert.Equal(t, "/etc/guardian", GetConfigDir())

	t.Setenv("GUARDIAN_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/home/op/.config")
	assert.Equal(t, "/home/op/.config/guardian", GetConfigDir())
	assert.Equal(t, "/home/op/.config/guardian/config.yaml", GetConfigPath())
}
