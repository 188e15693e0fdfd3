package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "finney", cfg.Network.Name)
	require.Equal(t, 18, cfg.Network.SubnetUID)
	require.Equal(t, "synthetic", cfg.Ledger.Backend)
	require.Equal(t, 256, cfg.Ledger.Synthetic.TotalMiners)
	require.Equal(t, 0.2, cfg.Transport.DropRate)
	require.Equal(t, 30*time.Second, cfg.Ledger.RefreshTimeout.Std())
	require.Equal(t, 12*time.Second, cfg.Query.PeerTimeout.Std())
	require.Equal(t, 16, cfg.Query.MaxConcurrency)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: console
network:
  name: test
  subnet_uid: 1
ledger:
  refresh_timeout: 5s
  synthetic:
    total_miners: 10
query:
  peer_timeout: 250ms
  max_concurrency: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, "test", cfg.Network.Name)
	require.Equal(t, 1, cfg.Network.SubnetUID)
	require.Equal(t, 10, cfg.Ledger.Synthetic.TotalMiners)
	require.Equal(t, 5*time.Second, cfg.Ledger.RefreshTimeout.Std())
	require.Equal(t, 250*time.Millisecond, cfg.Query.PeerTimeout.Std())
	require.Equal(t, 2, cfg.Query.MaxConcurrency)

	// Untouched sections keep their defaults.
	require.Equal(t, "synthetic", cfg.Ledger.Backend)
	require.Equal(t, 0.2, cfg.Transport.DropRate)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad log level":     "log:\n  level: loud\n",
		"bad backend":       "ledger:\n  backend: carrier-pigeon\n",
		"bad drop rate":     "transport:\n  drop_rate: 1.5\n",
		"bad concurrency":   "query:\n  max_concurrency: -1\n",
		"bad duration":      "query:\n  peer_timeout: soon\n",
		"substrate no addr": "ledger:\n  backend: substrate\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_LOG_LEVEL", "warn")
	t.Setenv("BRIDGE_NETWORK", "staging")
	t.Setenv("BRIDGE_METRICS_ADDR", ":9100")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "staging", cfg.Network.Name)
	require.Equal(t, ":9100", cfg.Metrics.Addr)
}
