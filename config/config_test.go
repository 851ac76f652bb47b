package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.NoError(t, err)
	assert.Equal(t, defaultSocket, cfg.Socket)
	assert.Equal(t, defaultRedisAddr, cfg.RedisAddr)
	assert.Equal(t, defaultAgentDescr, cfg.AgentDescr)
	assert.NotNil(t, cfg.Adapters)
}

func TestLoadParsesAdapterOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := `
socket: /var/run/agentx/master.sock
redis_addr: 10.0.0.5:6379
adapters:
  ifmib:
    frequency_seconds: 10
    reinit_rate: 6
  arp:
    frequency_seconds: 30
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/run/agentx/master.sock", cfg.Socket)
	assert.Equal(t, "10.0.0.5:6379", cfg.RedisAddr)

	ifmib := cfg.Adapter("ifmib")
	assert.Equal(t, 10*time.Second, ifmib.Frequency())
	assert.Equal(t, 6, ifmib.ReinitRate)

	arp := cfg.Adapter("arp")
	assert.Equal(t, 30*time.Second, arp.Frequency())
	assert.Equal(t, 0, arp.ReinitRate)

	fdb := cfg.Adapter("fdb")
	assert.Equal(t, time.Duration(0), fdb.Frequency())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("socket: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
