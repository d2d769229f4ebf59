// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.NodeName)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 256, cfg.Collector.BufferSize)
	assert.Equal(t, 10*time.Second, cfg.Web.ReadTimeout)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Coordinator.Address, cfg.Coordinator.Address)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
node_name: worker-7
web:
  addr: 0.0.0.0:8188
  read_timeout: 15s
  write_timeout: 45s
coordinator:
  address: coordinator.internal:50051
  report_timeout: 30s
storage:
  path: /var/lib/timeline
collector:
  buffer_size: 512
  flush_timeout: 10s
  removal_linger: 2s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "worker-7", cfg.NodeName)
	assert.Equal(t, "0.0.0.0:8188", cfg.Web.Addr)
	assert.Equal(t, 15*time.Second, cfg.Web.ReadTimeout)
	assert.Equal(t, 45*time.Second, cfg.Web.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Web.IdleTimeout)
	assert.Equal(t, "coordinator.internal:50051", cfg.Coordinator.Address)
	assert.Equal(t, 30*time.Second, cfg.Coordinator.ReportTimeout)
	assert.Equal(t, "/var/lib/timeline", cfg.Storage.Path)
	assert.Equal(t, 512, cfg.Collector.BufferSize)
	assert.Equal(t, 10*time.Second, cfg.Collector.FlushTimeout)
	assert.Equal(t, 2*time.Second, cfg.Collector.RemovalLinger)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("TIMELINE_COORDINATOR_ADDRESS", "env-coordinator:9999")
	t.Setenv("TIMELINE_COLLECTOR_BUFFER_SIZE", "1024")
	t.Setenv("TIMELINE_WEB_READ_TIMEOUT", "15s")
	t.Setenv("TIMELINE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-coordinator:9999", cfg.Coordinator.Address)
	assert.Equal(t, 1024, cfg.Collector.BufferSize)
	assert.Equal(t, 15*time.Second, cfg.Web.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Web.Addr, cfg.Web.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coordinator:\n  address: file-host:1111\n"), 0o600))
	t.Setenv("TIMELINE_COORDINATOR_ADDRESS", "env-host:2222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-host:2222", cfg.Coordinator.Address)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, Default().Collector.BufferSize, cfg.Collector.BufferSize)
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "bad log level",
			content: "log:\n  level: loud\n",
		},
		{
			name:    "bad coordinator address",
			content: "coordinator:\n  address: no-port\n",
		},
		{
			name:    "zero buffer size",
			content: "collector:\n  buffer_size: 0\n",
		},
		{
			name:    "negative report timeout",
			content: "coordinator:\n  report_timeout: -1s\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "notexist.yaml"))
	require.Error(t, err)
}
