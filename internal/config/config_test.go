package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hcm.yaml")
	writeFile(t, path, `modules:
  - modules
  - /opt/shared
workers: 4
output: out/config.yaml
select: depth == 1
logging:
  level: debug
  format: text
  loki:
    enabled: true
    url: http://loki:3100/loki/api/v1/push
    labels:
      app: hcm-test
telemetry:
  enabled: true
  metrics_file: metrics.prom
watch:
  interval: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "modules"), "/opt/shared"}, cfg.Modules)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, filepath.Join(dir, "out", "config.yaml"), cfg.Output)
	require.Equal(t, "depth == 1", cfg.Select)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.True(t, cfg.Logging.Loki.Enabled)
	require.Equal(t, "hcm-test", cfg.Logging.Loki.Labels["app"])
	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, filepath.Join(dir, "metrics.prom"), cfg.Telemetry.MetricsFile)
	require.Equal(t, 250*time.Millisecond, cfg.WatchInterval())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "watch:\n  interval: soon\n")
	_, err := Load(bad)
	require.Error(t, err)

	negative := filepath.Join(dir, "negative.yaml")
	writeFile(t, negative, "workers: -1\n")
	_, err = Load(negative)
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestWatchIntervalDefault(t *testing.T) {
	var cfg *Config
	require.Equal(t, time.Second, cfg.WatchInterval())
	require.Equal(t, time.Second, (&Config{}).WatchInterval())
}

func TestModuleDirs(t *testing.T) {
	root := t.TempDir()
	descriptor := "group: g\nproject: p\nmodule: m\n"
	writeFile(t, filepath.Join(root, "single", "hcm-module.yaml"), descriptor)
	writeFile(t, filepath.Join(root, "tree", "b", "hcm-module.yaml"), descriptor)
	writeFile(t, filepath.Join(root, "tree", "a", "hcm-module.yaml"), descriptor)

	cfg := &Config{Modules: []string{
		filepath.Join(root, "single"),
		filepath.Join(root, "tree"),
		filepath.Join(root, "tree", "a"),
		"",
	}}
	dirs, err := ModuleDirs(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "single"),
		filepath.Join(root, "tree", "a"),
		filepath.Join(root, "tree", "b"),
	}, dirs)

	dirs, err = ModuleDirs(nil)
	require.NoError(t, err)
	require.Empty(t, dirs)
}
