package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pakaudio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendAuto, cfg.Backend)
	assert.Equal(t, 16*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, "bgm.pak", cfg.Packs.BGM)
	assert.Equal(t, "se.pak", cfg.Packs.SE)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
backend: inert
assets_dir: /srv/assets
frame_interval: 33ms
gain: 0.5
packs:
  password: hunter2
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendInert, cfg.Backend)
	assert.Equal(t, "/srv/assets", cfg.AssetsDir)
	assert.Equal(t, 33*time.Millisecond, cfg.FrameInterval)
	assert.InDelta(t, 0.5, cfg.Gain, 1e-9)
	assert.Equal(t, "hunter2", cfg.Packs.Password)
	assert.Equal(t, "bgm.pak", cfg.Packs.BGM, "unset keys keep defaults")
	assert.Equal(t, "se1.wav", cfg.Engine.SE)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join("/srv/assets", "se.pak"), cfg.Resolve(cfg.Packs.SE))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PAKAUDIO_BACKEND", "native")
	t.Setenv("PAKAUDIO_LOG_LEVEL", "warn")
	cfg, err := Load(writeConfig(t, "backend: inert\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendNative, cfg.Backend)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "backend: loud\n"))
	require.ErrorContains(t, err, "backend")

	_, err = Load(writeConfig(t, "frame_interval: 0s\n"))
	require.ErrorContains(t, err, "frame_interval")
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Gain = -1
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Packs.SE = ""
	require.Error(t, cfg.Validate())
}

func TestTemplateParses(t *testing.T) {
	cfg, err := Load(writeConfig(t, DefaultConfigTemplate()))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}
