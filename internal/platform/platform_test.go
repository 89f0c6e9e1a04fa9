package platform

import (
	"testing"

	"pakaudio/internal/config"
	"pakaudio/internal/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInert(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend = config.BackendInert
	b, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, plugin.Inert{}, b)
}

func TestOpenAuto(t *testing.T) {
	b, err := Open(config.Defaults())
	require.NoError(t, err)
	if Native() {
		assert.IsType(t, &plugin.Engine{}, b)
	} else {
		assert.IsType(t, plugin.Inert{}, b)
	}
}

func TestOpenNative(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend = config.BackendNative
	b, err := Open(cfg)
	if !Native() {
		require.Error(t, err)
		return
	}
	require.NoError(t, err)
	assert.IsType(t, &plugin.Engine{}, b)
}

func TestOpenUnknown(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend = "loud"
	_, err := Open(cfg)
	require.Error(t, err)
}
