// Package platform picks the audio binding for this build and configuration.
package platform

import (
	"fmt"

	"pakaudio/internal/config"
	"pakaudio/internal/engine"
	"pakaudio/internal/log"
	"pakaudio/internal/plugin"
)

// Native reports whether this build can drive an audio device.
func Native() bool { return nativeAvailable }

// Open returns the backend selected by cfg.Backend. "native" fails on builds
// without audio support; "auto" falls back to the inert backend.
func Open(cfg config.Config) (plugin.Backend, error) {
	switch cfg.Backend {
	case config.BackendInert:
		log.Info(log.CatPlugin, "Using inert audio backend")
		return plugin.Inert{}, nil
	case config.BackendNative:
		if !nativeAvailable {
			return nil, fmt.Errorf("native audio backend not available in this build")
		}
	case config.BackendAuto:
		if !nativeAvailable {
			log.Info(log.CatPlugin, "Native audio not built in, using inert backend")
			return plugin.Inert{}, nil
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	param := engine.DefaultInitParam()
	return plugin.NewEngine(plugin.EngineOptions{
		Param:    param,
		NewSink:  newSink,
		Password: plugin.LockerPasswords(cfg.Packs.Password),
	}), nil
}
