// Package config loads pakaudio settings from YAML and PAKAUDIO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend selects the audio binding implementation.
const (
	BackendAuto   = "auto"
	BackendNative = "native"
	BackendInert  = "inert"
)

// EnvPrefix prefixes environment overrides, e.g. PAKAUDIO_BACKEND=inert.
const EnvPrefix = "PAKAUDIO"

// Config holds all configuration options.
type Config struct {
	Backend       string        `mapstructure:"backend"`
	AssetsDir     string        `mapstructure:"assets_dir"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	Gain          float64       `mapstructure:"gain"`
	Engine        EngineConfig  `mapstructure:"engine"`
	Packs         PacksConfig   `mapstructure:"packs"`
	Log           LogConfig     `mapstructure:"log"`
}

// EngineConfig names the clips played by the engine-side sources.
type EngineConfig struct {
	BGM string `mapstructure:"bgm"`
	SE  string `mapstructure:"se"`
}

// PacksConfig names the resource packs inside the asset dir.
type PacksConfig struct {
	BGM      string `mapstructure:"bgm"`
	SE       string `mapstructure:"se"`
	Password string `mapstructure:"password"` // for sealed packs without a key locker
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Backend:       BackendAuto,
		AssetsDir:     "assets",
		FrameInterval: 16 * time.Millisecond,
		Gain:          1.0,
		Engine: EngineConfig{
			BGM: "bgm_engine.ogg",
			SE:  "se1.wav",
		},
		Packs: PacksConfig{
			BGM: "bgm.pak",
			SE:  "se.pak",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks values that cannot be used as given.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendNative, BackendInert:
	default:
		return fmt.Errorf("backend %q: must be auto, native or inert", c.Backend)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame_interval must be positive, got %s", c.FrameInterval)
	}
	if c.Gain < 0 {
		return fmt.Errorf("gain must not be negative, got %v", c.Gain)
	}
	if c.Packs.BGM == "" || c.Packs.SE == "" {
		return errors.New("packs.bgm and packs.se are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("assets_dir", d.AssetsDir)
	v.SetDefault("frame_interval", d.FrameInterval)
	v.SetDefault("gain", d.Gain)
	v.SetDefault("engine.bgm", d.Engine.BGM)
	v.SetDefault("engine.se", d.Engine.SE)
	v.SetDefault("packs.bgm", d.Packs.BGM)
	v.SetDefault("packs.se", d.Packs.SE)
	v.SetDefault("packs.password", d.Packs.Password)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Load reads path, or pakaudio.yaml from the working directory or the user
// config dir when path is empty. A missing default file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pakaudio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pakaudio"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Resolve joins name onto the assets dir unless it is already absolute.
func (c Config) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.AssetsDir, name)
}

// DefaultConfigTemplate returns the default config as commented YAML.
func DefaultConfigTemplate() string {
	return `# pakaudio configuration

# Audio backend: auto (native when available), native, or inert
backend: auto

# Directory holding bgm.pak, se.pak and the engine clips
assets_dir: assets

# Frame interval of the demo loop
frame_interval: 16ms

# Master gain (linear)
gain: 1.0

engine:
  bgm: bgm_engine.ogg   # looping engine-side background track
  se: se1.wav           # engine-side sound effect

packs:
  bgm: bgm.pak
  se: se.pak
  # password: ""        # for sealed packs without a key locker

log:
  level: info           # debug, info, warn, error
  # file: pakaudio.log  # stderr when empty
`
}
