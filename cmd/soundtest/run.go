package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pakaudio/internal/config"
	"pakaudio/internal/engine"
	"pakaudio/internal/log"
	"pakaudio/internal/platform"
	"pakaudio/internal/plugin"
	"pakaudio/internal/soundtest"
	"pakaudio/internal/source"
	"pakaudio/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	flagAssets   string
	flagBackend  string
	flagHeadless bool
	flagDuration time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sound test scene",
	Args:  cobra.NoArgs,
	RunE:  runScene,
}

func init() {
	runCmd.Flags().StringVar(&flagAssets, "assets", "", "asset directory (overrides assets_dir)")
	runCmd.Flags().StringVar(&flagBackend, "backend", "", "audio backend: auto, native or inert")
	runCmd.Flags().BoolVar(&flagHeadless, "headless", false, "run without the terminal UI")
	runCmd.Flags().DurationVar(&flagDuration, "duration", 10*time.Second, "headless run time")
	rootCmd.AddCommand(runCmd)
}

func runScene(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("assets") {
		cfg.AssetsDir = flagAssets
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend = flagBackend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLogging(cfg, !flagHeadless); err != nil {
		return err
	}

	backend, err := platform.Open(cfg)
	if err != nil {
		return err
	}
	bgm, se := openSources(backend, cfg)

	d := soundtest.New(backend, plugin.DirAssets(cfg.AssetsDir), bgm, se, soundtest.Options{
		BGMPack: cfg.Packs.BGM,
		SEPack:  cfg.Packs.SE,
	})
	d.Start()
	if e, ok := backend.(*plugin.Engine); ok && e.Context() != nil {
		e.Context().SetGain(cfg.Gain)
	}

	if flagHeadless {
		return runHeadless(d, cfg.FrameInterval, flagDuration)
	}

	p := tea.NewProgram(ui.New(d, cfg.FrameInterval), tea.WithAltScreen(), tea.WithReportFocus())
	final, err := p.Run()
	if m, ok := final.(ui.Model); !ok || !m.Done() {
		d.OnDestroy()
	}
	return err
}

// setupLogging applies the log config. While the TUI owns the terminal,
// output is dropped unless a log file is set.
func setupLogging(c config.Config, tui bool) error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	switch {
	case c.Log.File != "":
		return log.OpenFile(c.Log.File)
	case tui:
		log.SetOutput(nil)
	default:
		log.SetOutput(os.Stderr)
	}
	return nil
}

// openSources builds the engine-side sources. Without a native backend there
// is nothing to play them on.
func openSources(backend plugin.Backend, c config.Config) (soundtest.AudioSource, soundtest.OneShotSource) {
	if _, ok := backend.(*plugin.Engine); !ok {
		return nil, nil
	}
	sink, err := platform.NewSink(engine.DefaultInitParam())
	if err != nil {
		log.ErrorErr(log.CatDriver, "No output for engine sources", err)
		return nil, nil
	}

	var bgm soundtest.AudioSource
	var se soundtest.OneShotSource
	if clip, err := source.LoadClipFile(c.Resolve(c.Engine.BGM), nil, sink.SampleRate()); err != nil {
		log.ErrorErr(log.CatDriver, "Failed to load engine BGM", err, "file", c.Engine.BGM)
	} else {
		s := source.New(sink, clip)
		s.SetVolume(c.Gain)
		bgm = s
	}
	if clip, err := source.LoadClipFile(c.Resolve(c.Engine.SE), nil, sink.SampleRate()); err != nil {
		log.ErrorErr(log.CatDriver, "Failed to load engine SE", err, "file", c.Engine.SE)
	} else {
		s := source.New(sink, clip)
		s.SetVolume(c.Gain)
		se = s
	}
	return bgm, se
}

func runHeadless(d *soundtest.Driver, interval, duration time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	fmt.Printf("[START] %s headless for %s\n", app_name, duration)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			before := d.Triggers()
			d.Update(interval.Seconds())
			d.LateUpdate()
			if d.Triggers() != before {
				fmt.Printf(" >> lane %d fired (t=%.2f)\n", d.Lane(), d.Time())
			}
		}
	}

	d.OnDestroy()
	fmt.Printf("[DONE] %d triggers\n", d.Triggers())
	return nil
}
