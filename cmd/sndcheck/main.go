package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pakaudio/internal/config"
	"pakaudio/internal/engine"
	"pakaudio/internal/log"
	"pakaudio/internal/platform"
	"pakaudio/internal/plugin"
	"pakaudio/pkg/spec"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const (
	app_name    = "sndcheck"
	update_tick = 10 * time.Millisecond
)

var (
	cfgFile string
	assets  string
)

var rootCmd = &cobra.Command{
	Use:          app_name,
	Short:        "Interactive engine check: plays the BGM pack and fires sound effects on demand",
	Version:      spec.Version,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./pakaudio.yaml)")
	rootCmd.Flags().StringVar(&assets, "assets", "", "asset directory (overrides assets_dir)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if assets != "" {
		cfg.AssetsDir = assets
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	param := engine.DefaultInitParam()
	param.WaitTime = update_tick
	sink, err := platform.NewSink(param)
	if err != nil {
		return err
	}
	ectx := engine.Initialize(param, sink, nil)
	defer ectx.Terminate()
	ectx.SetPasswordSource(plugin.LockerPasswords(cfg.Packs.Password))
	ectx.SetGain(cfg.Gain)

	if _, err := ectx.LoadResourcePack(0, cfg.Resolve(cfg.Packs.BGM), true); err != nil {
		fmt.Printf("[FAIL] %v\n", err)
	}
	if _, err := ectx.LoadResourcePack(1, cfg.Resolve(cfg.Packs.SE), false); err != nil {
		fmt.Printf("[FAIL] %v\n", err)
	}

	bgm, err := ectx.CreateUserPlayer(0, 0)
	if err != nil {
		fmt.Printf("[FAIL] BGM: %v\n", err)
	} else if err := bgm.Play(); err != nil {
		fmt.Printf("[FAIL] BGM: %v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ectx.Run(ctx)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">> ",
		HistoryFile:     filepath.Join(os.TempDir(), "."+app_name+"_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "e",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("\n%s version %s\n", app_name, spec.Version)
	fmt.Println(" [p] pause/resume | [c] play se | [g <gain>] master gain | [s] stats | [e] exit")

	paused := false
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "p":
			paused = !paused
			ectx.SetPause(paused)
			fmt.Printf(" >> paused=%v\n", paused)
		case "c":
			if err := ectx.Play(1, 0, 0.5); err != nil {
				fmt.Printf("[FAIL] %v\n", err)
			}
		case "g":
			if len(fields) != 2 {
				fmt.Println(" usage: g <gain>")
				continue
			}
			g, err := strconv.ParseFloat(fields[1], 64)
			if err != nil || g < 0 {
				fmt.Printf(" bad gain %q\n", fields[1])
				continue
			}
			ectx.SetGain(g)
			fmt.Printf(" >> gain=%.2f\n", g)
		case "s":
			st := ectx.Stats()
			fmt.Printf(" >> packs=%d queued=%d active=%d players=%d user=%d paused=%v gain=%.2f\n",
				st.Packs, st.Queued, st.Active, st.Players, st.UserPlayers, st.Paused, st.Gain)
			if bgm != nil {
				fmt.Printf(" >> bgm=%s\n", bgm.State())
			}
		case "e", "q":
			ectx.DestroyUserPlayer(bgm)
			return nil
		default:
			fmt.Printf(" unknown command %q\n", fields[0])
		}
	}
	ectx.DestroyUserPlayer(bgm)
	return nil
}
