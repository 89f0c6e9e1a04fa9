package main

import (
	"fmt"
	"os"
	"strings"

	"pakaudio/internal/container"
	"pakaudio/internal/packer"
	"pakaudio/internal/security"
	"pakaudio/pkg/audioengine"
	"pakaudio/pkg/spec"

	_ "pakaudio/internal/codec/opus"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const app_name = "sndpack"

var (
	flagList     string
	flagPassword string
	flagEncode   bool
	flagAnalyze  bool
)

var rootCmd = &cobra.Command{
	Use:          app_name,
	Short:        "Build and inspect resource packs",
	Version:      spec.Version,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build [dir out.pak]",
	Short: "Pack every file in dir into out.pak (asks interactively without arguments)",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("want dir and out.pak, or no arguments")
		}
		return nil
	},
	RunE: runBuild,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <pak>",
	Short: "List the entries of a pack",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	buildCmd.Flags().StringVar(&flagList, "list", "", "write the entry list here (default <out>.txt)")
	buildCmd.Flags().StringVar(&flagPassword, "password", "", "seal the pack with this password")
	buildCmd.Flags().BoolVar(&flagEncode, "encode", false, "encode WAV inputs to framed opus")
	inspectCmd.Flags().StringVar(&flagPassword, "password", "", "password for a sealed pack without a key locker")
	inspectCmd.Flags().BoolVar(&flagAnalyze, "analyze", false, "measure levels and flag clipping, silence padding and loop seams")
	rootCmd.AddCommand(buildCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	var dir, out string
	if len(args) == 2 {
		dir, out = args[0], args[1]
	} else {
		var err error
		if dir, out, err = runBuildInterview(); err != nil {
			return err
		}
	}

	list := flagList
	if list == "" {
		list = strings.TrimSuffix(out, spec.PackExt) + spec.PackListExt
	}
	opts := packer.Options{ListPath: list, Password: flagPassword}
	if flagEncode {
		opts.Encode = audioengine.EncodeWavToFrames
	}

	names, err := packer.Collect(dir)
	if err != nil {
		return err
	}
	fmt.Printf("\n[START] PACKING: %s (%d files)\n", out, len(names))
	bar := newPackProgress(os.Stdout, len(names))
	opts.Progress = func(done, total int, name string) { bar.entry(done, name) }

	if _, err := packer.Build(dir, out, opts); err != nil {
		fmt.Printf("[FAIL] %v\n", err)
		return err
	}
	if flagPassword != "" {
		fmt.Printf(" >> Key locker: %s\n", security.LockerPath(out))
	}
	fmt.Printf("[SUCCESS] Pack written: %s\n", out)
	return nil
}

func runBuildInterview() (string, string, error) {
	rl, err := readline.NewEx(&readline.Config{Prompt: ">> "})
	if err != nil {
		return "", "", err
	}
	defer rl.Close()

	fmt.Printf("\n%s version %s\n", app_name, spec.Version)
	dir := ask(rl, "1. Source folder", ".")
	out := ask(rl, "2. Output pack", "se"+spec.PackExt)
	if flagPassword == "" {
		flagPassword = ask(rl, "3. Password (empty = not sealed)", "")
	}
	return dir, out, nil
}

func ask(rl *readline.Instance, prompt, def string) string {
	rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, def))
	line, _ := rl.Readline()
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	p, err := container.OpenFile(path, true)
	if err != nil {
		return err
	}
	defer p.Close()

	if p.Sealed() {
		pass := flagPassword
		if pass == "" {
			if pass, err = security.UnlockKeyLocker(security.LockerPath(path)); err != nil {
				return fmt.Errorf("sealed pack: %w", err)
			}
		}
		p.Unseal(pass)
	}

	names, _ := packer.ReadList(strings.TrimSuffix(path, spec.PackExt) + spec.PackListExt)

	fmt.Printf("%s: %d entries, %d data bytes, sealed=%v\n", path, p.NumFiles(), p.DataSize(), p.Sealed())
	for _, info := range packer.Inspect(p, names, nil, flagAnalyze) {
		fmt.Printf("[%3d] %-24s %10d @%-10d %-12s", info.Index, info.Name, info.Size, info.Offset, info.Format)
		if info.Err != nil {
			fmt.Printf(" ERROR %v\n", info.Err)
			continue
		}
		fmt.Printf(" %8.2fs", info.Duration.Seconds())
		if l := info.Levels; l != nil {
			fmt.Printf(" peak=%6.1f rms=%6.1f dBFS", l.PeakDB, l.RMSDB)
			if l.Dominant > 0 {
				fmt.Printf(" ~%.0fHz", l.Dominant)
			}
			for _, w := range info.Warnings {
				fmt.Printf(" [!] %s", w)
			}
		}
		fmt.Println()
	}
	return nil
}
