package main

import (
	"fmt"
	"os"

	"pakaudio/internal/config"
	"pakaudio/internal/log"
	"pakaudio/pkg/spec"

	"github.com/spf13/cobra"
)

const app_name = "soundtest"

var (
	cfgFile  string
	cfg      config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     app_name,
	Short:   "Sound test scene for pack-based audio",
	Long:    `Plays two background tracks (a streamed user player and an engine-side clip) and fires a sound effect on alternating lanes every two seconds.`,
	Version: spec.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		return nil
	},
	SilenceUsage: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print a default configuration file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(config.DefaultConfigTemplate())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./pakaudio.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.AddCommand(configCmd)
}

func main() {
	err := rootCmd.Execute()
	log.Close()
	if err != nil {
		os.Exit(1)
	}
}
