package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ehonhub/pkg/utils"
)

var (
	configPath string
	logLevel   string

	cfg    utils.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ehonhub",
	Short:         "Build and inspect the picture-book ranking",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = utils.LoadConfig(configPath); err != nil {
			return err
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		// console output for a terminal tool
		if logger, err = utils.NewLogger(level, "console"); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $EHONHUB_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
