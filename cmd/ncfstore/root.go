package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/ncfstore/internal/config"
	"github.com/vegasq/ncfstore/internal/logger"
)

// app carries state shared by subcommands once flags have been parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ncfstore",
		Short: "Columnar event store and query tool",
		Long: `ncfstore stores user events in NCF, a simple columnar file format, and
runs filter/sort/aggregate queries over NCF, Parquet and JSON Lines data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	root.AddCommand(
		newQueryCmd(a),
		newSchemaCmd(a),
		newConvertCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := logger.Init(cfg.Logger()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.log = logger.Get()
	return nil
}
