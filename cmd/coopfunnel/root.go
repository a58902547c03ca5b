package main

import (
	"fmt"
	"os"

	"github.com/metalagman/coopfunnel/internal/config"
	"github.com/metalagman/coopfunnel/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
	debug   bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "coopfunnel",
		Short:         "coopfunnel screens delivery-worker candidates over WhatsApp",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			logging.Init(debug)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ./config.yaml when present)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(scoreCmd())
	cmd.AddCommand(leadsCmd())
	cmd.AddCommand(historyCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Log.Debug && !debug {
		logging.Init(true)
	}
	return cfg, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
