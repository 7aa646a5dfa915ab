package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nano-rpc/config"
	"nano-rpc/logging"
)

var (
	cfgFile string
	v       = viper.New()

	rootCmd = &cobra.Command{
		Use:          "nanorpc",
		Short:        "Serve and call the nanorpc math demo protocol",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("development", false, "human readable logs")
	rootCmd.PersistentFlags().String("codec", "json", "frame codec: json or cbor")
	rootCmd.PersistentFlags().StringSlice("etcd", nil, "etcd endpoints for registration and discovery")
	rootCmd.PersistentFlags().String("service", "math", "name the server registers under")

	bindFlags(rootCmd, map[string]string{
		"log_level":      "log-level",
		"development":    "development",
		"codec":          "codec",
		"etcd_endpoints": "etcd",
		"service":        "service",
	})

	rootCmd.AddCommand(serveCmd, callCmd)
}

// bindFlags binds config keys to persistent or local flags of cmd.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

// setup loads the configuration and installs the global logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}
