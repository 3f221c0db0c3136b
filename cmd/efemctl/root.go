package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/efemlink"
	"github.com/arloliu/go-efem/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "efemctl",
	Short:        "Command-line tester for EFEM controllers",
	Long:         `efemctl talks to a wafer-handling equipment front-end over its line-oriented TCP protocol: single commands, command scripts, and the automated transfer recipe with its recovery variant.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./efemctl.yaml)")
	rootCmd.PersistentFlags().String("host", "192.168.1.1", "EFEM controller host")
	rootCmd.PersistentFlags().Int("port", 6000, "EFEM controller TCP port")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("efemctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("EFEM")
	viper.AutomaticEnv()

	// missing config file is fine, flags and env carry the defaults
	_ = viper.ReadInConfig()

	switch viper.GetString("log_level") {
	case "debug":
		logger.GetLogger().SetLevel(logger.DebugLevel)
	case "warn":
		logger.GetLogger().SetLevel(logger.WarnLevel)
	case "error":
		logger.GetLogger().SetLevel(logger.ErrorLevel)
	default:
		logger.GetLogger().SetLevel(logger.InfoLevel)
	}
}

// runContext returns a context cancelled by SIGINT/SIGTERM so a stuck run
// can be stopped from the terminal.
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openLink dials the configured controller with the given notifier attached.
func openLink(ctx context.Context, notifier efem.Notifier, opts ...efemlink.ConnOption) (*efemlink.Connection, error) {
	opts = append([]efemlink.ConnOption{efemlink.WithNotifier(notifier)}, opts...)

	cfg, err := efemlink.NewConnectionConfig(
		viper.GetString("host"),
		viper.GetInt("port"),
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	conn, err := efemlink.NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := conn.Open(); err != nil {
		return nil, err
	}

	return conn, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
