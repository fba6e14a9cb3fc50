// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/bme280_exporter/internal/app"
	"github.com/relabs-tech/bme280_exporter/internal/config"
	"github.com/relabs-tech/bme280_exporter/internal/logging"
)

var (
	configPath string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:           "bme280_exporter",
	Short:         "Prometheus exporter for a BME280 environmental sensor",
	Long:          "Serves temperature, pressure and humidity from a BME280 on I2C or SPI. Every HTTP GET triggers one forced-mode measurement.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "./bme280_config.txt", "path to KEY=VALUE config file")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, overrides EXPORTER_LISTEN_ADDR")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.Get()
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", configPath).Msg("bme280_exporter starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunExporter(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("exporter failed")
		return err
	}

	logger.Info().Msg("bme280_exporter stopped")
	return nil
}
