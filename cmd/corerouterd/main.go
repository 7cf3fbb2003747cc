// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Command corerouterd is the long-running daemon: it loads a deployment
// YAML, wires C1-C8 through pkg/service, starts the maintenance
// sweeper, and blocks until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bootconfig "github.com/teradata-labs/corerouter/internal/config"
	"github.com/teradata-labs/corerouter/internal/log"
	"github.com/teradata-labs/corerouter/pkg/config"
	"github.com/teradata-labs/corerouter/pkg/service"
)

var (
	cfgFile string
	dataDir string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "corerouterd",
	Short: "corerouterd runs the adaptive inference router and conversation runtime",
	Long: `corerouterd is the long-running daemon for the multi-tenant LLM
serving core: it classifies queries by complexity, routes them across
tiered local models under GPU-memory and concurrency budgets, fails
over to a fixed provider chain on total tier exhaustion, and persists
conversation context with pruning and TTL refresh.

Press Ctrl+C to shut down; the maintenance sweeper is given a grace
period to finish a sweep already in progress.`,
	PersistentPreRun: bindRuntime,
	RunE:             runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the deployment YAML (required)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "base directory for relative paths in the deployment YAML (default $COREROUTER_DATA_DIR or ~/.corerouter)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "run with development-mode (unsampled, human-readable) logging")
}

// bindRuntime applies --data-dir/--debug to the process-wide bootstrap
// runtime before config.Load resolves any relative paths against it.
func bindRuntime(cmd *cobra.Command, args []string) {
	rt := bootconfig.Get()
	if dataDir != "" {
		rt.SetDataDir(dataDir)
	}
	rt.SetDebug(debug)
	if debug {
		if l, err := zap.NewDevelopment(); err == nil {
			log.SetLogger(l)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("corerouterd: --config is required")
	}

	d, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, err := service.Build(ctx, d)
	if err != nil {
		return fmt.Errorf("corerouterd: build service: %w", err)
	}

	if err := svc.StartMaintenance(ctx); err != nil {
		return fmt.Errorf("corerouterd: start maintenance sweeper: %w", err)
	}

	logger := log.Named("corerouterd")
	logger.Info("corerouterd started", zap.String("deployment", d.Metadata.Name))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc.StopMaintenance(shutdownCtx)

	return nil
}
