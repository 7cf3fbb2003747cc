// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Command coreroutectl is the one-shot admin CLI: each subcommand loads
// the same deployment YAML corerouterd runs against, builds the same
// wiring, performs a single operation against the shared durable
// backends (Redis context store, GPU-resident model state reported by
// the lifecycle manager), and exits. There is no separate RPC channel
// to a running daemon: the transport layer connecting the two is out
// of scope (SPEC_FULL.md §1's Non-goals), so coreroutectl and
// corerouterd cooperate only through the state they both read and
// write.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	bootconfig "github.com/teradata-labs/corerouter/internal/config"
	"github.com/teradata-labs/corerouter/pkg/config"
	"github.com/teradata-labs/corerouter/pkg/service"
	"github.com/teradata-labs/corerouter/pkg/types"
)

var (
	cfgFile string
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "coreroutectl",
	Short: "coreroutectl is the admin CLI for a corerouter deployment",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dataDir != "" {
			bootconfig.Get().SetDataDir(dataDir)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the deployment YAML (required)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "base directory for relative paths in the deployment YAML (default $COREROUTER_DATA_DIR or ~/.corerouter)")
	rootCmd.AddCommand(loadCmd, unloadCmd, optimizeMemoryCmd, metricsCmd, routeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildService(ctx context.Context) (*service.Service, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("coreroutectl: --config is required")
	}
	d, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return service.Build(ctx, d)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var loadCmd = &cobra.Command{
	Use:   "load <tier>",
	Short: "Force a tier's model resident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := buildService(ctx)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		loaded, err := svc.LoadModel(ctx, types.Tier(args[0]), force)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"tier": args[0], "loaded": loaded})
	},
}

var unloadCmd = &cobra.Command{
	Use:   "unload <tier>",
	Short: "Release a tier's resident model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := buildService(ctx)
		if err != nil {
			return err
		}
		unloaded, err := svc.UnloadModel(ctx, types.Tier(args[0]))
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"tier": args[0], "unloaded": unloaded})
	},
}

var optimizeMemoryCmd = &cobra.Command{
	Use:   "optimize-memory",
	Short: "Run the idle-model eviction sweep immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := buildService(ctx)
		if err != nil {
			return err
		}
		result, err := svc.OptimizeMemoryNow(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the current model, failover and context-store metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := buildService(ctx)
		if err != nil {
			return err
		}
		return printJSON(svc.Metrics(ctx))
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <query>",
	Short: "Show the tier a query would route to, without generating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := buildService(ctx)
		if err != nil {
			return err
		}
		convID, _ := cmd.Flags().GetString("conversation")
		decision, err := svc.RouteOnly(ctx, args[0], convID)
		if err != nil {
			return err
		}
		return printJSON(decision)
	},
}

func init() {
	loadCmd.Flags().Bool("force", false, "reload the model even if it is already loaded")
	routeCmd.Flags().String("conversation", "coreroutectl-preview", "conversation ID to evaluate context against")
}
