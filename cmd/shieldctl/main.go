// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the shieldctl CLI for managing scan models.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"llmshield/platform/models"
	"llmshield/platform/scanner"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "shieldctl",
		Short:   "LLM Shield CLI tool",
		Long:    `shieldctl manages the local model cache and runs ad-hoc prompt scans.`,
		Version: version,
	}

	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(scanCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// modelsCmd returns the models subcommand for catalog operations.
func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and prefetch models from a catalog",
	}

	cmd.AddCommand(modelsListCmd())
	cmd.AddCommand(modelsPullCmd())

	return cmd
}

func modelsListCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the models in a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := models.LoadRegistry(catalogPath)
			if err != nil {
				return err
			}

			for _, m := range reg.ListModels() {
				fmt.Printf("%-30s %-10s %s\n", m.Key(), m.Version, m.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "models.yaml", "path to the model catalog")
	return cmd
}

func modelsPullCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "pull [task/variant...]",
		Short: "Download and verify models into the local cache",
		Long: `Download catalog models into the local cache, verifying each against
its declared SHA-256. With no arguments, every model in the catalog is pulled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := models.LoadRegistry(catalogPath)
			if err != nil {
				return err
			}

			keys, err := resolveKeys(reg, args)
			if err != nil {
				return err
			}

			ctx := context.Background()
			for _, key := range keys {
				path, err := reg.EnsureAvailable(ctx, key)
				if err != nil {
					return fmt.Errorf("pull %s: %w", key, err)
				}
				fmt.Printf("%s -> %s\n", key, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "models.yaml", "path to the model catalog")
	return cmd
}

func resolveKeys(reg *models.Registry, args []string) ([]models.ModelKey, error) {
	if len(args) == 0 {
		all := reg.ListModels()
		keys := make([]models.ModelKey, len(all))
		for i, m := range all {
			keys[i] = m.Key()
		}
		return keys, nil
	}

	keys := make([]models.ModelKey, 0, len(args))
	for _, arg := range args {
		task, variant, ok := strings.Cut(arg, "/")
		if !ok || task == "" || variant == "" {
			return nil, fmt.Errorf("invalid model key %q, want task/variant", arg)
		}

		key := models.ModelKey{Task: models.ModelTask(task), Variant: models.ModelVariant(variant)}
		if !reg.HasModel(key) {
			return nil, fmt.Errorf("model %s not in catalog", key)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// scanCmd runs the heuristic prompt-injection scanner over one input.
func scanCmd() *cobra.Command {
	var threshold float32

	cmd := &cobra.Command{
		Use:   "scan <text>",
		Short: "Scan a prompt for injection attempts (heuristic)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := models.DisabledConfig()
			cfg.Threshold = threshold

			s, err := scanner.NewPromptInjection(cfg, nil, nil, nil)
			if err != nil {
				return err
			}

			res, err := s.Scan(context.Background(), args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if !res.Valid {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().Float32VarP(&threshold, "threshold", "t", 0.7, "detection threshold in [0,1]")
	return cmd
}
