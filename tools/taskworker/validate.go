package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/TaskKit/pkg/config"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate an ExternalTaskClient manifest",
		Long: `Validates a manifest against its JSON schema, then checks the values the
schema cannot express (URLs, backoff bounds, duplicate topics, ledger settings).

Examples:
  taskworker validate -c worker.yaml
  taskworker validate deploy/billing.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString(flagConfig)
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := config.LoadClientConfig(path)
			if err != nil {
				return err
			}
			printSummary(cmd, path, cfg)
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, path string, cfg *config.ClientConfig) {
	out := cmd.OutOrStdout()
	spec := cfg.Spec
	fmt.Fprintf(out, "%s is valid\n", filepath.Base(path))
	if cfg.Metadata.Name != "" {
		fmt.Fprintf(out, "  name:     %s\n", cfg.Metadata.Name)
	}
	fmt.Fprintf(out, "  engine:   %s\n", spec.BaseURL)
	fmt.Fprintf(out, "  ledger:   %s\n", spec.Ledger.Type)
	fmt.Fprintf(out, "  maxTasks: %d (handlers: %d)\n", spec.MaxTasks, spec.MaxConcurrentHandlers)
	for _, sub := range spec.Subscriptions {
		lock := sub.LockDuration
		if lock == 0 {
			lock = spec.LockDuration
		}
		fmt.Fprintf(out, "  topic:    %s (lock %s)\n", sub.Topic, lock)
	}
}
