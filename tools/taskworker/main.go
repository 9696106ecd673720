// Command taskworker runs an external task worker described by an
// ExternalTaskClient manifest.
package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/version"
)

// envPrefix namespaces environment overrides, e.g. TASKWORKER_BASE_URL.
const envPrefix = "TASKWORKER"

// Flag names shared between commands and viper keys.
const (
	flagConfig      = "config"
	flagVerbose     = "verbose"
	flagMetricsAddr = "metrics-addr"
	flagDryRun      = "dry-run"
	flagBaseURL     = "base-url"
	flagWorkerID    = "worker-id"

	// env-only secrets
	keyBasicPassword      = "basic-password"
	keyOAuth2ClientSecret = "oauth2-client-secret"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "taskworker",
		Short:         "Run external task workers against a BPMN engine",
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		Long: `taskworker fetches and locks external tasks from the engine's REST API
for every topic listed in an ExternalTaskClient manifest.

Settings can be overridden with flags or TASKWORKER_* environment variables.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if v.GetBool(flagVerbose) {
				logger.SetVerbose(true)
			}
		},
	}
	root.SetVersionTemplate(version.GetVersionInfo() + "\n")

	root.PersistentFlags().StringP(flagConfig, "c", "worker.yaml", "ExternalTaskClient manifest path")
	root.PersistentFlags().BoolP(flagVerbose, "v", false, "Enable debug logging")
	_ = v.BindPFlag(flagConfig, root.PersistentFlags().Lookup(flagConfig))
	_ = v.BindPFlag(flagVerbose, root.PersistentFlags().Lookup(flagVerbose))

	root.AddCommand(newRunCmd(v), newValidateCmd(v), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
