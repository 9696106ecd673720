package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/TaskKit/pkg/config"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/task"
	"github.com/AltairaLabs/TaskKit/runtime/version"
	"github.com/AltairaLabs/TaskKit/sdk"
)

var errNoSubscriptions = errors.New("manifest has no subscriptions")

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch and handle tasks for every configured topic",
		Long: `Starts a worker for every subscription in the manifest. Each task's
variables are logged and the task is completed, or unlocked with --dry-run.
The worker stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), v)
		},
	}

	cmd.Flags().String(flagMetricsAddr, "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Bool(flagDryRun, false, "Unlock tasks instead of completing them")
	cmd.Flags().String(flagBaseURL, "", "Override the engine REST root")
	cmd.Flags().String(flagWorkerID, "", "Override the worker id")

	_ = v.BindPFlag(flagMetricsAddr, cmd.Flags().Lookup(flagMetricsAddr))
	_ = v.BindPFlag(flagDryRun, cmd.Flags().Lookup(flagDryRun))
	_ = v.BindPFlag(flagBaseURL, cmd.Flags().Lookup(flagBaseURL))
	_ = v.BindPFlag(flagWorkerID, cmd.Flags().Lookup(flagWorkerID))
	return cmd
}

func runWorker(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.LoadClientConfig(v.GetString(flagConfig))
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, v); err != nil {
		return err
	}
	if len(cfg.Spec.Subscriptions) == 0 {
		return errNoSubscriptions
	}

	opts, err := sdk.FromConfig(cfg)
	if err != nil {
		return err
	}
	client, err := sdk.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	// the manifest's logging section replaces the level set by --verbose
	if v.GetBool(flagVerbose) {
		logger.SetVerbose(true)
	}

	dryRun := v.GetBool(flagDryRun)
	if err := client.SubscribeConfig(cfg.Spec.Subscriptions, nil, logVariablesHandler(dryRun)); err != nil {
		_ = client.Stop(context.Background())
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Start(ctx); err != nil {
		_ = client.Stop(context.Background())
		return fmt.Errorf("failed to start worker: %w", err)
	}
	logger.Info("taskworker started", append(version.GetBuildInfo(),
		"worker_id", client.WorkerID(), "dry_run", dryRun)...)

	<-ctx.Done()
	logger.Info("taskworker stopping", "worker_id", client.WorkerID())
	return client.Stop(context.Background())
}

// applyOverrides folds flag and environment overrides into the manifest.
func applyOverrides(cfg *config.ClientConfig, v *viper.Viper) error {
	spec := &cfg.Spec
	if u := v.GetString(flagBaseURL); u != "" {
		spec.BaseURL = u
	}
	if id := v.GetString(flagWorkerID); id != "" {
		spec.WorkerID = id
	}
	if addr := v.GetString(flagMetricsAddr); addr != "" {
		spec.Metrics = &config.MetricsSpec{Enabled: true, Address: addr}
	}
	if pw := v.GetString(keyBasicPassword); pw != "" && spec.Auth != nil && spec.Auth.Basic != nil {
		spec.Auth.Basic.Password = pw
	}
	if secret := v.GetString(keyOAuth2ClientSecret); secret != "" && spec.Auth != nil && spec.Auth.OAuth2 != nil {
		spec.Auth.OAuth2.ClientSecret = secret
	}
	return spec.Validate()
}

// logVariablesHandler logs every variable of a task, then completes it, or
// unlocks it when dryRun is set.
func logVariablesHandler(dryRun bool) sdk.Handler {
	return func(ctx context.Context, t *task.ExternalTask, s *task.Service) {
		attrs := []any{"business_key", t.BusinessKey(), "activity_id", t.ActivityID()}
		for _, name := range t.VariableNames() {
			val, err := t.Variable(name)
			if err != nil {
				logger.WarnContext(ctx, "variable unavailable", "variable", name, "error", err)
				continue
			}
			attrs = append(attrs, "var."+name, val)
		}
		logger.InfoContext(ctx, "task variables", attrs...)

		if dryRun {
			_ = s.Unlock(ctx, t)
			return
		}
		_ = s.Complete(ctx, t, nil, nil)
	}
}
