package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func manifest(baseURL, extra string) string {
	return fmt.Sprintf(`apiVersion: taskkit.altairalabs.ai/v1alpha1
kind: ExternalTaskClient
metadata:
  name: echo-worker
spec:
  baseUrl: %s
  workerId: cli-worker
  maxTasks: 2
  asyncResponseTimeout: 0s
  shutdownTimeout: 1s
  backoff:
    initialInterval: 5ms
    maxInterval: 20ms
    multiplier: 2
%s  subscriptions:
    - topic: echo
      lockDuration: 30s
`, baseURL, extra)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command with args and returns its combined output.
func execute(ctx context.Context, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}
