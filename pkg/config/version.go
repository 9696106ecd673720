package config

// Version constants for TaskKit manifests.
const (
	// APIVersion is the Kubernetes-style API version for TaskKit configs
	APIVersion = "taskkit.altairalabs.ai/v1alpha1"

	// SchemaVersion is the version string used in schema paths
	SchemaVersion = "v1alpha1"
)
