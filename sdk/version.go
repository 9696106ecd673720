package sdk

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// validateSemanticVersion validates that a version string follows semantic versioning 2.0.0.
// It accepts versions with or without a 'v' prefix (e.g., "1.0.0" or "v1.0.0").
func validateSemanticVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version cannot be empty")
	}

	version = strings.TrimPrefix(version, "v")

	// StrictNewVersion rejects partial versions such as "1.0"
	_, err := semver.StrictNewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid semantic version: %w", err)
	}

	return nil
}
