package common

import (
	"fmt"
	"regexp"
	"strings"
)

// Version is set via ldflags at build time: -ldflags "-X github.com/Alia5/featurec/internal/codegen/common.Version=x.y.z"
var Version = ""

// GetVersion returns the version string that was set at build time via ldflags.
// Returns "0.0.1-dev" if Version is empty (development builds only).
func GetVersion() (string, error) {
	if Version == "" {
		return "0.0.1-dev", nil
	}

	version := strings.TrimPrefix(Version, "v")
	baseVersion := strings.SplitN(version, "-", 2)[0]
	if !strings.Contains(baseVersion, ".") {
		return "", fmt.Errorf("invalid version format: %s (expected x.y.z)", Version)
	}

	return version, nil
}

var featureVersion = regexp.MustCompile(`^\d+\.\d+$`)

// ValidFeatureVersion reports whether v has the MAJOR.MINOR form features use.
func ValidFeatureVersion(v string) bool { return featureVersion.MatchString(v) }
