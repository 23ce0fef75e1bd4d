package vypercrs

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ToolVersion is stamped into the WKT remarks of every CRS this package
// produces.
const ToolVersion = "0.2.5"

// Metadata is the provenance record carried by a valid vertical CRS and
// serialized only at the WKT boundary.
type Metadata struct {
	VDatumVersion string
	ToolVersion   string
	BaseDatum     []string
}

// CheckToolVersion verifies a parsed provenance version against the running
// tool. Versions from a different major release describe remarks this code
// may not read correctly.
func CheckToolVersion(version string) error {
	if version == "" {
		return nil
	}
	parsed, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("provenance version %q is not a semantic version: %w", version, err)
	}
	current := semver.MustParse(ToolVersion)
	if parsed.Major() != current.Major() {
		return fmt.Errorf("provenance written by tool version %s, this build is %s", version, ToolVersion)
	}
	return nil
}
