// Package semver implements the semantic version bumping used for dataset
// versions. Versions are plain "MAJOR.MINOR.PATCH" triples; no pre-release
// or build metadata is supported.
package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a version string does not parse as
// three dot-separated non-negative integers.
var ErrInvalidVersion = errors.New("invalid semantic version")

// Bump selects which component of a version is incremented.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
)

// Baseline is the virtual version a dataset has before its first real
// version is created.
const Baseline = "0.0.0"

// NormalizeBump maps an arbitrary bump string to a known Bump, falling back
// to patch for anything unrecognized.
func NormalizeBump(s string) Bump {
	switch Bump(s) {
	case BumpMajor, BumpMinor, BumpPatch:
		return Bump(s)
	default:
		return BumpPatch
	}
}

// Parse splits a version string into its three integer components.
func Parse(version string) (major, minor, patch int, err error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// Increment returns the next version for the given bump kind.
//
// The baseline "0.0.0" always yields "1.0.0" regardless of the bump kind:
// the first real version of a dataset is 1.0.0.
func Increment(version string, bump Bump) (string, error) {
	if version == Baseline {
		return "1.0.0", nil
	}

	major, minor, patch, err := Parse(version)
	if err != nil {
		return "", err
	}

	switch bump {
	case BumpMajor:
		return fmt.Sprintf("%d.0.0", major+1), nil
	case BumpMinor:
		return fmt.Sprintf("%d.%d.0", major, minor+1), nil
	default:
		return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
	}
}
