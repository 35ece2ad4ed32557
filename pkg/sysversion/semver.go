package sysversion

import (
	"regexp"
	"strconv"
)

// Semver is a parsed, comparable version: major.minor.patch plus an
// optional pre-release/build suffix that participates in equality but not
// in ordering.
type Semver struct {
	Major, Minor, Patch int
	Pre                 string
}

var semverPattern = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:[-+](.+))?$`)

// ParseSemver tolerates a leading "v", a pre-release or build suffix
// introduced by "-" or "+", and one- or two-segment versions (missing
// segments are padded with zeros).
func ParseSemver(s string) (Semver, bool) {
	m := semverPattern.FindStringSubmatch(s)
	if m == nil {
		return Semver{}, false
	}
	major, _ := strconv.Atoi(m[1])
	minor := 0
	if m[2] != "" {
		minor, _ = strconv.Atoi(m[2])
	}
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return Semver{Major: major, Minor: minor, Patch: patch, Pre: m[4]}, true
}

// Diff classifies how `current` differs from `upstream`: "major", "minor",
// "patch", "same", or "unknown" when either side fails to parse.
func Diff(current, upstream string) string {
	c, ok1 := ParseSemver(current)
	u, ok2 := ParseSemver(upstream)
	if !ok1 || !ok2 {
		return "unknown"
	}
	switch {
	case u.Major > c.Major:
		return "major"
	case u.Major < c.Major:
		return "same"
	case u.Minor > c.Minor:
		return "minor"
	case u.Minor < c.Minor:
		return "same"
	case u.Patch > c.Patch:
		return "patch"
	case u.Patch < c.Patch:
		return "same"
	case u.Pre != c.Pre:
		return "patch"
	default:
		return "same"
	}
}
