package db

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed server version.
type Version struct {
	Major int
	Minor int
	Patch int
}

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)+|\d+`)

// ParseVersion extracts the first run of dot separated integers from a free
// form version string such as "PostgreSQL 15.7 (Debian 15.7-1)".
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindString(s)
	if m == "" {
		return Version{}, fmt.Errorf("no version number in %q", s)
	}
	var v Version
	parts := strings.Split(m, ".")
	fields := []*int{&v.Major, &v.Minor, &v.Patch}
	for i := 0; i < len(parts) && i < len(fields); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return Version{}, fmt.Errorf("invalid version component %q: %w", parts[i], err)
		}
		*fields[i] = n
	}
	return v, nil
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return sign(v.Major - o.Major)
	case v.Minor != o.Minor:
		return sign(v.Minor - o.Minor)
	default:
		return sign(v.Patch - o.Patch)
	}
}

// AtLeast reports whether v >= major.minor.patch.
func (v Version) AtLeast(major, minor, patch int) bool {
	return v.Compare(Version{Major: major, Minor: minor, Patch: patch}) >= 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
