package driver

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// normalizeVersion turns a bare MAJOR.MINOR.PATCH[-pre] string, the form
// replace_me's since/remove_in arguments use, into the "v"-prefixed form
// golang.org/x/mod/semver requires. A version missing MINOR or PATCH is
// padded with zeros, since spec.md's since/remove_in fields are free-form
// string literals and not guaranteed to be three-component.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	parts := strings.SplitN(strings.TrimPrefix(v, "v"), "-", 2)
	nums := strings.Split(parts[0], ".")
	for len(nums) < 3 {
		nums = append(nums, "0")
	}
	out := "v" + strings.Join(nums, ".")
	if len(parts) == 2 {
		out += "-" + parts[1]
	}
	return out
}

// compareVersions orders two dotted-numeric version strings, pre-release
// suffixes compared lexicographically after the numeric tuple, per
// spec.md §4.5. Returns -1, 0, or 1 like strings.Compare. An unparsable
// version sorts before every well-formed one, so a malformed since/remove_in
// value never silently wins a cleanup-boundary comparison.
func compareVersions(a, b string) int {
	na, nb := normalizeVersion(a), normalizeVersion(b)
	validA, validB := semver.IsValid(na), semver.IsValid(nb)
	switch {
	case !validA && !validB:
		return strings.Compare(a, b)
	case !validA:
		return -1
	case !validB:
		return 1
	}
	return semver.Compare(na, nb)
}

// versionLess reports whether a < b under compareVersions.
func versionLess(a, b string) bool { return compareVersions(a, b) < 0 }

// versionAtMost reports whether a <= b under compareVersions.
func versionAtMost(a, b string) bool { return compareVersions(a, b) <= 0 }

// shouldCleanup decides, for one collected construct's since/removeIn
// fields, whether cleanup mode removes it under the selected boundary
// mode, per spec.md §4.5: --all removes unconditionally, --before removes
// when since < boundary, --current-version removes when remove_in <=
// boundary.
func shouldCleanup(cfg *Config, since, removeIn string) (bool, error) {
	switch {
	case cfg.All:
		return true, nil
	case cfg.Before != "":
		if since == "" {
			return false, nil
		}
		return versionLess(since, cfg.Before), nil
	case cfg.CurrentVersion != "":
		if removeIn == "" {
			return false, nil
		}
		return versionAtMost(removeIn, cfg.CurrentVersion), nil
	default:
		return false, fmt.Errorf("driver: cleanup requires --all, --before, or --current-version")
	}
}
