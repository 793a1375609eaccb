package util

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	npm "github.com/aquasecurity/go-npm-version/pkg"
	pep440 "github.com/aquasecurity/go-pep440-version"

	"github.com/fleetscan/fleetscan-backend/model"
)

// IsVersionAffectedAny checks if a version falls inside any of the provided
// affected ranges. Ecosystem may be empty; it only selects the preferred
// version parser (npm and pypi versions are not valid semver).
func IsVersionAffectedAny(version string, ranges []model.AffectedRange, ecosystem string) bool {
	for _, r := range ranges {
		if IsVersionAffected(version, r, ecosystem) {
			return true
		}
	}
	return false
}

// IsVersionAffected checks a single range. A range with no boundaries at
// all never matches (incomplete data must not produce false positives).
// Parsers are tried in order: the ecosystem-specific one when known, then
// semver, PEP 440 and npm; plain string comparison is the last resort.
func IsVersionAffected(version string, r model.AffectedRange, ecosystem string) bool {
	if version == "" || r.IsEmpty() {
		return false
	}

	switch strings.ToLower(ecosystem) {
	case "npm":
		if in, ok := npmInRange(version, r); ok {
			return in
		}
	case "pypi":
		if in, ok := pep440InRange(version, r); ok {
			return in
		}
	}

	if in, ok := semverInRange(version, r); ok {
		return in
	}
	if in, ok := pep440InRange(version, r); ok {
		return in
	}
	if in, ok := npmInRange(version, r); ok {
		return in
	}
	return stringInRange(version, r)
}

// semverInRange returns (inRange, parsed). parsed is false when the version
// or any present boundary is not valid semver, so the caller can try the
// next scheme.
func semverInRange(version string, r model.AffectedRange) (bool, bool) {
	// Strip "go" prefix for Go stdlib versions (e.g. "go1.22.2");
	// Masterminds/semver doesn't handle it
	v, err := semver.NewVersion(strings.TrimPrefix(version, "go"))
	if err != nil {
		return false, false
	}

	if r.StartIncluding != "" {
		b, err := semver.NewVersion(r.StartIncluding)
		if err != nil {
			return false, false
		}
		if v.LessThan(b) {
			return false, true
		}
	}
	if r.StartExcluding != "" {
		b, err := semver.NewVersion(r.StartExcluding)
		if err != nil {
			return false, false
		}
		if !v.GreaterThan(b) {
			return false, true
		}
	}
	if r.EndIncluding != "" {
		b, err := semver.NewVersion(r.EndIncluding)
		if err != nil {
			return false, false
		}
		if v.GreaterThan(b) {
			return false, true
		}
	}
	if r.EndExcluding != "" {
		b, err := semver.NewVersion(r.EndExcluding)
		if err != nil {
			return false, false
		}
		if !v.LessThan(b) {
			return false, true
		}
	}
	return true, true
}

func pep440InRange(version string, r model.AffectedRange) (bool, bool) {
	v, err := pep440.Parse(version)
	if err != nil {
		return false, false
	}

	if r.StartIncluding != "" {
		b, err := pep440.Parse(r.StartIncluding)
		if err != nil {
			return false, false
		}
		if v.LessThan(b) {
			return false, true
		}
	}
	if r.StartExcluding != "" {
		b, err := pep440.Parse(r.StartExcluding)
		if err != nil {
			return false, false
		}
		if !v.GreaterThan(b) {
			return false, true
		}
	}
	if r.EndIncluding != "" {
		b, err := pep440.Parse(r.EndIncluding)
		if err != nil {
			return false, false
		}
		if v.GreaterThan(b) {
			return false, true
		}
	}
	if r.EndExcluding != "" {
		b, err := pep440.Parse(r.EndExcluding)
		if err != nil {
			return false, false
		}
		if !v.LessThan(b) {
			return false, true
		}
	}
	return true, true
}

func npmInRange(version string, r model.AffectedRange) (bool, bool) {
	v, err := npm.NewVersion(version)
	if err != nil {
		return false, false
	}

	if r.StartIncluding != "" {
		b, err := npm.NewVersion(r.StartIncluding)
		if err != nil {
			return false, false
		}
		if v.LessThan(b) {
			return false, true
		}
	}
	if r.StartExcluding != "" {
		b, err := npm.NewVersion(r.StartExcluding)
		if err != nil {
			return false, false
		}
		if !v.GreaterThan(b) {
			return false, true
		}
	}
	if r.EndIncluding != "" {
		b, err := npm.NewVersion(r.EndIncluding)
		if err != nil {
			return false, false
		}
		if v.GreaterThan(b) {
			return false, true
		}
	}
	if r.EndExcluding != "" {
		b, err := npm.NewVersion(r.EndExcluding)
		if err != nil {
			return false, false
		}
		if !v.LessThan(b) {
			return false, true
		}
	}
	return true, true
}

// stringInRange performs lexicographic comparison as the final fallback for
// versions no parser understands.
func stringInRange(version string, r model.AffectedRange) bool {
	if r.StartIncluding != "" && version < r.StartIncluding {
		return false
	}
	if r.StartExcluding != "" && version <= r.StartExcluding {
		return false
	}
	if r.EndIncluding != "" && version > r.EndIncluding {
		return false
	}
	if r.EndExcluding != "" && version >= r.EndExcluding {
		return false
	}
	return true
}
