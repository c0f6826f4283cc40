package contracts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/autumndb/autumndb/pkg/apperror"
)

// Version is the closed five-component grammar spec.md §3 fixes exactly:
// major.minor.patch with an optional dash-prerelease and plus-build
// suffix, the same shape semver uses but without semver's full
// comparison/range grammar. A general-purpose semver library (considered
// and rejected — see DESIGN.md) would impose precedence rules beyond
// this grammar; versionRE below is the whole of it.
type Version struct {
	Major, Minor, Patch int
	Prerelease, Build   string
}

// String renders the canonical "major.minor.patch[-prerelease][+build]" form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

var versionRE = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z.-]+))?(?:\+([0-9A-Za-z.-]+))?$`)

// ParseVersion parses a bare version string (no slug@ prefix). Missing
// minor/patch components default to 0, per spec.md §3 invariant (b).
func ParseVersion(s string) (Version, error) {
	m := versionRE.FindStringSubmatch(s)
	if m == nil {
		return Version{}, apperror.NewVersionInvalid(s)
	}
	major, _ := strconv.Atoi(m[1])
	minor, patch := 0, 0
	if m[2] != "" {
		minor, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return Version{Major: major, Minor: minor, Patch: patch, Prerelease: m[4], Build: m[5]}, nil
}

// VersionedSlug is the "slug@version" pair spec.md §3/§4 describe, plus
// whether the version token was the literal "latest" selector.
type VersionedSlug struct {
	Slug    string
	Version Version
	Latest  bool
}

var slugRE = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateSlug checks the lowercase-dashed, <=255-char slug grammar.
func ValidateSlug(slug string) error {
	if len(slug) == 0 || len(slug) > 255 || !slugRE.MatchString(slug) {
		return apperror.NewSlugInvalid(slug)
	}
	return nil
}

// ParseVersionedSlug parses "base@v" into its slug and version
// components. The token "latest" selects the highest non-pre-release
// version by (major,minor,patch,build) — see Store.GetBySlug.
func ParseVersionedSlug(s string) (VersionedSlug, error) {
	base, ver, ok := strings.Cut(s, "@")
	if !ok {
		return VersionedSlug{}, apperror.NewSlugInvalid(s)
	}
	if err := ValidateSlug(base); err != nil {
		return VersionedSlug{}, err
	}
	if ver == "latest" {
		return VersionedSlug{Slug: base, Latest: true}, nil
	}
	v, err := ParseVersion(ver)
	if err != nil {
		return VersionedSlug{}, err
	}
	return VersionedSlug{Slug: base, Version: v}, nil
}
