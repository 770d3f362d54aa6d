// Package advisory loads OSV-style vulnerability records and matches them
// against package versions. Records arrive as JSON documents, one per file,
// validated against an embedded schema subset before ingest.
package advisory

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Record is one vulnerability flattened to a single affected package. An OSV
// document listing several affected packages expands into several records.
type Record struct {
	ID        string   `json:"id"`
	Summary   string   `json:"summary,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`
	Package   string   `json:"package"`
	Ecosystem string   `json:"ecosystem"`
	Ranges    []Range  `json:"ranges,omitempty"`
	Versions  []string `json:"versions,omitempty"`
	// Symbols are the vulnerable functions, when the advisory carries
	// function-level data. Dotted module.Type.func strings; empty means the
	// whole package is implicated.
	Symbols []string `json:"symbols,omitempty"`
}

// Range is a half-open semver interval [Introduced, Fixed).
type Range struct {
	Introduced string `json:"introduced,omitempty"`
	Fixed      string `json:"fixed,omitempty"`
}

func (r Range) contains(v string) bool {
	if r.Introduced != "" && r.Introduced != "0" {
		if semver.Compare(v, canonVersion(r.Introduced)) < 0 {
			return false
		}
	}
	if r.Fixed != "" && semver.Compare(v, canonVersion(r.Fixed)) >= 0 {
		return false
	}
	return true
}

// Affects reports whether the given package version falls in the advisory's
// affected set. A record with no ranges and no version list affects every
// version; an unparseable version is treated as affected rather than quietly
// dismissed.
func (r *Record) Affects(version string) bool {
	if len(r.Ranges) == 0 && len(r.Versions) == 0 {
		return true
	}
	v := canonVersion(version)
	if !semver.IsValid(v) {
		return true
	}
	for _, exact := range r.Versions {
		if semver.Compare(v, canonVersion(exact)) == 0 {
			return true
		}
	}
	for _, rng := range r.Ranges {
		if rng.contains(v) {
			return true
		}
	}
	return false
}

// canonVersion normalizes to the x/mod semver form (leading "v").
func canonVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semverTrimBuild(v)
}

func semverTrimBuild(v string) string {
	if i := strings.IndexByte(v, '+'); i >= 0 {
		return v[:i]
	}
	return v
}
