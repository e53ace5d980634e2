package dll

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnparsableVersion marks a version string whose components are not all
// non-negative integers. Such libraries are excluded from automatic updates
// and surfaced for manual review.
var ErrUnparsableVersion = errors.New("unparsable version string")

// Version is a parsed dot-separated version, one integer per component.
type Version []int

// ParseVersion parses a dot-separated sequence of non-negative integers.
// Comma separators (as emitted by some PE version resources) are normalized
// to dots first.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrUnparsableVersion)
	}
	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnparsableVersion, s)
		}
		v[i] = n
	}
	return v, nil
}

// Compare orders versions lexicographically over their integer components,
// treating missing trailing components as zero: "3.10" == "3.10.0.0".
func (v Version) Compare(other Version) int {
	n := len(v)
	if len(other) > n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v) {
			a = v[i]
		}
		if i < len(other) {
			b = other[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// CompareStrings parses both version strings and compares them. Either side
// failing to parse yields ErrUnparsableVersion.
func CompareStrings(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// dlssFloor is the oldest DLSS release that can be swapped for a current
// one; pre-2.x files use an incompatible ABI and are left alone.
var dlssFloor = Version{2, 0, 0}

// Decision is the outcome of weighing an installed library against the
// latest known release.
type Decision int

const (
	// DecisionUpToDate means the installed file is at or past latest.
	DecisionUpToDate Decision = iota
	// DecisionUpdate means latest should replace the installed file.
	DecisionUpdate
	// DecisionBelowFloor means the installed file predates the oldest
	// ABI-compatible release and must not be touched.
	DecisionBelowFloor
)

// UpdateDecision reports whether a library at installed should be brought to
// latest. No downgrade is ever recommended, and DLSS files older than the
// 2.0 floor are reported as such rather than merely left alone.
func UpdateDecision(t Type, installed, latest string) (Decision, error) {
	cur, err := ParseVersion(installed)
	if err != nil {
		return DecisionUpToDate, err
	}
	want, err := ParseVersion(latest)
	if err != nil {
		return DecisionUpToDate, err
	}
	if t == TypeDLSS && cur.Less(dlssFloor) {
		return DecisionBelowFloor, nil
	}
	if cur.Less(want) {
		return DecisionUpdate, nil
	}
	return DecisionUpToDate, nil
}
