package esm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/blang/semver/v4"
)

// versionSpan is the half-open interval [From, To).
type versionSpan struct {
	From, To semver.Version
}

func (s versionSpan) contains(v semver.Version) bool {
	return v.GTE(s.From) && v.LT(s.To)
}

// preESMNode are the Node release lines that cannot load ES modules
// without a flag.
var preESMNode = []versionSpan{
	{semver.MustParse("8.0.0"), semver.MustParse("9.0.0")},
	{semver.MustParse("10.0.0"), semver.MustParse("11.0.0")},
	{semver.MustParse("12.0.0"), semver.MustParse("12.20.0")},
}

// AllowsPreESMNode reports whether engines.node admits a Node release
// without unflagged ESM support. Ranges that cannot be parsed report false.
func (p PackageInfo) AllowsPreESMNode() bool {
	if strings.TrimSpace(p.NodeEngine) == "" {
		return false
	}
	expanded, err := expandNodeRange(p.NodeEngine)
	if err != nil {
		return false
	}
	r, err := semver.ParseRange(expanded)
	if err != nil {
		return false
	}

	// The lowest version a set of comparators admits inside a span is the
	// span start or one of the comparator bounds.
	bounds := comparatorBounds(expanded)
	for _, span := range preESMNode {
		candidates := append([]semver.Version{span.From}, bounds...)
		for _, v := range candidates {
			if span.contains(v) && r(v) {
				return true
			}
		}
	}
	return false
}

// ParseNodeRange converts an npm engines range (^, ~, x-ranges, partial
// versions, hyphen ranges, "||" alternatives) into a semver.Range.
func ParseNodeRange(spec string) (semver.Range, error) {
	expanded, err := expandNodeRange(spec)
	if err != nil {
		return nil, err
	}
	return semver.ParseRange(expanded)
}

func expandNodeRange(spec string) (string, error) {
	var alts []string
	for _, alt := range strings.Split(spec, "||") {
		toks := strings.Fields(alt)
		var parts []string
		for i := 0; i < len(toks); i++ {
			if i+2 < len(toks) && toks[i+1] == "-" {
				lo, err := expandComparator(">=" + toks[i])
				if err != nil {
					return "", err
				}
				hi, err := expandComparator("<=" + toks[i+2])
				if err != nil {
					return "", err
				}
				parts = append(parts, lo...)
				parts = append(parts, hi...)
				i += 2
				continue
			}
			expanded, err := expandComparator(toks[i])
			if err != nil {
				return "", err
			}
			parts = append(parts, expanded...)
		}
		if len(parts) == 0 {
			parts = []string{">=0.0.0"}
		}
		alts = append(alts, strings.Join(parts, " "))
	}
	return strings.Join(alts, " || "), nil
}

// comparatorBounds returns each comparator version of an expanded range
// together with the next patch release after it.
func comparatorBounds(expanded string) []semver.Version {
	var out []semver.Version
	for _, tok := range strings.Fields(expanded) {
		if tok == "||" {
			continue
		}
		v, err := semver.Parse(strings.TrimLeft(tok, "<>=!"))
		if err != nil {
			continue
		}
		v.Pre, v.Build = nil, nil
		next := v
		next.Patch++
		out = append(out, v, next)
	}
	return out
}

// partialVersion parses "12", "12.4", "12.x" or a full version. precision
// is the number of components given.
func partialVersion(raw string) (semver.Version, int, error) {
	raw = strings.TrimPrefix(raw, "v")
	parts := strings.Split(raw, ".")
	if len(parts) >= 3 && !isWildcard(parts[2]) && !isWildcard(parts[0]) && !isWildcard(parts[1]) {
		v, err := semver.ParseTolerant(raw)
		return v, 3, err
	}

	var nums [2]uint64
	precision := 0
	for _, p := range parts {
		if isWildcard(p) || precision == 2 {
			break
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return semver.Version{}, 0, fmt.Errorf("invalid version %q", raw)
		}
		nums[precision] = n
		precision++
	}
	return semver.Version{Major: nums[0], Minor: nums[1]}, precision, nil
}

func isWildcard(s string) bool {
	return s == "x" || s == "X" || s == "*"
}

// upperOf is the first version past a partial version of the given
// precision.
func upperOf(v semver.Version, precision int) string {
	switch precision {
	case 1:
		return fmt.Sprintf("%d.0.0", v.Major+1)
	case 2:
		return fmt.Sprintf("%d.%d.0", v.Major, v.Minor+1)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch+1)
}

func expandComparator(tok string) ([]string, error) {
	if isWildcard(tok) {
		return []string{">=0.0.0"}, nil
	}
	i := strings.IndexFunc(tok, unicode.IsDigit)
	if i < 0 {
		return nil, fmt.Errorf("invalid comparator %q", tok)
	}
	op, raw := strings.TrimSuffix(tok[:i], "v"), tok[i:]
	v, precision, err := partialVersion(raw)
	if err != nil {
		return nil, err
	}
	if precision == 0 {
		return []string{">=0.0.0"}, nil
	}

	switch op {
	case "^":
		switch {
		case v.Major > 0 || precision == 1:
			return []string{">=" + v.String(), fmt.Sprintf("<%d.0.0", v.Major+1)}, nil
		case v.Minor > 0 || precision == 2:
			return []string{">=" + v.String(), fmt.Sprintf("<0.%d.0", v.Minor+1)}, nil
		}
		return []string{">=" + v.String(), "<" + upperOf(v, 3)}, nil
	case "~":
		if precision == 1 {
			return []string{">=" + v.String(), "<" + upperOf(v, 1)}, nil
		}
		return []string{">=" + v.String(), "<" + upperOf(v, 2)}, nil
	case "", "=":
		if precision < 3 {
			return []string{">=" + v.String(), "<" + upperOf(v, precision)}, nil
		}
		return []string{v.String()}, nil
	case ">":
		if precision < 3 {
			return []string{">=" + upperOf(v, precision)}, nil
		}
		return []string{">" + v.String()}, nil
	case "<=":
		if precision < 3 {
			return []string{"<" + upperOf(v, precision)}, nil
		}
		return []string{"<=" + v.String()}, nil
	case ">=", "<":
		return []string{op + v.String()}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}
