package redirect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version is an assembly version of the form major.minor[.build[.revision]].
//
// Components that were not specified are -1.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// ParseVersion parses a version string with two to four non-negative
// decimal components.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, errors.New("empty version")
	}
	sp := strings.Split(s, ".")
	if len(sp) < 2 || len(sp) > 4 {
		return Version{}, fmt.Errorf("version %q: expected 2 to 4 components, got %v", s, len(sp))
	}
	comps := [4]int{-1, -1, -1, -1}
	for i, c := range sp {
		c = strings.TrimSpace(c)
		if c == "" || strings.ContainsAny(c, "+-") {
			return Version{}, fmt.Errorf("version %q: invalid component %q", s, c)
		}
		n, err := strconv.ParseInt(c, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: invalid component %q", s, c)
		}
		comps[i] = int(n)
	}
	return Version{
		Major:    comps[0],
		Minor:    comps[1],
		Build:    comps[2],
		Revision: comps[3],
	}, nil
}

// MustParseVersion is like [ParseVersion], but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) valid() bool {
	if v.Major < 0 || v.Minor < 0 {
		return false
	}
	if v.Build < -1 || v.Revision < -1 {
		return false
	}
	if v.Build == -1 && v.Revision != -1 {
		return false
	}
	return true
}

func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(v.Major))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(v.Minor))
	if v.Build >= 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.Build))
		if v.Revision >= 0 {
			b.WriteByte('.')
			b.WriteString(strconv.Itoa(v.Revision))
		}
	}
	return b.String()
}
