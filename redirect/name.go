package redirect

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// InvariantCulture is the culture name of the invariant ("neutral") culture.
const InvariantCulture = ""

// Attr is an assembly name attribute without special meaning to this
// package, e.g. "ProcessorArchitecture=MSIL".
type Attr struct {
	Key   string
	Value string
}

// AssemblyName is a parsed assembly identity, as found in display names
// like "Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=ab12cd34".
type AssemblyName struct {
	// Simple name.
	Name string
	// nil if not specified.
	Version *Version
	// InvariantCulture for "neutral". Only meaningful if HasCulture is set.
	Culture    string
	HasCulture bool
	// nil if not specified, empty if "null".
	PublicKeyToken []byte
	// Remaining attributes in the order they appeared.
	Extra []Attr
}

// ParsePublicKeyToken decodes a hexadecimal public key token.
//
// The special value "null" decodes to an empty, non-nil token.
func ParsePublicKeyToken(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return []byte{}, nil
	}
	if s == "" {
		return nil, errors.New("empty public key token")
	}
	tok, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("public key token %q: %w", s, err)
	}
	return tok, nil
}

// ParseAssemblyName parses an assembly display name.
//
// Keys are case-insensitive and whitespace around separators is ignored.
// Commas, equal signs, quotes and backslashes inside the simple name or
// values may be escaped with a backslash.
func ParseAssemblyName(s string) (AssemblyName, error) {
	parts, err := splitDisplayName(s)
	if err != nil {
		return AssemblyName{}, fmt.Errorf("assembly name %q: %w", s, err)
	}

	var an AssemblyName
	an.Name = parts[0]
	if an.Name == "" {
		return AssemblyName{}, fmt.Errorf("assembly name %q: empty simple name", s)
	}

	seen := map[string]bool{}
	for _, p := range parts[1:] {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return AssemblyName{}, fmt.Errorf("assembly name %q: expected key=value, got %q", s, p)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		lkey := strings.ToLower(key)
		if seen[lkey] {
			return AssemblyName{}, fmt.Errorf("assembly name %q: duplicate attribute %q", s, key)
		}
		seen[lkey] = true

		switch lkey {
		case "version":
			v, err := ParseVersion(value)
			if err != nil {
				return AssemblyName{}, fmt.Errorf("assembly name %q: %w", s, err)
			}
			an.Version = &v
		case "culture":
			an.HasCulture = true
			if strings.EqualFold(value, "neutral") {
				an.Culture = InvariantCulture
			} else {
				an.Culture = value
			}
		case "publickeytoken":
			tok, err := ParsePublicKeyToken(value)
			if err != nil {
				return AssemblyName{}, fmt.Errorf("assembly name %q: %w", s, err)
			}
			an.PublicKeyToken = tok
		default:
			an.Extra = append(an.Extra, Attr{Key: key, Value: value})
		}
	}
	return an, nil
}

// splitDisplayName splits at unescaped commas outside of quotes,
// removing escapes and quotes and trimming surrounding whitespace.
func splitDisplayName(s string) ([]string, error) {
	var parts []string
	var b strings.Builder
	var quote rune
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				b.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ',':
			parts = append(parts, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	parts = append(parts, strings.TrimSpace(b.String()))
	return parts, nil
}

var displayNameEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	`=`, `\=`,
	`"`, `\"`,
	`'`, `\'`,
)

// String returns the display name.
func (an AssemblyName) String() string {
	var b strings.Builder
	b.WriteString(displayNameEscaper.Replace(an.Name))
	if an.Version != nil {
		b.WriteString(", Version=")
		b.WriteString(an.Version.String())
	}
	if an.HasCulture {
		b.WriteString(", Culture=")
		if an.Culture == InvariantCulture {
			b.WriteString("neutral")
		} else {
			b.WriteString(displayNameEscaper.Replace(an.Culture))
		}
	}
	if an.PublicKeyToken != nil {
		b.WriteString(", PublicKeyToken=")
		if len(an.PublicKeyToken) == 0 {
			b.WriteString("null")
		} else {
			b.WriteString(hex.EncodeToString(an.PublicKeyToken))
		}
	}
	for _, a := range an.Extra {
		b.WriteString(", ")
		b.WriteString(displayNameEscaper.Replace(a.Key))
		b.WriteString("=")
		b.WriteString(displayNameEscaper.Replace(a.Value))
	}
	return b.String()
}
