// Package ir holds the intermediate representation between reading an
// application configuration file and emitting code for it.
package ir

import (
	"slices"
	"strings"

	"github.com/refaktor/bindredirect/redirect"
)

// Field names a required attribute of a redirect entry.
type Field string

const (
	FieldName           Field = "assemblyIdentity/@name"
	FieldPublicKeyToken Field = "assemblyIdentity/@publicKeyToken"
	FieldNewVersion     Field = "bindingRedirect/@newVersion"
)

// Skipped is a dependentAssembly entry that was dropped because it
// lacks at least one required field.
type Skipped struct {
	// 1-based line of the dependentAssembly element.
	Line int
	// Assembly name, if present.
	Name    string
	Missing []Field
}

func (s Skipped) MissingString() string {
	var b strings.Builder
	for i, f := range s.Missing {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(f))
	}
	return b.String()
}

// Document is the result of reading one configuration file.
type Document struct {
	// Path or name of the file that was read.
	Source string
	// Rules in document order.
	Rules   []redirect.Rule
	Skipped []Skipped
}

// Shadowed returns the rules that can never fire because an earlier rule
// has the same assembly name; only the first matching handler resolves
// a request.
func (d *Document) Shadowed() []redirect.Rule {
	var res []redirect.Rule
	seen := map[string]bool{}
	for _, r := range d.Rules {
		if seen[r.AssemblyName] {
			res = append(res, r)
			continue
		}
		seen[r.AssemblyName] = true
	}
	return res
}

// AssemblyNames returns the sorted, de-duplicated assembly names of all rules.
func (d *Document) AssemblyNames() []string {
	var names []string
	for _, r := range d.Rules {
		names = append(names, r.AssemblyName)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
