// Package codebuilder builds Go source text line by line.
package codebuilder

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/tools/imports"
)

// Builder is a wrapper around [strings.Builder] that simplifies
// building Go code.
//
// The zero value is safely ready to use.
type Builder struct {
	// Indent is the indentation level (indentation is tabs).
	Indent int

	b strings.Builder
}

// Linef writes a single line, prepended by the current indentation.
//
// Takes format and args like [fmt.Printf]. Empty lines are not indented.
func (w *Builder) Linef(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if s != "" {
		for i := 0; i < w.Indent; i++ {
			w.b.WriteString("\t")
		}
	}
	w.b.WriteString(s)
	w.b.WriteString("\n")
}

// Comment writes s as a line comment, one "//" line per line of s.
func (w *Builder) Comment(s string) {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := sc.Text(); line == "" {
			w.Linef("//")
		} else {
			w.Linef("// %v", line)
		}
	}
}

// Block writes header followed by " {", calls body one indentation
// level deeper and closes the block.
func (w *Builder) Block(header string, body func()) {
	w.Linef("%v {", header)
	w.Indent++
	body()
	w.Indent--
	w.Linef("}")
}

// String returns the current code without applying any formatting.
func (w *Builder) String() string {
	return w.b.String()
}

// FmtString formats the current code as Go source code and fixes up its
// imports. filename is only used in error messages and to decide which
// imports are local.
func (w *Builder) FmtString(filename string) (string, error) {
	code, err := imports.Process(filename, []byte(w.String()), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return "", err
	}
	return string(code), nil
}

// SaveToFile attempts to format the current code as Go source code and
// write it to outFile.
//
// If a formatting error occurs, it is returned in fmtErr and the function
// attempts to write the unformatted code instead. If a file IO error
// occurs, it is returned in err.
func (w *Builder) SaveToFile(outFile string) (fmtErr error, err error) {
	code, err := w.FmtString(outFile)
	if err != nil {
		fmtErr = err
		code = w.String()
	}
	if err := os.WriteFile(outFile, []byte(code), 0666); err != nil {
		return nil, err
	}
	return fmtErr, nil
}
