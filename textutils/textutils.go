package textutils

import (
	"bytes"
	"go/token"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

var asciiSpace = [256]bool{'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true}

// Prepends indent nIndent times to each line beginning in s,
// except for empty lines.
func IndentString(s string, indent string, nIndent int) string {
	b := []byte(s)

	var res strings.Builder
	{
		nBOL := bytes.Count(b, []byte{'\n'}) + 1
		res.Grow(len(s) + nBOL*nIndent*len(indent))
	}

	prefix := strings.Repeat(indent, nIndent)
	for line := range bytes.Lines(b) {
		if slices.ContainsFunc(line, func(b byte) bool { return !asciiSpace[b] }) {
			res.WriteString(prefix)
			res.Write(line)
		} else if line[len(line)-1] == '\n' {
			res.WriteByte('\n')
		}
	}

	return res.String()
}

// PackageIdentifier turns a directory name into a conventional Go package
// name: lower case letters and digits only, never starting with a digit
// and never a keyword.
//
// Returns "main" if nothing usable is left.
func PackageIdentifier(s string) string {
	var b strings.Builder
	for _, r := range strcase.ToSnake(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	res := b.String()
	if res == "" {
		return "main"
	}
	if res[0] >= '0' && res[0] <= '9' {
		res = "p" + res
	}
	if token.IsKeyword(res) {
		res += "pkg"
	}
	return res
}

// Count formats n followed by word, adding an "s" unless n is 1.
func Count(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
