// Package appconfig extracts assembly binding redirects from application
// configuration files.
//
// The relevant part of such a file looks like this:
//
//	<configuration>
//	  <runtime>
//	    <assemblyBinding xmlns="urn:schemas-microsoft-com:asm.v1">
//	      <dependentAssembly>
//	        <assemblyIdentity name="Foo" publicKeyToken="ab12cd34" culture="neutral" />
//	        <bindingRedirect oldVersion="0.0.0.0-2.0.0.0" newVersion="2.0.0.0" />
//	      </dependentAssembly>
//	    </assemblyBinding>
//	  </runtime>
//	</configuration>
package appconfig

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/html/charset"

	"github.com/refaktor/bindredirect/ir"
	"github.com/refaktor/bindredirect/redirect"
)

// Namespace is the XML namespace of the assembly binding section.
const Namespace = "urn:schemas-microsoft-com:asm.v1"

// Path of the elements that describe a single redirect.
var dependentAssemblyPath = []xml.Name{
	{Local: "configuration"},
	{Local: "runtime"},
	{Space: Namespace, Local: "assemblyBinding"},
	{Space: Namespace, Local: "dependentAssembly"},
}

// Error is an error in a configuration file.
type Error struct {
	Path string
	// 1-based line number, or 0 if unknown.
	Line int
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v:%v: %v", e.Path, e.Line, e.Err)
	}
	return e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extract reads the configuration file at path.
//
// It fails if the file can't be opened or isn't well-formed XML, or if a
// complete entry carries an unparsable version or public key token.
// Entries that are missing any of the assembly name, public key token
// or new version are recorded in [ir.Document.Skipped].
func Extract(path string) (*ir.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

var (
	assemblyIdentityName = xml.Name{Space: Namespace, Local: "assemblyIdentity"}
	bindingRedirectName  = xml.Name{Space: Namespace, Local: "bindingRedirect"}
)

type element struct {
	raw  xml.Name // as written; Space is the prefix
	name xml.Name // resolved
	ns   map[string]string
}

// entry collects the fields of the dependentAssembly element being read.
type entry struct {
	line                     int
	sawIdentity, sawRedirect bool
	name, token, version     string
}

// Parse is like [Extract], but reads from r. source is used in errors
// and as [ir.Document.Source].
func Parse(r io.Reader, source string) (*ir.Document, error) {
	br := bufio.NewReader(r)
	if pfx, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(pfx, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, &Error{Path: source, Err: err}
		}
	}

	// RawToken leaves namespace resolution and tag matching to us, so
	// undeclared prefixes can be told apart from namespace URIs.
	d := xml.NewDecoder(br)
	d.CharsetReader = charset.NewReaderLabel
	fail := func(err error) error {
		line, _ := d.InputPos()
		return &Error{Path: source, Line: line, Err: err}
	}

	doc := &ir.Document{Source: source}
	var resErr *multierror.Error
	var stack []element
	var cur *entry
	sawRoot := false
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fail(err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && sawRoot {
				return nil, fail(fmt.Errorf("element <%v> after the root element", qualifiedName(tok.Name)))
			}
			sawRoot = true
			el, err := resolve(stack, tok)
			if err != nil {
				return nil, fail(err)
			}
			stack = append(stack, el)
			switch {
			case onPath(stack):
				line, _ := d.InputPos()
				cur = &entry{line: line}
			case cur != nil && len(stack) == len(dependentAssemblyPath)+1:
				if el.name == assemblyIdentityName && !cur.sawIdentity {
					cur.sawIdentity = true
					cur.name = attr(tok, "name")
					cur.token = attr(tok, "publicKeyToken")
				} else if el.name == bindingRedirectName && !cur.sawRedirect {
					cur.sawRedirect = true
					cur.version = attr(tok, "newVersion")
				}
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fail(fmt.Errorf("unexpected end element </%v>", qualifiedName(tok.Name)))
			}
			top := stack[len(stack)-1]
			if top.raw != tok.Name {
				return nil, fail(fmt.Errorf("element <%v> closed by </%v>", qualifiedName(top.raw), qualifiedName(tok.Name)))
			}
			if cur != nil && len(stack) == len(dependentAssemblyPath) {
				if err := addEntry(doc, cur); err != nil {
					resErr = multierror.Append(resErr, &Error{Path: source, Line: cur.line, Err: err})
				}
				cur = nil
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 && len(bytes.TrimSpace(tok)) > 0 {
				return nil, fail(errors.New("text outside the root element"))
			}
		}
	}
	if len(stack) > 0 {
		return nil, fail(fmt.Errorf("unexpected EOF, element <%v> is not closed", qualifiedName(stack[len(stack)-1].raw)))
	}
	if !sawRoot {
		return nil, &Error{Path: source, Err: errors.New("no root element")}
	}
	if err := resErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return doc, nil
}

// resolve collects the namespace declarations of se and resolves its
// name against them and the enclosing elements' declarations.
func resolve(stack []element, se xml.StartElement) (element, error) {
	el := element{raw: se.Name}
	for _, a := range se.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			if el.ns == nil {
				el.ns = map[string]string{}
			}
			el.ns[""] = a.Value
		case a.Name.Space == "xmlns":
			if a.Value == "" {
				return el, fmt.Errorf("empty namespace declaration for prefix %q", a.Name.Local)
			}
			if el.ns == nil {
				el.ns = map[string]string{}
			}
			el.ns[a.Name.Local] = a.Value
		}
	}
	scope := append(stack[:len(stack):len(stack)], el)
	lookup := func(prefix string) (string, bool) {
		if prefix == "xml" {
			return xmlNamespace, true
		}
		for i := len(scope) - 1; i >= 0; i-- {
			if uri, ok := scope[i].ns[prefix]; ok {
				return uri, true
			}
		}
		return "", prefix == ""
	}

	if se.Name.Space == "xmlns" {
		return el, fmt.Errorf("element <%v> uses the reserved prefix xmlns", qualifiedName(se.Name))
	}
	uri, ok := lookup(se.Name.Space)
	if !ok {
		return el, fmt.Errorf("element <%v>: undeclared namespace prefix %q", qualifiedName(se.Name), se.Name.Space)
	}
	el.name = xml.Name{Space: uri, Local: se.Name.Local}
	for _, a := range se.Attr {
		if a.Name.Space == "" || a.Name.Space == "xmlns" {
			continue
		}
		if _, ok := lookup(a.Name.Space); !ok {
			return el, fmt.Errorf("attribute %v: undeclared namespace prefix %q", qualifiedName(a.Name), a.Name.Space)
		}
	}
	return el, nil
}

func onPath(stack []element) bool {
	if len(stack) != len(dependentAssemblyPath) {
		return false
	}
	for i, el := range stack {
		if el.name != dependentAssemblyPath[i] {
			return false
		}
	}
	return true
}

// attr returns the trimmed value of the unprefixed attribute local.
func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func addEntry(doc *ir.Document, e *entry) error {
	var missing []ir.Field
	if e.name == "" {
		missing = append(missing, ir.FieldName)
	}
	if e.token == "" {
		missing = append(missing, ir.FieldPublicKeyToken)
	}
	if e.version == "" {
		missing = append(missing, ir.FieldNewVersion)
	}
	if len(missing) > 0 {
		doc.Skipped = append(doc.Skipped, ir.Skipped{
			Line:    e.line,
			Name:    e.name,
			Missing: missing,
		})
		return nil
	}

	if _, err := redirect.ParsePublicKeyToken(e.token); err != nil {
		return fmt.Errorf("assembly %v: %w", e.name, err)
	}
	v, err := redirect.ParseVersion(e.version)
	if err != nil {
		return fmt.Errorf("assembly %v: %w", e.name, err)
	}
	doc.Rules = append(doc.Rules, redirect.Rule{
		AssemblyName:   e.name,
		PublicKeyToken: e.token,
		TargetVersion:  v,
	})
	return nil
}
