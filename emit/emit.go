// Package emit generates the Go source file that installs binding
// redirects at program start.
package emit

import (
	"fmt"
	"go/token"
	"path"
	"strconv"

	"github.com/iancoleman/strcase"

	"github.com/refaktor/bindredirect/emit/codebuilder"
	"github.com/refaktor/bindredirect/ir"
	"github.com/refaktor/bindredirect/redirect"
)

// DefaultRuntimeImport is the import path of the runtime package used by
// generated code.
const DefaultRuntimeImport = "github.com/refaktor/bindredirect/redirect"

// DefaultFuncName is the default name of the generated entry point.
const DefaultFuncName = "Apply"

// MarkerTypeName is the name of the generated marker type.
const MarkerTypeName = "AutoGenerateBindingRedirect"

const runtimeImportName = "redirect"

type Options struct {
	// Package name of the generated file.
	Package string
	// Name of the entry point. An exported Go identifier is derived from it.
	// Defaults to DefaultFuncName.
	FuncName string
	// Defaults to DefaultRuntimeImport.
	RuntimeImport string
	// File name used in formatting errors.
	Filename string
}

// FuncNames returns the names of the two generated functions:
// the entry point using the default registry, and the variant taking
// an explicit registry.
func FuncNames(name string) (apply, applyTo string, err error) {
	if name == "" {
		name = DefaultFuncName
	}
	name = strcase.ToCamel(name)
	if !token.IsIdentifier(name) || !token.IsExported(name) {
		return "", "", fmt.Errorf("invalid function name %q", name)
	}
	return name, name + "To", nil
}

// Generate returns formatted Go source code for doc.
func Generate(doc *ir.Document, opts Options) ([]byte, error) {
	cb, err := build(doc, opts)
	if err != nil {
		return nil, err
	}
	code, err := cb.FmtString(filename(opts))
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return []byte(code), nil
}

// WriteFile generates code for doc and writes it to outFile. If the code
// can't be formatted, the unformatted code is written for inspection and
// an error is returned.
func WriteFile(doc *ir.Document, opts Options, outFile string) error {
	cb, err := build(doc, opts)
	if err != nil {
		return err
	}
	fmtErr, err := cb.SaveToFile(outFile)
	if err != nil {
		return err
	}
	if fmtErr != nil {
		return fmt.Errorf("format generated code (unformatted code written to %v): %w", outFile, fmtErr)
	}
	return nil
}

func filename(opts Options) string {
	if opts.Filename == "" {
		return "bindredirect_gen.go"
	}
	return opts.Filename
}

func build(doc *ir.Document, opts Options) (*codebuilder.Builder, error) {
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("invalid package name %q", opts.Package)
	}
	apply, applyTo, err := FuncNames(opts.FuncName)
	if err != nil {
		return nil, err
	}
	runtimeImport := opts.RuntimeImport
	if runtimeImport == "" {
		runtimeImport = DefaultRuntimeImport
	}
	var source string
	if doc.Source != "" {
		source = path.Base(doc.Source)
	}

	cb := &codebuilder.Builder{}
	cb.Linef("// Code generated by bindredirect. DO NOT EDIT.")
	if source != "" {
		cb.Linef("// Source: %v", source)
	}
	cb.Linef("")
	cb.Linef("package %v", opts.Package)
	cb.Linef("")
	if path.Base(runtimeImport) == runtimeImportName {
		cb.Linef("import %v", strconv.Quote(runtimeImport))
	} else {
		cb.Linef("import %v %v", runtimeImportName, strconv.Quote(runtimeImport))
	}
	cb.Linef("")
	cb.Comment(fmt.Sprintf("%v marks the function that installs the binding redirects\n"+
		"generated for this package. It has no behavior.", MarkerTypeName))
	cb.Linef("type %v struct{}", MarkerTypeName)
	cb.Linef("")
	cb.Comment(fmt.Sprintf("%v installs the binding redirects on the process-wide registry.\n"+
		"Call it once at program start.", apply))
	cb.Block(fmt.Sprintf("func %v()", apply), func() {
		installCalls(cb, runtimeImportName+".Default()", source, doc.Rules)
	})
	cb.Linef("")
	cb.Comment(fmt.Sprintf("%v installs the binding redirects on reg.", applyTo))
	cb.Block(fmt.Sprintf("func %v(reg *%v.Registry)", applyTo, runtimeImportName), func() {
		installCalls(cb, "reg", source, doc.Rules)
	})
	return cb, nil
}

func installCalls(cb *codebuilder.Builder, reg, source string, rules []redirect.Rule) {
	if len(rules) == 0 {
		return
	}
	cb.Linef("%v.Applying(%v, %v)", runtimeImportName, reg, strconv.Quote(source))
	for _, r := range rules {
		installCall(cb, reg, r)
	}
}

func installCall(cb *codebuilder.Builder, reg string, r redirect.Rule) {
	cb.Linef("%v.MustInstall(%v, %v.Rule{", runtimeImportName, reg, runtimeImportName)
	cb.Indent++
	cb.Linef("AssemblyName: %v,", strconv.Quote(r.AssemblyName))
	cb.Linef("PublicKeyToken: %v,", strconv.Quote(r.PublicKeyToken))
	cb.Linef("TargetVersion: %v.MustParseVersion(%v),", runtimeImportName, strconv.Quote(r.TargetVersion.String()))
	cb.Indent--
	cb.Linef("})")
}
