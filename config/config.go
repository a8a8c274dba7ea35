package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strconv"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/module"
)

// DefaultFileName is the configuration file looked for by the CLI if
// none is given explicitly.
const DefaultFileName = "bindredirect.toml"

const (
	DefaultOutput        = "bindredirect_gen.go"
	DefaultFuncName      = "Apply"
	DefaultRuntimeImport = "github.com/refaktor/bindredirect/redirect"
)

type Config struct {
	// Other configuration files to merge into this one. Values set in the
	// importing file take precedence.
	Imports []string `toml:"imports"`
	// Application configuration file to read redirects from.
	Input string `toml:"input"`
	// Go file to write.
	Output string `toml:"output"`
	// Package name of the generated file. Inferred from the output
	// directory if empty.
	Package       string `toml:"package"`
	FuncName      string `toml:"func-name"`
	RuntimeImport string `toml:"runtime-import"`
	// Log a warning for each entry that is skipped because of missing
	// fields. Skipped entries are silently dropped otherwise.
	WarnSkipped bool `toml:"warn-skipped"`
	// Print the generated code instead of writing it.
	DryRun bool `toml:"dry-run"`
}

type Error struct {
	filePath string
	err      error  // short, single-line error
	str      string // full, multi-line error string, or err string, if none
}

// Error returns a short error message.
func (e *Error) Error() string {
	return e.filePath + ": " + e.err.Error()
}

// String returns the full multi-line error string.
func (e *Error) String() string {
	if e.str != "" {
		return "Error in file " + strconv.Quote(e.filePath) + ":\n" + e.str
	} else {
		return e.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Load reads the configuration file at path and everything it imports.
//
// Relative input, output and import paths are resolved against the
// directory of the file they appear in.
func Load(path string) (*Config, error) {
	c, err := load(path, nil)
	if err != nil {
		return nil, wrapError(path, err)
	}
	return c, nil
}

func wrapError(path string, err error) error {
	if cErr := (&Error{}); errors.As(err, &cErr) {
		return err
	}
	if tErr := (&toml.DecodeError{}); errors.As(err, &tErr) {
		return &Error{filePath: path, err: err, str: tErr.String()}
	} else if tErr := (&toml.StrictMissingError{}); errors.As(err, &tErr) {
		return &Error{filePath: path, err: err, str: tErr.String()}
	}
	return &Error{filePath: path, err: err}
}

func load(path string, importedBy []string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	for _, p := range importedBy {
		if p == abs {
			return nil, fmt.Errorf("import cycle: %v", append(importedBy, abs))
		}
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := &Config{}
	err = toml.NewDecoder(bytes.NewReader(file)).
		DisallowUnknownFields().
		Decode(c)
	if err != nil {
		return nil, err
	}
	c.resolvePaths(filepath.Dir(path))

	var importedCs []*Config // collect imported files first so their imports don't leak into our file's imports
	for _, imp := range c.Imports {
		newC, err := load(imp, append(importedBy, abs))
		if err != nil {
			return nil, wrapError(imp, err)
		}
		importedCs = append(importedCs, newC)
	}
	for _, newC := range importedCs {
		if err := mergo.Merge(c, newC, mergo.WithAppendSlice); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Config) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&c.Input)
	resolve(&c.Output)
	for i := range c.Imports {
		resolve(&c.Imports[i])
	}
}

// ApplyDefaults fills in defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.FuncName == "" {
		c.FuncName = DefaultFuncName
	}
	if c.RuntimeImport == "" {
		c.RuntimeImport = DefaultRuntimeImport
	}
}

// Validate checks that c is complete and consistent.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("no input file given")
	}
	if c.Output == "" && !c.DryRun {
		return errors.New("no output file given")
	}
	if c.Package != "" && !token.IsIdentifier(c.Package) {
		return fmt.Errorf("invalid package name %q", c.Package)
	}
	if c.RuntimeImport != "" {
		if err := module.CheckImportPath(c.RuntimeImport); err != nil {
			return fmt.Errorf("runtime-import: %w", err)
		}
	}
	return nil
}
