package bindredirect

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/refaktor/bindredirect/appconfig"
	"github.com/refaktor/bindredirect/config"
	"github.com/refaktor/bindredirect/emit"
	"github.com/refaktor/bindredirect/ir"
	"github.com/refaktor/bindredirect/textutils"
)

// Result describes a finished generator run.
type Result struct {
	Doc *ir.Document
	// Package name used for the generated file.
	Package string
	// Generated, formatted source code.
	Code []byte
	// Path the code was written to, or "" on a dry run.
	Written string
}

// Generate reads cfg.Input and writes the generated code to cfg.Output.
//
// cfg must have defaults applied. log may be nil.
func Generate(cfg *config.Config, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	doc, err := appconfig.Extract(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	log.Info("extracted binding redirects",
		zap.String("input", cfg.Input),
		zap.Int("rules", len(doc.Rules)),
		zap.Int("skipped", len(doc.Skipped)),
	)
	logSkipped(log, doc, cfg.WarnSkipped)
	for _, r := range doc.Shadowed() {
		log.Warn("binding redirect can never apply, an earlier rule redirects the same assembly",
			zap.String("assembly", r.AssemblyName),
			zap.Stringer("version", r.TargetVersion),
		)
	}

	pkg := cfg.Package
	if pkg == "" {
		pkg = InferPackageName(filepath.Dir(cfg.Output), log)
	}

	opts := emit.Options{
		Package:       pkg,
		FuncName:      cfg.FuncName,
		RuntimeImport: cfg.RuntimeImport,
		Filename:      cfg.Output,
	}
	res := &Result{
		Doc:     doc,
		Package: pkg,
	}
	if cfg.DryRun {
		res.Code, err = emit.Generate(doc, opts)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		return res, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0777); err != nil {
		return nil, err
	}
	if err := emit.WriteFile(doc, opts, cfg.Output); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	res.Code, err = os.ReadFile(cfg.Output)
	if err != nil {
		return nil, err
	}
	res.Written = cfg.Output
	log.Info("wrote binding redirects", zap.String("output", cfg.Output), zap.String("package", pkg))
	return res, nil
}

func logSkipped(log *zap.Logger, doc *ir.Document, warn bool) {
	for _, s := range doc.Skipped {
		fields := []zap.Field{
			zap.String("input", doc.Source),
			zap.Int("line", s.Line),
			zap.String("assembly", s.Name),
			zap.String("missing", s.MissingString()),
		}
		if warn {
			log.Warn("skipping incomplete binding redirect", fields...)
		} else {
			log.Debug("skipping incomplete binding redirect", fields...)
		}
	}
}

// InferPackageName returns the name of the Go package in dir. If dir
// contains no loadable package, a name is derived from the directory name.
func InferPackageName(dir string, log *zap.Logger) string {
	if log == nil {
		log = zap.NewNop()
	}
	pkgs, err := packages.Load(&packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  dir,
	}, ".")
	if err == nil && len(pkgs) == 1 && pkgs[0].Name != "" {
		return pkgs[0].Name
	}
	if err != nil {
		log.Debug("unable to load output package", zap.String("dir", dir), zap.Error(err))
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return textutils.PackageIdentifier(filepath.Base(abs))
}
