package bindredirect

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/refaktor/bindredirect/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Input:   filepath.Join("testdata", "app.config"),
		Output:  filepath.Join(t.TempDir(), "gen", "redirects_gen.go"),
		Package: "main",
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestGenerate(t *testing.T) {
	require := require.New(t)

	cfg := testConfig(t)
	res, err := Generate(cfg, nil)
	require.NoError(err)
	require.Equal(cfg.Output, res.Written)
	require.Len(res.Doc.Rules, 3)
	require.Len(res.Doc.Skipped, 3)

	written, err := os.ReadFile(cfg.Output)
	require.NoError(err)
	require.Equal(res.Code, written)

	f, err := parser.ParseFile(token.NewFileSet(), cfg.Output, written, 0)
	require.NoError(err)
	require.Equal("main", f.Name.Name)
	src := string(written)
	require.Equal(3*2, strings.Count(src, "redirect.MustInstall("))
	require.Less(strings.Index(src, `"Newtonsoft.Json"`), strings.Index(src, `"System.Memory"`))
}

func TestGenerateDryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	res, err := Generate(cfg, nil)
	require.NoError(t, err)
	require.Empty(t, res.Written)
	require.NotEmpty(t, res.Code)
	require.NoFileExists(t, cfg.Output)
}

func TestGenerateWarnSkipped(t *testing.T) {
	for _, warn := range []bool{false, true} {
		core, logs := observer.New(zapcore.DebugLevel)
		cfg := testConfig(t)
		cfg.WarnSkipped = warn
		_, err := Generate(cfg, zap.New(core))
		require.NoError(t, err)

		skipped := logs.FilterMessage("skipping incomplete binding redirect")
		require.Equal(t, 3, skipped.Len())
		wantLevel := zapcore.DebugLevel
		if warn {
			wantLevel = zapcore.WarnLevel
		}
		for _, e := range skipped.All() {
			require.Equal(t, wantLevel, e.Level)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input = filepath.Join("testdata", "missing.config")
	_, err := Generate(cfg, nil)
	require.ErrorIs(t, err, os.ErrNotExist)

	cfg = testConfig(t)
	cfg.Input = ""
	_, err = Generate(cfg, nil)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.FuncName = "0bad"
	_, err = Generate(cfg, nil)
	require.Error(t, err)
	require.NoFileExists(t, cfg.Output)
}

func TestInferPackageNameFallback(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist", "My-Service")
	require.Equal(t, "myservice", InferPackageName(dir, nil))
	require.Equal(t, "gopkg", InferPackageName(filepath.Join(t.TempDir(), "missing", "go"), nil))
}

func TestGenerateIntoKeywordDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Package = ""
	cfg.Output = filepath.Join(t.TempDir(), "type", "redirects_gen.go")
	res, err := Generate(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, "typepkg", res.Package)
}

func TestFindModule(t *testing.T) {
	require := require.New(t)

	root, modPath, err := FindModule(filepath.Join("testdata", "nested", "dir"))
	require.NoError(err)
	require.Equal("github.com/refaktor/bindredirect", modPath)
	wd, err := os.Getwd()
	require.NoError(err)
	require.Equal(wd, root)
}

func TestDump(t *testing.T) {
	require := require.New(t)

	cfg := &config.Config{
		Input:  filepath.Join("testdata", "app.config"),
		Output: filepath.Join("testdata", "out", "gen.go"),
	}
	cfg.ApplyDefaults()

	var b bytes.Buffer
	require.NoError(Dump(&b, cfg))
	out := b.String()
	require.Contains(out, "Module: github.com/refaktor/bindredirect")
	require.Contains(out, "(3 rules)")
	require.Contains(out, "System.Runtime.CompilerServices.Unsafe")
	require.Contains(out, "13.0.0.0")
	require.Contains(out, "Assemblies: Newtonsoft.Json, System.Memory, System.Runtime.CompilerServices.Unsafe")
	require.Contains(out, "==Skipped entries (3)==")
	require.Contains(out, "NoRedirect")
	require.Contains(out, "input = ")
	require.NotContains(out, "Shadowed")
}
