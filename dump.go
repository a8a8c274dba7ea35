package bindredirect

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"

	"github.com/refaktor/bindredirect/appconfig"
	"github.com/refaktor/bindredirect/config"
	"github.com/refaktor/bindredirect/textutils"
)

// FindModule walks up from dir to the nearest go.mod and returns its
// directory and module path.
func FindModule(dir string) (root, modPath string, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", err
	}
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return "", "", fmt.Errorf("%v: no module directive", filepath.Join(dir, "go.mod"))
			}
			return dir, modPath, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", errors.New("go.mod not found in any parent directory")
}

// Dump writes a human-readable report of everything a generator run with
// cfg would use as input: the enclosing module, the target package's Go
// files, the effective configuration and the extracted redirects.
func Dump(w io.Writer, cfg *config.Config) error {
	outDir := filepath.Dir(cfg.Output)

	fmt.Fprintf(w, "==Target package==\n")
	if root, modPath, err := FindModule(outDir); err == nil {
		fmt.Fprintf(w, "  Module: %v (%v)\n", modPath, root)
	} else {
		fmt.Fprintf(w, "  Module: none (%v)\n", err)
	}
	fmt.Fprintf(w, "  Directory: %v\n", outDir)
	goFiles, err := filepath.Glob(filepath.Join(outDir, "*.go"))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  Go files: %v\n", textutils.Count(len(goFiles), "file"))
	for _, f := range goFiles {
		fmt.Fprintf(w, "    %v\n", filepath.Base(f))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "==Configuration==\n")
	cfgText, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(w, textutils.IndentString(string(cfgText), "  ", 1))
	fmt.Fprintln(w)

	doc, err := appconfig.Extract(cfg.Input)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	fmt.Fprintf(w, "==Binding redirects in %v (%v)==\n", doc.Source, textutils.Count(len(doc.Rules), "rule"))
	{
		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"#", "Assembly", "Public key token", "Target version"})
		for i, r := range doc.Rules {
			tbl.Append([]string{strconv.Itoa(i + 1), r.AssemblyName, r.PublicKeyToken, r.TargetVersion.String()})
		}
		tbl.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.SetAutoFormatHeaders(false)
		tbl.SetAutoWrapText(false)
		tbl.Render()
	}
	if names := doc.AssemblyNames(); len(names) > 0 {
		fmt.Fprintf(w, "  Assemblies: %v\n", strings.Join(names, ", "))
	}

	if len(doc.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "==Skipped entries (%v)==\n", len(doc.Skipped))
		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"Line", "Assembly", "Missing"})
		for _, s := range doc.Skipped {
			tbl.Append([]string{strconv.Itoa(s.Line), s.Name, s.MissingString()})
		}
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.SetAutoFormatHeaders(false)
		tbl.SetAutoWrapText(false)
		tbl.Render()
	}

	if shadowed := doc.Shadowed(); len(shadowed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "==Shadowed rules==\n")
		for _, r := range shadowed {
			fmt.Fprintf(w, "  %v\n", r)
		}
	}
	return nil
}
