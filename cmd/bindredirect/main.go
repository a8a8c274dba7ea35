// Command bindredirect generates Go code that installs the assembly
// binding redirects found in an application configuration file.
//
// Usage:
//
//	//go:generate go run github.com/refaktor/bindredirect/cmd/bindredirect -in app.config
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/refaktor/bindredirect"
	"github.com/refaktor/bindredirect/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	flagCfg    config.Config

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bindredirect",
	Short: "Generate Go code for assembly binding redirects",
	Long: `bindredirect reads the binding redirects from an application configuration
file (app.config) and generates a Go file with an Apply function that
installs them on the process-wide redirect registry.

Settings are read from bindredirect.toml in the working directory, or the
file given with --config. Flags take precedence over the file.

Run without a subcommand to generate.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runGenerate,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the generated Go file",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the generator inputs without generating anything",
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&configPath, "config", "c", "", "configuration file (default "+config.DefaultFileName+" if present)")
	pf.StringVar(&flagCfg.Input, "in", "", "application configuration file to read")
	pf.StringVar(&flagCfg.Output, "out", "", "Go file to write (default "+config.DefaultOutput+")")
	pf.StringVar(&flagCfg.Package, "package", "", "package name of the generated file (default: inferred)")
	pf.StringVar(&flagCfg.FuncName, "func", "", "name of the generated entry point (default "+config.DefaultFuncName+")")
	pf.StringVar(&flagCfg.RuntimeImport, "runtime-import", "", "import path of the redirect runtime package")
	pf.BoolVar(&flagCfg.WarnSkipped, "warn-skipped", false, "warn about incomplete redirect entries")
	pf.BoolVar(&flagCfg.DryRun, "dry-run", false, "print generated code without writing")

	rootCmd.AddCommand(generateCmd, dumpCmd)
}

// loadConfig reads the configuration file, if any, and overrides it with
// the flags given on the command line.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err == nil {
			path = config.DefaultFileName
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded configuration", zap.String("path", path))
	}
	applyFlags(cfg, rootCmd.PersistentFlags())
	cfg.ApplyDefaults()
	return cfg, nil
}

// applyFlags copies the flags that were set explicitly into cfg.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) {
	// Parsing marks the shared *pflag.Flag as changed, but records it in
	// the executing command's flag set, so Visit can't be used here.
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		switch f.Name {
		case "in":
			cfg.Input = flagCfg.Input
		case "out":
			cfg.Output = flagCfg.Output
		case "package":
			cfg.Package = flagCfg.Package
		case "func":
			cfg.FuncName = flagCfg.FuncName
		case "runtime-import":
			cfg.RuntimeImport = flagCfg.RuntimeImport
		case "warn-skipped":
			cfg.WarnSkipped = flagCfg.WarnSkipped
		case "dry-run":
			cfg.DryRun = flagCfg.DryRun
		}
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, err := bindredirect.Generate(cfg, logger)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		_, err := cmd.OutOrStdout().Write(res.Code)
		return err
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return bindredirect.Dump(cmd.OutOrStdout(), cfg)
}

// execute runs the root command and reports errors to stderr. It returns
// the process exit code.
func execute(stderr io.Writer) int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	if cErr := (&config.Error{}); errors.As(err, &cErr) {
		fmt.Fprintln(stderr, cErr.String())
	} else {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return 1
}

func main() {
	os.Exit(execute(os.Stderr))
}
