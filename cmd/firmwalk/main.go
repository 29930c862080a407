// Command firmwalk scans a firmware image for recognized file-format
// signatures and, optionally, extracts and recursively re-analyzes what
// it finds. Grounded on the teacher's cmd/lci/main.go: a single
// urfave/cli/v2 App with loadConfigWithOverrides-style layering of an
// optional config file under CLI flags.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	charmlog "charm.land/log/v2"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/firmwalk/internal/catalog"
	"github.com/standardbeagle/firmwalk/internal/config"
	"github.com/standardbeagle/firmwalk/internal/debug"
	"github.com/standardbeagle/firmwalk/internal/recursion"
	"github.com/standardbeagle/firmwalk/internal/report"
	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/version"
)

var logger = charmlog.New(os.Stderr)

func main() {
	app := &cli.App{
		Name:                   "firmwalk",
		Usage:                  "recursive signature scanner and extractor for firmware images",
		Version:                version.Version,
		UseShortOptionHandling: true,
		ArgsUsage:              "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Aliases: []string{"L"}, Usage: "list registered signatures and exit"},
			&cli.BoolFlag{Name: "extract", Aliases: []string{"e"}, Usage: "extract data identified by matching signatures"},
			&cli.BoolFlag{Name: "matryoshka", Aliases: []string{"M"}, Usage: "recursively analyze extracted files"},
			&cli.StringFlag{Name: "include", Usage: "comma-separated signature names to include (wins over --exclude)"},
			&cli.StringFlag{Name: "exclude", Usage: "comma-separated signature names to exclude"},
			&cli.IntFlag{Name: "threads", Usage: "worker pool width (default: number of CPUs)"},
			&cli.StringFlag{Name: "directory", Usage: "root directory for extracted files", Value: config.DefaultExtractionDirectory},
			&cli.StringFlag{Name: "log", Usage: "append JSON results to PATH"},
			&cli.BoolFlag{Name: "quiet", Usage: "suppress per-file reporting except findings"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "report every analyzed file"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file path", Value: config.DefaultConfigPath},
			&cli.StringSliceFlag{Name: "skip-pattern", Usage: "doublestar glob; matching discovered files are not recursively analyzed"},
			&cli.BoolFlag{Name: "stdin", Usage: "read the target from standard input"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("firmwalk failed", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("list") {
		report.WriteSignatureList(os.Stdout, catalog.All())
		return nil
	}

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	inputPath, cleanup, err := resolveInputPath(c)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	reg := signature.Build(catalog.All(), cfg.Include, cfg.Exclude)
	driver := recursion.NewDriver(reg, recursion.Config{
		Width:        cfg.Threads,
		Extract:      cfg.Extract,
		Recurse:      cfg.Extract && cfg.Recurse,
		SkipPatterns: cfg.SkipPatterns,
		Verbose:      cfg.Verbose,
	})

	err = driver.Run(context.Background(), cfg.Directory, inputPath, func(isFirst bool, result recursion.AnalysisResult) {
		if cfg.LogPath != "" {
			if logErr := report.AppendJSON(cfg.LogPath, report.EntryFromAnalysis(result)); logErr != nil {
				logger.Warn("failed to append JSON log entry", "path", cfg.LogPath, "err", logErr)
			}
		}
		if cfg.Quiet && !recursion.ShouldReport(isFirst, cfg.Verbose, result) {
			return
		}
		report.WriteAnalysis(os.Stdout, result)
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// loadConfigWithOverrides reads the configured TOML file and layers the
// explicitly-set CLI flags over it, mirroring the teacher's
// loadConfigWithOverrides.
func loadConfigWithOverrides(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	overrides := config.Overrides{}
	if c.IsSet("threads") {
		v := c.Int("threads")
		overrides.Threads = &v
	}
	if c.IsSet("directory") {
		v := c.String("directory")
		overrides.Directory = &v
	}
	if v := c.String("include"); v != "" {
		overrides.Include = splitAndTrim(v)
	}
	if v := c.String("exclude"); v != "" {
		overrides.Exclude = splitAndTrim(v)
	}
	if v := c.StringSlice("skip-pattern"); len(v) > 0 {
		overrides.SkipPatterns = v
	}
	if c.IsSet("verbose") {
		v := c.Bool("verbose")
		overrides.Verbose = &v
	}
	if c.IsSet("quiet") {
		v := c.Bool("quiet")
		overrides.Quiet = &v
	}
	if c.IsSet("extract") {
		v := c.Bool("extract")
		overrides.Extract = &v
	}
	if c.IsSet("matryoshka") {
		v := c.Bool("matryoshka")
		overrides.Recurse = &v
	}
	if c.IsSet("log") {
		v := c.String("log")
		overrides.LogPath = &v
	}

	return config.Apply(cfg, overrides), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// resolveInputPath returns the path to scan: the positional argument,
// or a temporary file holding standard input when --stdin is given. The
// returned cleanup func removes that temporary file; it is nil for the
// positional-argument case.
func resolveInputPath(c *cli.Context) (string, func(), error) {
	if c.Bool("stdin") {
		tmp, err := os.CreateTemp("", "firmwalk-stdin-*")
		if err != nil {
			return "", nil, fmt.Errorf("create stdin buffer: %w", err)
		}
		if _, err := tmp.ReadFrom(os.Stdin); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}
		tmp.Close()
		return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
	}

	if c.NArg() == 0 {
		debug.LogScan("no target given and --stdin not set")
		return "", nil, fmt.Errorf("a target file path is required (or pass --stdin)")
	}
	return c.Args().First(), nil, nil
}
