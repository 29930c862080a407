// Package config loads firmwalk's run configuration: an optional
// .firmwalk.toml file supplying defaults, layered under whatever the
// CLI flags explicitly set. Grounded on the teacher's internal/config
// package (LoadWithRoot / loadConfigWithOverrides's config-then-flags
// layering) re-expressed with pelletier/go-toml/v2 instead of the
// teacher's KDL reader, per SPEC_FULL.md §6.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is the config file name looked for in the current
// directory when --config is not given.
const DefaultConfigPath = ".firmwalk.toml"

// DefaultExtractionDirectory is the root of the extraction tree when
// --directory is not given.
const DefaultExtractionDirectory = "extractions"

// Config is the merged run configuration: TOML file defaults with CLI
// flag overrides already applied.
type Config struct {
	Threads      int      `toml:"threads"`
	Directory    string   `toml:"directory"`
	Include      []string `toml:"include"`
	Exclude      []string `toml:"exclude"`
	SkipPatterns []string `toml:"skip_patterns"`
	Verbose      bool     `toml:"verbose"`
	Quiet        bool     `toml:"quiet"`
	Extract      bool     `toml:"extract"`
	Recurse      bool     `toml:"matryoshka"`
	LogPath      string   `toml:"log"`
}

// Default returns the configuration used when no file and no overrides
// are supplied.
func Default() Config {
	return Config{
		Threads:   runtime.NumCPU(),
		Directory: DefaultExtractionDirectory,
	}
}

// Load reads path as a TOML file and merges it over Default(). A
// missing file at the default path is not an error — Default() is
// returned unchanged; a missing file at an explicitly-requested path
// is, since the caller asked for a specific file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Overrides carries the subset of CLI flags that, when explicitly set,
// take precedence over whatever Load produced. Zero-value fields (an
// unset IntPtr/StringPtr/etc.) leave the loaded config field untouched
// — this is why each field here is a pointer or nil-able slice, unlike
// Config's plain fields.
type Overrides struct {
	Threads      *int
	Directory    *string
	Include      []string
	Exclude      []string
	SkipPatterns []string
	Verbose      *bool
	Quiet        *bool
	Extract      *bool
	Recurse      *bool
	LogPath      *string
}

// Apply layers o over cfg: every non-nil/non-empty override field wins,
// except SkipPatterns, which are appended to cfg's own patterns.
func Apply(cfg Config, o Overrides) Config {
	if o.Threads != nil {
		cfg.Threads = *o.Threads
	}
	if o.Directory != nil {
		cfg.Directory = *o.Directory
	}
	if len(o.Include) > 0 {
		cfg.Include = o.Include
	}
	if len(o.Exclude) > 0 {
		cfg.Exclude = o.Exclude
	}
	if len(o.SkipPatterns) > 0 {
		cfg.SkipPatterns = append(append([]string{}, cfg.SkipPatterns...), o.SkipPatterns...)
	}
	if o.Verbose != nil {
		cfg.Verbose = *o.Verbose
	}
	if o.Quiet != nil {
		cfg.Quiet = *o.Quiet
	}
	if o.Extract != nil {
		cfg.Extract = *o.Extract
	}
	if o.Recurse != nil {
		cfg.Recurse = *o.Recurse
	}
	if o.LogPath != nil {
		cfg.LogPath = *o.LogPath
	}

	// include/exclude are mutually exclusive per spec.md §6; include wins
	// when both are set.
	if len(cfg.Include) > 0 {
		cfg.Exclude = nil
	}

	if cfg.Threads <= 0 {
		cfg.Threads = runtime.NumCPU()
	}
	if cfg.Directory == "" {
		cfg.Directory = DefaultExtractionDirectory
	}
	return cfg
}
