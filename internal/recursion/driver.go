// Package recursion implements the worker-pool coordinator (binwalk.rs's
// Binwalk::analyze / Binwalk::extract driver loop): a bounded-width pool
// reads each queued path into memory, runs the scan engine and extractor
// dispatcher, and — for every extraction whose DoNotRecurse is false —
// walks the result's output directory and feeds newly found regular
// files back into the queue.
package recursion

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/firmwalk/internal/debug"
	"github.com/standardbeagle/firmwalk/internal/extract"
	"github.com/standardbeagle/firmwalk/internal/scan"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// AnalysisResult is one queued path's outcome: the scanned file map and
// the per-entry extraction results, or a read error if the file could
// not be loaded.
type AnalysisResult struct {
	Path        string
	FileMap     signature.FileMap
	Extractions map[string]signature.ExtractionResult
	Err         error
}

// Config configures one driver run.
type Config struct {
	// Width is the worker pool size. Zero means use the platform's
	// reported hardware parallelism; if that is also unavailable, 1.
	Width int

	// Extract enables running the extractor dispatcher after each scan.
	// When false, files are only scanned and Extractions is always nil.
	Extract bool

	// Recurse enables walking extraction output directories and
	// feeding newly discovered files back into the queue. Has no effect
	// unless Extract is also true, since there is then nothing to walk.
	Recurse bool

	// SkipPatterns are doublestar glob patterns; a discovered path
	// matching any of them is not enqueued for recursive analysis.
	SkipPatterns []string

	// Verbose records whether the caller reports every analyzed file.
	// Run does not read it and applies no reporting suppression itself:
	// every result goes to onResult, and the caller decides what to print
	// (see ShouldReport).
	Verbose bool
}

func (c Config) width() int {
	if c.Width > 0 {
		return c.Width
	}
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

// Driver runs the worker pool against one signature registry.
type Driver struct {
	Registry *signature.Registry
	Config   Config
}

// NewDriver constructs a Driver bound to reg and cfg.
func NewDriver(reg *signature.Registry, cfg Config) *Driver {
	return &Driver{Registry: reg, Config: cfg}
}

// ShouldReport implements the reporting-suppression rule of the
// recursion driver: the first file always prints; later files print
// only in verbose mode, or when they yielded an extraction, or when
// some entry in the file map demands always-on display.
func ShouldReport(isFirst bool, verbose bool, result AnalysisResult) bool {
	if isFirst || verbose {
		return true
	}
	if len(result.Extractions) > 0 {
		return true
	}
	for _, entry := range result.FileMap {
		if entry.AlwaysDisplay {
			return true
		}
	}
	return false
}

// Run drives the worker pool to completion starting from initialPath,
// calling onResult for every analyzed file (isFirst is true only for the
// very first result delivered; ShouldReport applies the
// reporting-suppression rule to those arguments). onResult is called from the single
// coordinator goroutine — Run blocks until the queue drains and no jobs
// remain in flight.
func (d *Driver) Run(ctx context.Context, outputRoot, initialPath string, onResult func(isFirst bool, result AnalysisResult)) error {
	width := d.Config.width()
	sem := semaphore.NewWeighted(int64(width))
	resultsCh := make(chan AnalysisResult)

	// seenContent and pending are touched only from this goroutine: every
	// submit happens synchronously inside the receive loop below, so
	// neither needs a mutex.
	seenContent := make(map[uint64]struct{})

	submit := func(path string) {
		debug.LogRecursion("submit %s", path)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					// A worker panic is an unrecoverable fault: exit
					// immediately rather than trying to thread the
					// failure back through resultsCh, which the
					// coordinator's pending count does not expect.
					debug.FatalAndExit("recursion worker panic: %v", r)
				}
			}()

			if err := sem.Acquire(ctx, 1); err != nil {
				resultsCh <- AnalysisResult{Path: path, Err: err}
				return
			}
			result := d.analyzeFile(outputRoot, path)
			sem.Release(1)

			debug.LogRecursion("analyzed %s: %d entries, %d extractions", path, len(result.FileMap), len(result.Extractions))
			resultsCh <- result
		}()
	}

	submit(initialPath)
	pending := 1

	first := true
	for pending > 0 {
		result := <-resultsCh
		pending--

		onResult(first, result)
		first = false

		if !d.Config.Recurse || result.Err != nil {
			continue
		}

		for _, ext := range result.Extractions {
			if ext.DoNotRecurse || !ext.Success || ext.OutputDirectory == "" {
				continue
			}
			d.walkForRecursion(ext.OutputDirectory, func(path string) {
				if d.matchesSkipPattern(path) {
					return
				}
				content, err := os.ReadFile(path)
				if err != nil {
					return
				}
				h := xxhash.Sum64(content)
				if _, dup := seenContent[h]; dup {
					return
				}
				seenContent[h] = struct{}{}

				pending++
				submit(path)
			})
		}
	}

	return nil
}

func (d *Driver) analyzeFile(outputRoot, path string) AnalysisResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return AnalysisResult{Path: path, Err: err}
	}

	fileMap := scan.Run(data, d.Registry)

	if !d.Config.Extract {
		return AnalysisResult{Path: path, FileMap: fileMap}
	}

	extractions, err := extract.Dispatch(outputRoot, path, data, fileMap)
	if err != nil {
		return AnalysisResult{Path: path, FileMap: fileMap, Err: err}
	}

	return AnalysisResult{Path: path, FileMap: fileMap, Extractions: extractions}
}

// walkForRecursion calls visit for every regular, non-empty file under
// dir.
func (d *Driver) walkForRecursion(dir string, visit func(path string)) {
	filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry == nil {
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			return nil
		}
		visit(path)
		return nil
	})
}

func (d *Driver) matchesSkipPattern(path string) bool {
	for _, pattern := range d.Config.SkipPatterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
