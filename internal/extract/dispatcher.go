// Package extract implements the extractor dispatcher: for every entry of
// a scanned file map it resolves the signature's extractor (preferred,
// else default), runs it — internal function call or external subprocess
// — verifies the outcome, and records an ExtractionResult keyed by the
// entry's unique identifier. Grounded on binwalk.rs's extract() and
// extractors::common::{execute, spawn, proc_wait}.
package extract

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/debug"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// Dispatch runs extraction for every non-declined entry of fileMap and
// returns the results keyed by SignatureResult.ID.
func Dispatch(root, inputPath string, buffer []byte, fileMap signature.FileMap) (map[string]signature.ExtractionResult, error) {
	sink, err := chroot.New(root)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	results := make(map[string]signature.ExtractionResult, len(fileMap))

	for _, entry := range fileMap {
		if entry.ExtractionDeclined {
			debug.LogExtract("%s at offset %d declined extraction", entry.Name, entry.Offset)
			continue
		}
		extractor := entry.PreferredExtractor
		if extractor == nil || extractor.Kind == signature.ExtractorNone {
			debug.LogExtract("%s at offset %d has no extractor", entry.Name, entry.Offset)
			continue
		}

		result, err := dispatchOne(sink, inputPath, buffer, entry, extractor)
		if err != nil {
			debug.LogExtract("%s at offset %d: %v", entry.Name, entry.Offset, err)
			continue
		}
		debug.LogExtract("%s at offset %d: success=%v", entry.Name, entry.Offset, result.Success)
		results[entry.ID] = result
	}

	return results, nil
}

func dispatchOne(sink *chroot.Chroot, inputPath string, buffer []byte, entry signature.SignatureResult, extractor *signature.Extractor) (signature.ExtractionResult, error) {
	outputDir := filepath.Join(inputPath+".extracted", fmt.Sprintf("%X", entry.Offset))
	if err := sink.CreateDirectory(outputDir); err != nil {
		return signature.ExtractionResult{}, err
	}
	safeOutputDir := sink.ChrootedPath(outputDir)

	var result signature.ExtractionResult
	switch extractor.Kind {
	case signature.ExtractorInternal:
		result = runInternal(extractor, buffer, entry, safeOutputDir)
	case signature.ExtractorExternal:
		result = runExternal(sink, inputPath, extractor, buffer, entry, outputDir, safeOutputDir)
	default:
		return signature.ExtractionResult{}, fmt.Errorf("extract: unknown extractor kind")
	}

	if result.Success && !somethingWasExtracted(safeOutputDir) {
		result.Success = false
	}
	if !result.Success {
		os.RemoveAll(safeOutputDir)
	}

	return result, nil
}

// runInternal calls an in-process extractor function, applying the
// retry-with-full-remaining-size policy when the reported size falls
// short and the extraction otherwise failed.
func runInternal(extractor *signature.Extractor, buffer []byte, entry signature.SignatureResult, outputDir string) signature.ExtractionResult {
	result := extractor.Run(buffer, entry.Offset, outputDir)
	result.Extractor = entry.Name + "_built_in"

	remaining := len(buffer) - entry.Offset
	if !result.Success && entry.Size < remaining {
		retry := extractor.Run(buffer, entry.Offset, outputDir)
		retry.Extractor = entry.Name + "_built_in"
		retry.Size = remaining
		return retry
	}

	return result
}

func runExternal(sink *chroot.Chroot, inputPath string, extractor *signature.Extractor, buffer []byte, entry signature.SignatureResult, outputDir, safeOutputDir string) signature.ExtractionResult {
	result := signature.ExtractionResult{Extractor: entry.Name}

	carvedName := fmt.Sprintf("%s_%X.%s", entry.Name, entry.Offset, extractor.Extension)
	carvedRel := filepath.Join(outputDir, carvedName)
	safeCarved := sink.ChrootedPath(carvedRel)

	wholeFile := entry.Offset == 0 && entry.Size == len(buffer)
	if wholeFile {
		if err := sink.CreateSymlink(carvedRel, inputPath); err != nil {
			return result
		}
	} else {
		if err := sink.CarveFile(carvedRel, buffer, entry.Offset, entry.Size); err != nil {
			return result
		}
	}
	defer os.Remove(safeCarved)

	args := make([]string, len(extractor.Arguments))
	for i, a := range extractor.Arguments {
		args[i] = strings.ReplaceAll(a, signature.SourceFilePlaceholder, safeCarved)
	}

	cmd := exec.Command(extractor.Command, args...)
	cmd.Dir = safeOutputDir
	cmd.Stdout = nil
	cmd.Stderr = nil

	err := cmd.Run()
	result.Size = entry.Size
	result.SizeKnown = true
	result.OutputDirectory = safeOutputDir
	result.Success = exitAllowed(err, extractor.ExitCodes)
	result.DoNotRecurse = extractor.DoNotRecurse

	return result
}

func exitAllowed(err error, allow []int) bool {
	if err == nil {
		return true
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	code := exitErr.ExitCode()
	for _, a := range allow {
		if a == code {
			return true
		}
	}
	return false
}

// somethingWasExtracted reports whether the output directory contains at
// least one regular, non-empty file anywhere in its tree.
func somethingWasExtracted(dir string) bool {
	found := false
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil && info.Size() > 0 {
				found = true
			}
		}
		return nil
	})
	return found
}
