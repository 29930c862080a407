// Package builtin implements the internal (in-process) extractors: pure
// functions matching signature.InternalFunc, each grounded on its
// original_source/src/extractors/*.rs counterpart.
package builtin

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// romfsEntry is one directory-tree node collected by walkRomFSEntries.
type romfsEntry struct {
	name          string
	offset        int // absolute into romfsData
	size          int
	directory     bool
	symlink       bool
	regular       bool
	executable    bool
	symlinkTarget string
	children      []romfsEntry
}

// ExtractRomFS implements signature.InternalFunc for RomFS filesystems.
// Dry-run (outputDir == "") parses and sizes the image without writing
// anything; a non-empty outputDir additionally walks and extracts the
// directory tree, confined to a chroot rooted at outputDir, under a
// subdirectory named after the volume.
func ExtractRomFS(data []byte, offset int, outputDir string) signature.ExtractionResult {
	header, err := formats.ParseRomFSHeader(data[offset:])
	if err != nil {
		return signature.ExtractionResult{}
	}

	end := offset + header.ImageSize
	if end > len(data) {
		return signature.ExtractionResult{}
	}
	romfsData := data[offset:end]

	root, err := walkRomFSEntries(romfsData, header.HeaderSize, map[int]bool{})
	if err != nil {
		return signature.ExtractionResult{}
	}

	result := signature.ExtractionResult{
		Success:   true,
		Size:      header.ImageSize,
		SizeKnown: true,
	}

	if outputDir == "" {
		return result
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}

	if err := sink.CreateDirectory(header.VolumeName); err != nil {
		return signature.ExtractionResult{}
	}

	count := extractRomFSEntries(sink, romfsData, root, header.VolumeName)
	if count == 0 {
		result.Success = false
		return result
	}

	result.OutputDirectory = outputDir
	return result
}

// walkRomFSEntries recursively decodes the linked list of file entries
// starting at offset (relative to romfsData's own base). visited guards
// against a directory entry whose child info offset points back at an
// already-processed header, which would otherwise recurse forever.
func walkRomFSEntries(romfsData []byte, offset int, visited map[int]bool) ([]romfsEntry, error) {
	var out []romfsEntry
	fileOffset := offset

	for fileOffset != 0 && len(romfsData) > fileOffset {
		if visited[fileOffset] {
			break
		}
		visited[fileOffset] = true

		header, err := formats.ParseRomFSFileEntry(romfsData[fileOffset:])
		if err != nil {
			break
		}

		entry := romfsEntry{
			name:       header.Name,
			size:       header.Size,
			offset:     fileOffset + header.DataOffset,
			directory:  header.Directory,
			symlink:    header.Symlink,
			regular:    header.Regular,
			executable: header.Executable,
		}

		if entry.offset+entry.size > len(romfsData) {
			return nil, fmt.Errorf("builtin: romfs: invalid offset/size for %q", entry.name)
		}

		if entry.name != "." && entry.name != ".." {
			if entry.symlink {
				entry.symlinkTarget = string(romfsData[entry.offset : entry.offset+entry.size])
			}
			if entry.directory {
				children, err := walkRomFSEntries(romfsData, header.Info, visited)
				if err != nil {
					return nil, err
				}
				entry.children = children
			}
			if entry.directory || entry.symlink || entry.regular {
				out = append(out, entry)
			}
		}

		fileOffset = header.NextHeaderOffset
	}

	return out, nil
}

// extractRomFSEntries writes entries through sink, recursing into
// directories, and returns the total count of filesystem objects
// created.
func extractRomFSEntries(sink *chroot.Chroot, romfsData []byte, entries []romfsEntry, baseDir string) int {
	count := 0

	for _, entry := range entries {
		relPath := baseDir + "/" + entry.name

		var err error
		switch {
		case entry.directory:
			err = sink.CreateDirectory(relPath)
		case entry.symlink:
			err = sink.CreateSymlink(relPath, entry.symlinkTarget)
		case entry.regular:
			err = sink.CarveFile(relPath, romfsData, entry.offset, entry.size)
		default:
			continue
		}

		if err != nil {
			continue
		}
		count++

		if entry.directory && len(entry.children) > 0 {
			count += extractRomFSEntries(sink, romfsData, entry.children, relPath)
		}
		if entry.regular && entry.executable {
			sink.MakeExecutable(relPath)
		}
	}

	return count
}
