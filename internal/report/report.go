// Package report renders scan/extraction outcomes for the command-line
// front end: the append-only JSON result log of spec.md §6, the
// `--list` signature table, and the per-file status-glyph summary shown
// during a run. Grounded on original_source/src/json.rs's append/
// rewrite-trailing-bracket algorithm and on the teacher's
// internal/display package for table rendering conventions.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/standardbeagle/firmwalk/internal/recursion"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

const (
	jsonListStart    = "[\n"
	jsonListEnd      = "\n]"
	jsonCommaAndList = ",\n"
)

// Entry is one JSON-logged record: exactly one of Analysis is set (the
// union spec.md describes; the entropy variant is out of scope here).
type Entry struct {
	Path        string                                `json:"path"`
	FileMap     signature.FileMap                     `json:"file_map"`
	Extractions map[string]signature.ExtractionResult `json:"extractions,omitempty"`
}

// AppendJSON appends one Entry to the named JSON log file, maintaining
// the invariant that the file is a syntactically valid JSON array after
// every write: a fresh file gets "[\n<entry>\n]"; an existing file has
// its trailing "]" overwritten with ",\n<entry>\n]".
func AppendJSON(path string, entry Entry) error {
	encoded, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("report: open log %s: %w", path, err)
	}
	defer f.Close()

	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("report: seek log %s: %w", path, err)
	}

	if pos == 0 {
		if _, err := f.WriteString(jsonListStart); err != nil {
			return fmt.Errorf("report: write log %s: %w", path, err)
		}
	} else {
		if _, err := f.Seek(pos-int64(len(jsonListEnd)), io.SeekStart); err != nil {
			return fmt.Errorf("report: rewind log %s: %w", path, err)
		}
		if _, err := f.WriteString(jsonCommaAndList); err != nil {
			return fmt.Errorf("report: write log %s: %w", path, err)
		}
	}

	if _, err := f.Write(encoded); err != nil {
		return fmt.Errorf("report: write log %s: %w", path, err)
	}
	if _, err := f.WriteString(jsonListEnd); err != nil {
		return fmt.Errorf("report: write log %s: %w", path, err)
	}
	return nil
}

// EntryFromAnalysis converts a recursion.AnalysisResult into the logged
// JSON shape.
func EntryFromAnalysis(result recursion.AnalysisResult) Entry {
	return Entry{
		Path:        result.Path,
		FileMap:     result.FileMap,
		Extractions: result.Extractions,
	}
}

// signatureRow is one rendered line of the --list table.
type signatureRow struct {
	Description string
	Name        string
	Extractor   string
}

// WriteSignatureList renders the --list table: description, name, and
// extractor utility (an external command's name, "Built-in" for an
// internal extractor, or "None"), sorted case-insensitively by
// description, followed by a total count.
func WriteSignatureList(w io.Writer, sigs []signature.Signature) {
	rows := make([]signatureRow, 0, len(sigs))
	for _, sig := range sigs {
		rows = append(rows, signatureRow{
			Description: sig.Description,
			Name:        sig.Name,
			Extractor:   extractorLabel(sig.Extractor),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Description) < strings.ToLower(rows[j].Description)
	})

	descWidth, nameWidth := len("DESCRIPTION"), len("NAME")
	for _, r := range rows {
		descWidth = maxInt(descWidth, len(r.Description))
		nameWidth = maxInt(nameWidth, len(r.Name))
	}

	fmt.Fprintf(w, "%-*s  %-*s  %s\n", descWidth, "DESCRIPTION", nameWidth, "NAME", "EXTRACTOR")
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %-*s  %s\n", descWidth, r.Description, nameWidth, r.Name, r.Extractor)
	}
	fmt.Fprintf(w, "\n%d signatures registered\n", len(rows))
}

func extractorLabel(e *signature.Extractor) string {
	if e == nil {
		return "None"
	}
	switch e.Kind {
	case signature.ExtractorInternal:
		return "Built-in"
	case signature.ExtractorExternal:
		return e.Command
	default:
		return "None"
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Status glyphs for the per-file extraction summary.
const (
	GlyphSuccess = "+"
	GlyphDecline = "-"
	GlyphFailure = "x"
)

// WriteAnalysis prints one analyzed file's summary: the path, then one
// line per file-map entry showing its offset, description, size (raw
// and humanized), and a status glyph reflecting the matching extraction
// outcome (declined, failed, succeeded, or no extractor at all).
func WriteAnalysis(w io.Writer, result recursion.AnalysisResult) {
	fmt.Fprintf(w, "%s\n", result.Path)
	if result.Err != nil {
		fmt.Fprintf(w, "  ! %v\n", result.Err)
		return
	}

	for _, entry := range result.FileMap {
		glyph := " "
		if ext, ok := result.Extractions[entry.ID]; ok {
			if ext.Success {
				glyph = GlyphSuccess
			} else {
				glyph = GlyphFailure
			}
		} else if entry.ExtractionDeclined {
			glyph = GlyphDecline
		}

		size := "unknown size"
		if entry.Size > 0 {
			size = humanize.Bytes(uint64(entry.Size))
		}
		fmt.Fprintf(w, "  %s 0x%-8X %-40s %s\n", glyph, entry.Offset, entry.Description, size)
	}
}
