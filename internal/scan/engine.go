// Package scan implements the four-phase scan engine of binwalk.rs's
// scan(): short-signature probing at fixed offsets, an Aho-Corasick sweep
// over every remaining signature's magic bytes, sort-and-deduplicate
// conflict resolution, and size inference for entries that report no
// size of their own.
package scan

import (
	"math"
	"sort"

	"github.com/standardbeagle/firmwalk/internal/ahocorasick"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// Run executes all four phases against buffer using registry and returns
// the final, ordered, non-overlapping file map.
func Run(buffer []byte, reg *signature.Registry) signature.FileMap {
	var fileMap signature.FileMap

	fileMap = append(fileMap, shortSignaturePhase(buffer, reg)...)
	fileMap = append(fileMap, sweepPhase(buffer, reg)...)

	fileMap = sortAndDedupe(buffer, fileMap)
	inferSizes(buffer, fileMap)

	return fileMap
}

// shortSignaturePhase is phase 1: short signatures are tested only at
// their declared magic offset, never swept across the whole buffer. At
// most one result is accepted per signature (first matching magic wins).
func shortSignaturePhase(buffer []byte, reg *signature.Registry) signature.FileMap {
	var out signature.FileMap

	for i := range reg.Short {
		sig := &reg.Short[i]
		for _, magic := range sig.Magic {
			start := sig.MagicOffset
			end := start + len(magic)
			if start < 0 || end > len(buffer) {
				continue
			}
			if !equalBytes(buffer[start:end], magic) {
				continue
			}

			result, err := sig.Validate(buffer, start)
			if err != nil {
				continue
			}
			populate(&result, sig)
			out = append(out, result)
			break
		}
	}

	return out
}

// sweepPhase is phase 2: one Aho-Corasick walk over every swept
// signature's magic patterns, with a watermark that prunes re-matches
// inside an already-accepted region. The watermark is opportunistic: a
// validator is free to report an offset earlier than the magic, so it
// only prunes obvious interior re-matches, never guarantees correctness
// (final correctness is phase 3's job).
func sweepPhase(buffer []byte, reg *signature.Registry) signature.FileMap {
	if len(reg.Patterns) == 0 {
		return nil
	}

	b := ahocorasick.NewBuilder()
	for _, p := range reg.Patterns {
		b.AddPattern(p)
	}
	automaton, _ := b.Build()

	var out signature.FileMap
	nextValidOffset := 0
	lastStart := -1

	it := automaton.Iter(buffer, 0)
	for m := it.Next(); m != nil; m = it.Next() {
		// A match starting where the last accepted one started is still
		// validated, so phase 3 can choose between same-offset results by
		// confidence.
		if m.Start < nextValidOffset && m.Start != lastStart {
			continue
		}

		sig := reg.SignatureForPattern(m.Pattern)
		if sig == nil {
			continue
		}

		result, err := sig.Validate(buffer, m.Start)
		if err != nil {
			continue
		}
		populate(&result, sig)
		out = append(out, result)

		lastStart = m.Start
		nextValidOffset = result.Offset + result.Size
	}

	return out
}

// populate fills the registry-owned fields of a validator's result,
// mirroring binwalk's signature_result_auto_populate.
func populate(result *signature.SignatureResult, sig *signature.Signature) {
	result.ID = signature.NewID()
	result.Name = sig.Name
	result.AlwaysDisplay = sig.AlwaysDisplay
	if result.PreferredExtractor == nil {
		result.PreferredExtractor = sig.Extractor
	}
}

// sortAndDedupe is phase 3.
func sortAndDedupe(buffer []byte, fileMap signature.FileMap) signature.FileMap {
	sort.Stable(fileMap)

	kept := make(signature.FileMap, 0, len(fileMap))
	nextValidOffset := 0

	for i := 0; i < len(fileMap); i++ {
		entry := fileMap[i]

		// Same-offset tie: keep the highest confidence, first-come on a
		// further tie. Peek ahead and skip any same-offset loser.
		for i+1 < len(fileMap) && fileMap[i+1].Offset == entry.Offset {
			challenger := fileMap[i+1]
			if challenger.Confidence > entry.Confidence {
				entry = challenger
			}
			i++
		}

		if entry.Offset < nextValidOffset {
			continue
		}

		end := int64(entry.Offset) + int64(entry.Size)
		if end > int64(len(buffer)) || end > math.MaxInt {
			continue
		}

		kept = append(kept, entry)
		nextValidOffset = entry.Offset + entry.Size
	}

	return kept
}

// inferSizes is phase 4: a zero-size entry takes the offset of the next
// at-least-medium-confidence entry as its own end, or the buffer's end
// if none follows. This is an over-approximation by design (spec.md's
// documented tradeoff): it errs toward including trailing bytes rather
// than truncating a payload whose true length was never reported.
func inferSizes(buffer []byte, fileMap signature.FileMap) {
	for i := range fileMap {
		if fileMap[i].Size != 0 {
			continue
		}

		size := len(buffer) - fileMap[i].Offset
		for j := i + 1; j < len(fileMap); j++ {
			if fileMap[j].Confidence >= signature.ConfidenceMedium {
				size = fileMap[j].Offset - fileMap[i].Offset
				break
			}
		}
		fileMap[i].Size = size
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
