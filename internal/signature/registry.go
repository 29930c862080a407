package signature

import "strings"

// Registry is the flat, process-wide-immutable table of supported
// formats, already partitioned into short vs. swept signatures and
// indexed by pattern position for O(1) lookup on the scan engine's hot
// path (the pattern-index -> Signature map the spec allows as either a
// HashMap or a position-indexed slice; a slice is used here since pattern
// index is dense and assigned by Registry itself).
type Registry struct {
	Short    []Signature
	Swept    []Signature
	Patterns [][]byte
	bySig    []*Signature // parallel to Patterns, by pattern index
	Count    int
}

// Build filters all known signatures through include/exclude (case-
// insensitive name lists; include wins over exclude; both empty selects
// everything) and partitions the surviving set into short signatures and
// the combined pattern vector swept signatures contribute to.
func Build(all []Signature, include, exclude []string) *Registry {
	r := &Registry{
		// Swept is pre-sized to its worst-case length (every signature
		// survives the filter and none are short) so the append below
		// never reallocates the backing array: sigCopy takes the address
		// of a slot in Swept and that address must stay valid for every
		// later append to Patterns/bySig in the same loop.
		Swept: make([]Signature, 0, len(all)),
	}
	inc := toLowerSet(include)
	exc := toLowerSet(exclude)

	for i := range all {
		sig := all[i]
		if !selected(sig.Name, inc, exc) {
			continue
		}
		r.Count++

		if sig.Short {
			r.Short = append(r.Short, sig)
			continue
		}

		r.Swept = append(r.Swept, sig)
		sigCopy := &r.Swept[len(r.Swept)-1]
		for _, magic := range sig.Magic {
			r.Patterns = append(r.Patterns, magic)
			r.bySig = append(r.bySig, sigCopy)
		}
	}
	return r
}

// SignatureForPattern resolves a pattern index (as reported by an
// Aho-Corasick match) back to the Signature that contributed it.
func (r *Registry) SignatureForPattern(patternIndex int) *Signature {
	if patternIndex < 0 || patternIndex >= len(r.bySig) {
		return nil
	}
	return r.bySig[patternIndex]
}

func selected(name string, include, exclude map[string]struct{}) bool {
	lname := strings.ToLower(name)
	if len(include) > 0 {
		_, ok := include[lname]
		return ok
	}
	if len(exclude) > 0 {
		_, ok := exclude[lname]
		return !ok
	}
	return true
}

func toLowerSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return set
}
