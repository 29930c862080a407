// Package ahocorasick implements a multi-pattern Aho-Corasick automaton
// with overlapping-match support and per-match pattern identity.
//
// It is grounded on coregx/coregex's automaton usage (NewBuilder().
// AddPattern(...).Build() returning an *Automaton searched with
// Find(haystack, at)): this module follows the same builder shape, but
// implements its own goto/fail/output tables rather than importing the
// upstream package. coregx-coregex only ever needs the overall span of a
// match (it collapses a large literal alternation into one automaton and
// asks "did any literal match, and where"), so its public surface, as
// used in that repo, never needed to expose which literal fired. The
// scan engine here must resolve every hit back to the Signature that
// contributed it (see internal/scan), which means a match needs a stable
// pattern index alongside its span — a guarantee this module provides
// directly instead of relying on an unconfirmed method on the upstream
// type.
package ahocorasick

// state is one node of the trie-turned-automaton.
type state struct {
	children map[byte]int
	fail     int
	output   []int // pattern indices that end exactly at this state
}

// Builder accumulates patterns before constructing an Automaton.
type Builder struct {
	patterns [][]byte
}

// NewBuilder returns an empty pattern builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddPattern registers pattern and returns its index, which is the value
// later reported on Match.Pattern for any hit on this exact pattern.
func (b *Builder) AddPattern(pattern []byte) int {
	idx := len(b.patterns)
	stored := make([]byte, len(pattern))
	copy(stored, pattern)
	b.patterns = append(b.patterns, stored)
	return idx
}

// Build compiles the registered patterns into an Automaton. An empty
// pattern set is valid and yields an automaton that never matches.
func (b *Builder) Build() (*Automaton, error) {
	a := &Automaton{
		states:   []state{{children: map[byte]int{}}},
		patterns: b.patterns,
	}
	for pi, pattern := range b.patterns {
		a.insert(pattern, pi)
	}
	a.buildFailureLinks()
	return a, nil
}

// Automaton is an immutable, built Aho-Corasick machine.
type Automaton struct {
	states   []state
	patterns [][]byte
}

func (a *Automaton) insert(pattern []byte, patternIndex int) {
	cur := 0
	for _, b := range pattern {
		next, ok := a.states[cur].children[b]
		if !ok {
			a.states = append(a.states, state{children: map[byte]int{}})
			next = len(a.states) - 1
			a.states[cur].children[b] = next
		}
		cur = next
	}
	a.states[cur].output = append(a.states[cur].output, patternIndex)
}

func (a *Automaton) buildFailureLinks() {
	queue := make([]int, 0, len(a.states))

	// Depth-1 states fail back to the root.
	root := &a.states[0]
	for _, child := range root.children {
		a.states[child].fail = 0
		queue = append(queue, child)
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for b, child := range a.states[cur].children {
			queue = append(queue, child)

			fail := a.states[cur].fail
			for {
				if next, ok := a.states[fail].children[b]; ok && next != child {
					a.states[child].fail = next
					break
				}
				if fail == 0 {
					a.states[child].fail = 0
					break
				}
				fail = a.states[fail].fail
			}
			a.states[child].output = append(a.states[child].output, a.states[a.states[child].fail].output...)
		}
	}
}

func (a *Automaton) step(cur int, b byte) int {
	for {
		if next, ok := a.states[cur].children[b]; ok {
			return next
		}
		if cur == 0 {
			return 0
		}
		cur = a.states[cur].fail
	}
}

// Match is one reported hit: the pattern at index Pattern occurs in
// [Start, End) of the searched haystack.
type Match struct {
	Start   int
	End     int
	Pattern int
}

// Iterator walks a haystack byte by byte, yielding every overlapping
// match in the order its end position is reached. Matches that end at the
// same position come out longest pattern first, then the shorter suffix
// patterns reached through failure links; identical patterns come out in
// the order they were added. In practice the scan engine only cares
// about Start order after its own sort phase.
type Iterator struct {
	a        *Automaton
	haystack []byte
	pos      int
	state    int
	pending  []Match
}

// Iter starts a new overlapping-match walk over haystack beginning at
// byte offset at.
func (a *Automaton) Iter(haystack []byte, at int) *Iterator {
	return &Iterator{a: a, haystack: haystack, pos: at}
}

// Next returns the next match, or nil once the haystack is exhausted.
func (it *Iterator) Next() *Match {
	for len(it.pending) == 0 && it.pos < len(it.haystack) {
		it.state = it.a.step(it.state, it.haystack[it.pos])
		it.pos++
		for _, patternIdx := range it.a.states[it.state].output {
			plen := len(it.a.patterns[patternIdx])
			it.pending = append(it.pending, Match{
				Start:   it.pos - plen,
				End:     it.pos,
				Pattern: patternIdx,
			})
		}
	}
	if len(it.pending) == 0 {
		return nil
	}
	m := it.pending[0]
	it.pending = it.pending[1:]
	return &m
}

// IsMatch reports whether any pattern occurs anywhere in haystack.
func (a *Automaton) IsMatch(haystack []byte) bool {
	return a.Iter(haystack, 0).Next() != nil
}
