// Package signature defines the registry data model: Signature,
// SignatureResult, the confidence scale, and the Extractor descriptor
// variants that bind a registry entry to either an in-process function or
// an external command. This mirrors binwalk's signatures::common and
// extractors::common modules, re-expressed as Go's nearest equivalent to
// a tagged union (a struct with a discriminant plus the relevant payload
// fields, per the function-pointer-polymorphism note in the spec).
package signature

import "github.com/google/uuid"

// Confidence is a fixed ordinal scale used only for conflict resolution
// ordering in the scan engine; it is never user-tunable.
type Confidence uint8

const (
	ConfidenceLow     Confidence = 0
	ConfidenceMedium  Confidence = 128
	ConfidenceHigh    Confidence = 250
	ConfidenceHighest Confidence = 255
)

// ExtractorKind discriminates the Extractor variant.
type ExtractorKind int

const (
	ExtractorNone ExtractorKind = iota
	ExtractorInternal
	ExtractorExternal
)

// SourceFilePlaceholder is substituted with the carved input file's path
// in an external extractor's argument vector at spawn time.
const SourceFilePlaceholder = "%e"

// InternalFunc is the signature every internal extractor function must
// implement: decode file data starting at offset, optionally writing
// output under outputDir. outputDir == "" means a dry run: validate and
// size the format, but produce no filesystem side effects.
type InternalFunc func(data []byte, offset int, outputDir string) ExtractionResult

// Extractor describes how to extract the data identified by a signature,
// either by calling an in-process function or by spawning an external
// command against a carved copy of the data.
type Extractor struct {
	Kind ExtractorKind

	// Internal
	Run InternalFunc

	// External
	Command   string
	Arguments []string
	ExitCodes []int
	Extension string

	// DoNotRecurse disables recursive analysis of this extractor's
	// output, independent of whether extraction itself succeeded.
	DoNotRecurse bool
}

// ExtractionResult reports the outcome of running an Extractor.
type ExtractionResult struct {
	Success         bool
	Size            int  // 0 with !SizeKnown means "unknown"
	SizeKnown       bool
	Extractor       string
	OutputDirectory string
	DoNotRecurse    bool
}

// Validator validates a magic-byte candidate at offset and, on success,
// reports the fields of SignatureResult the caller must fill in itself:
// offset, size, confidence, description, and the veto/override flags.
// ID, Name, and AlwaysDisplay are auto-populated by the registry after a
// successful call, matching binwalk's signature_result_auto_populate.
type Validator func(data []byte, offset int) (SignatureResult, error)

// SignatureResult is the output of a successful Validator call.
type SignatureResult struct {
	Offset             int
	Size               int // 0 == unknown, resolved in scan engine phase 4
	Confidence         Confidence
	ID                 string
	Name               string
	Description        string
	AlwaysDisplay      bool
	ExtractionDeclined bool
	PreferredExtractor *Extractor
}

// NewID returns a fresh unique identifier for a SignatureResult, used to
// key the extraction-results table.
func NewID() string {
	return uuid.New().String()
}

// Signature is one registry entry: process-wide immutable data built
// once at registry construction.
type Signature struct {
	Name          string
	Description   string
	Magic         [][]byte
	MagicOffset   int
	Short         bool
	AlwaysDisplay bool
	Validate      Validator
	Extractor     *Extractor
}

// FileMap is the ordered, non-overlapping sequence of SignatureResults
// produced by the scan engine for one input buffer. It implements
// sort.Interface, ordered by Offset ascending (ties are broken by
// insertion order, i.e. a stable sort).
type FileMap []SignatureResult

func (m FileMap) Len() int           { return len(m) }
func (m FileMap) Less(i, j int) bool { return m[i].Offset < m[j].Offset }
func (m FileMap) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }
