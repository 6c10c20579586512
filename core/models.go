package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for program records.
// It is generated using content-based hashing of the record's source identity.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// IDFromSource derives the stable ID of a program from where it came from.
// Re-ingesting the same external item always yields the same ID.
func IDFromSource(source SourceType, externalID string) ID {
	return IDFromContent(string(source) + ":" + externalID)
}

// String renders the ID as 16 lowercase hex digits.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseID parses the hex form produced by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(v), nil
}

// SourceType identifies how a program listing entered the system.
type SourceType string

const (
	SourceTypeAPI        SourceType = "api"
	SourceTypeDocument   SourceType = "document"
	SourceTypeManual     SourceType = "manual"
	SourceTypeDiscovered SourceType = "discovered"
)

// ProgramRecord represents one government support program.
// Predicates and Vector are populated by the extractor and the indexer.
type ProgramRecord struct {
	Id          ID                   `json:"id"`
	SourceType  SourceType           `json:"source_type"`
	ExternalId  string               `json:"external_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Agency      string               `json:"agency"`
	Predicates  []ConditionPredicate `json:"predicates,omitempty"`
	Vector      []float32            `json:"vector,omitempty"`
	Active      bool                 `json:"active"`
	Metadata    map[string]string    `json:"metadata,omitempty"`
	InsertedAt  time.Time            `json:"inserted_at"` // When the record was first stored
	UpdatedAt   time.Time            `json:"updated_at"`  // When the record was last stored
}

// Predicate returns the record's predicate for a field, if any.
func (r *ProgramRecord) Predicate(field PredicateField) (ConditionPredicate, bool) {
	for _, p := range r.Predicates {
		if p.Field == field {
			return p, true
		}
	}
	return ConditionPredicate{}, false
}

// SupportType returns the support category of the record, or "" when unknown.
func (r *ProgramRecord) SupportType() string {
	if p, ok := r.Predicate(PredicateSupportType); ok && len(p.Values) > 0 {
		return p.Values[0]
	}
	return ""
}

// SimilarityMatch represents a program match from vector similarity search.
type SimilarityMatch struct {
	RecordId ID
	Score    float32
}

// Candidate is one ranked entry of a CandidateSet.
type Candidate struct {
	Record  *ProgramRecord
	Score   float64
	Matched int // known profile fields the record constrains and satisfies
}

// CandidateSet is the result of one retrieval pass. It is never persisted.
type CandidateSet struct {
	Candidates []Candidate
	Total      int  // size of the filtered set before capping
	Fallback   bool // no record satisfied every filter; ranking covers the whole index
	Degraded   bool // a provider failed and ranking is predicate-only
}

// Len returns the number of ranked candidates.
func (cs *CandidateSet) Len() int {
	return len(cs.Candidates)
}

// Top returns the highest ranked candidate.
func (cs *CandidateSet) Top() (Candidate, bool) {
	if len(cs.Candidates) == 0 {
		return Candidate{}, false
	}
	return cs.Candidates[0], true
}

// IngestionProgress is the durable ingestion counter for one source.
type IngestionProgress struct {
	Source    string    `json:"source"`
	Ingested  int64     `json:"ingested"`
	Skipped   int64     `json:"skipped"`
	Queued    int64     `json:"queued"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RetryEntry is a program waiting for its embedding to be computed again.
type RetryEntry struct {
	RecordId   ID        `json:"record_id"`
	Reason     string    `json:"reason"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
