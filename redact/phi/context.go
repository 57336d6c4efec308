package phi

// Scope controls the horizon over which replacement tokens are reused.
type Scope string

const (
	// ScopeDocument resets counters and the value-to-token table per document.
	ScopeDocument Scope = "PER_DOCUMENT"

	// ScopeSession reuses counters across all documents sharing a session id.
	// The mapping table is kept in memory only.
	ScopeSession Scope = "PER_SESSION"

	// ScopePolicy is session-scoped and persisted; the replacement service
	// exposes the table so the caller can save and restore it.
	ScopePolicy Scope = "PER_POLICY"
)

// Valid reports whether s is a recognised scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeDocument, ScopeSession, ScopePolicy:
		return true
	}
	return false
}

// FieldRegion associates a field label found in the document (for
// example "Patient:", "DOB:", "MRN:") with the byte range of the label
// itself and the byte range of the labelled value that follows it on
// the same line.
type FieldRegion struct {
	// Label is the canonical form of the label (for example "SSN" for
	// both "SSN:" and "Social Security Number:").
	Label string

	// LabelStart and LabelEnd delimit the label text including the colon.
	LabelStart int
	LabelEnd   int

	// ValueStart and ValueEnd delimit the labelled value region, running
	// from the first non-space byte after the colon to the end of line.
	ValueStart int
	ValueEnd   int
}

// FieldMap is the set of labelled regions discovered by the
// field-context detector, ordered by label start.
type FieldMap []FieldRegion

// RegionAt returns the field region whose value range contains the
// half-open range [start,end), or nil when none does.
func (fm FieldMap) RegionAt(start, end int) *FieldRegion {
	for i := range fm {
		r := &fm[i]
		if start >= r.ValueStart && end <= r.ValueEnd {
			return r
		}
	}
	return nil
}

// LabelCovering returns the field region whose label range exactly
// equals [start,end), or nil.
func (fm FieldMap) LabelCovering(start, end int) *FieldRegion {
	for i := range fm {
		r := &fm[i]
		if r.LabelStart == start && labelTextEnd(r) == end {
			return r
		}
	}
	return nil
}

// labelTextEnd is the end of the label excluding the trailing colon.
func labelTextEnd(r *FieldRegion) int {
	if r.LabelEnd > r.LabelStart && r.LabelEnd-1 >= 0 {
		return r.LabelEnd - 1
	}
	return r.LabelEnd
}

// Statistics accumulates per-stage counters and anomaly notes for a
// single request. It feeds the result breakdown, the receipt and tests;
// it is never consulted by detectors.
type Statistics struct {
	// DetectorSpans counts raw spans per detector before arbitration.
	DetectorSpans map[string]int

	// StageDropped counts spans removed per arbitration stage.
	StageDropped map[string]int

	// Anomalies records invariant repairs performed during arbitration,
	// such as merging overlapping same-source spans.
	Anomalies []string

	// FaultedDetectors lists detectors disabled mid-request after an
	// internal failure.
	FaultedDetectors []string
}

// NewStatistics returns an empty statistics record.
func NewStatistics() *Statistics {
	return &Statistics{
		DetectorSpans: make(map[string]int),
		StageDropped:  make(map[string]int),
	}
}

// CountDetector records n raw spans for the named detector.
func (st *Statistics) CountDetector(source string, n int) {
	st.DetectorSpans[source] += n
}

// CountDropped records n spans removed by the named stage.
func (st *Statistics) CountDropped(stage string, n int) {
	if n > 0 {
		st.StageDropped[stage] += n
	}
}

// Anomaly records an invariant repair note.
func (st *Statistics) Anomaly(note string) {
	st.Anomalies = append(st.Anomalies, note)
}

// Context is the per-request scratchpad passed to every detector and
// arbitration stage. It is created at request entry and discarded at
// return; ownership of the input text stays with the caller.
type Context struct {
	SessionID  string
	DocumentID string

	// Scope controls replacement-token reuse for this request.
	Scope Scope

	// FieldMap holds the labelled regions discovered by the
	// field-context detector.
	FieldMap FieldMap

	// DocumentVocabulary is the set of normalised words of the
	// medical-term occurrences in this document, recorded by the
	// document-vocabulary arbitration stage. That stage suppresses
	// name-family spans lying inside such an occurrence.
	DocumentVocabulary map[string]struct{}

	// Statistics collects per-stage counters for tests and receipts.
	Statistics *Statistics
}

// NewContext returns a context with the given ids and scope and empty
// working state.
func NewContext(sessionID, documentID string, scope Scope) *Context {
	return &Context{
		SessionID:          sessionID,
		DocumentID:         documentID,
		Scope:              scope,
		DocumentVocabulary: make(map[string]struct{}),
		Statistics:         NewStatistics(),
	}
}
