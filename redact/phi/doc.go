// Package phi defines the span model shared by every stage of the
// redaction engine: the PHI filter-type taxonomy, the Span value type
// with its overlap and dominance algebra, and the per-request
// RedactionContext passed to detectors and arbitration stages.
//
// Spans are half-open byte ranges over the source document. The final
// span set produced by arbitration is pairwise non-overlapping, sorted
// ascending by start offset, and immutable except for the assigned
// replacement string.
package phi
