package phi

import (
	"sort"
	"strings"
)

// Span is the atomic unit of detection: a half-open byte range over the
// source document tagged with a PHI category, a confidence and a
// priority tier.
type Span struct {
	// Text is the matched substring after normalisation (OCR confusion
	// folding, case folding for dictionary hits).
	Text string `json:"text"`

	// OriginalValue is the substring exactly as it appears in the source.
	OriginalValue string `json:"originalValue"`

	// CharStart and CharEnd are half-open byte offsets into the source.
	CharStart int `json:"charStart"`
	CharEnd   int `json:"charEnd"`

	// FilterType is the assigned PHI category.
	FilterType FilterType `json:"filterType"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`

	// Priority is the tier used for overlap resolution; higher wins.
	Priority int `json:"priority"`

	// Context holds up to contextRadius bytes of surrounding text on
	// each side, used by later arbitration stages.
	Context string `json:"context,omitempty"`

	// MatchSource identifies the detector that produced the span.
	MatchSource string `json:"matchSource"`

	// Pattern is the id of the pattern that fired, when applicable.
	Pattern string `json:"pattern,omitempty"`

	// AmbiguousWith lists alternative categories the detector considered
	// plausible; resolved by the vector disambiguation stage.
	AmbiguousWith []FilterType `json:"ambiguousWith,omitempty"`

	// DisambiguationScore is set by the vector disambiguation stage.
	DisambiguationScore float64 `json:"disambiguationScore,omitempty"`

	// Kind is an optional sub-tag (for dates: DOB, visit, discharge).
	Kind string `json:"kind,omitempty"`

	// Replacement is assigned by the replacement service after the span
	// set is frozen; empty until then.
	Replacement string `json:"replacement,omitempty"`
}

// contextRadius is the number of bytes of surrounding text captured on
// each side of a span.
const contextRadius = 32

// NewSpan builds a span over source[start:end) with the surrounding
// context captured and the default tier for the category.
func NewSpan(source string, start, end int, ft FilterType, confidence float64, matchSource string) Span {
	original := source[start:end]
	return Span{
		Text:          original,
		OriginalValue: original,
		CharStart:     start,
		CharEnd:       end,
		FilterType:    ft,
		Confidence:    clampConfidence(confidence),
		Priority:      ft.Tier(),
		Context:       surrounding(source, start, end),
		MatchSource:   matchSource,
	}
}

func surrounding(source string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(source) {
		hi = len(source)
	}
	return source[lo:hi]
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// Len returns the byte length of the span.
func (s Span) Len() int { return s.CharEnd - s.CharStart }

// Overlaps reports whether the two half-open ranges intersect.
func (s Span) Overlaps(o Span) bool {
	return s.CharStart < o.CharEnd && o.CharStart < s.CharEnd
}

// Covers reports whether s fully contains o.
func (s Span) Covers(o Span) bool {
	return s.CharStart <= o.CharStart && o.CharEnd <= s.CharEnd
}

// Adjacent reports whether o begins exactly where s ends.
func (s Span) Adjacent(o Span) bool { return s.CharEnd == o.CharStart }

// Union merges two overlapping or adjacent same-type spans into one
// covering both ranges. Confidence is the max of the pair; the earlier
// match source is kept.
func (s Span) Union(o Span, source string) Span {
	start, end := s.CharStart, s.CharEnd
	if o.CharStart < start {
		start = o.CharStart
	}
	if o.CharEnd > end {
		end = o.CharEnd
	}
	merged := s
	if o.CharStart < s.CharStart {
		merged = o
	}
	merged.CharStart = start
	merged.CharEnd = end
	merged.OriginalValue = source[start:end]
	merged.Text = merged.OriginalValue
	if o.Confidence > s.Confidence {
		merged.Confidence = o.Confidence
	} else {
		merged.Confidence = s.Confidence
	}
	if s.Priority > merged.Priority {
		merged.Priority = s.Priority
	}
	if o.Priority > merged.Priority {
		merged.Priority = o.Priority
	}
	merged.Context = surrounding(source, start, end)
	merged.Replacement = ""
	return merged
}

// CompareDominance returns a negative value when a dominates b, positive
// when b dominates a, and zero only for identical keys. The total order
// is priority, then length, then confidence, then start offset, with the
// match source as the final lexicographic tie-break so arbitration is
// deterministic regardless of detector scheduling.
func CompareDominance(a, b Span) int {
	if a.Priority != b.Priority {
		return b.Priority - a.Priority
	}
	if a.Len() != b.Len() {
		return b.Len() - a.Len()
	}
	if a.Confidence != b.Confidence {
		if a.Confidence > b.Confidence {
			return -1
		}
		return 1
	}
	if a.CharStart != b.CharStart {
		return a.CharStart - b.CharStart
	}
	return strings.Compare(a.MatchSource, b.MatchSource)
}

// SortByStart orders spans ascending by start offset, with the dominance
// order breaking ties so the result is total.
func SortByStart(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].CharStart != spans[j].CharStart {
			return spans[i].CharStart < spans[j].CharStart
		}
		return CompareDominance(spans[i], spans[j]) < 0
	})
}

// NonOverlapping reports whether a start-sorted span set is pairwise
// disjoint.
func NonOverlapping(spans []Span) bool {
	for i := 1; i < len(spans); i++ {
		if spans[i].CharStart < spans[i-1].CharEnd {
			return false
		}
	}
	return true
}

// InBounds reports whether the span's range is valid for a source of the
// given length.
func (s Span) InBounds(sourceLen int) bool {
	return 0 <= s.CharStart && s.CharStart < s.CharEnd && s.CharEnd <= sourceLen
}
