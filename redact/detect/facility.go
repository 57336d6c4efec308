package detect

import (
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// facilityDetector finds hospital and clinic names. Full dictionary
// phrases match at high confidence; distinctive single tokens followed
// by an institutional word ("Hospital", "Clinic", "Medical Center")
// match at medium confidence. Facility names are emitted as NAME spans
// on the geographic tier: they identify a care location, not a person.
type facilityDetector struct{}

var institutionalWords = map[string]bool{
	"hospital": true, "clinic": true, "center": true, "centre": true,
	"medical": true, "health": true, "healthcare": true, "practice": true,
	"institute": true, "infirmary": true, "care": true,
}

func (d *facilityDetector) Source() string { return "facility" }

func (d *facilityDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterName} }

func (d *facilityDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	tokens := Tokenize(text)
	var spans []phi.Span

	// Full-phrase dictionary scan, longest window first.
	for width := vocab.MaxFacilityWords; width >= 2; width-- {
		for i := 0; i+width <= len(tokens); i++ {
			start, end := tokens[i].Start, tokens[i+width-1].End
			if strings.ContainsRune(text[start:end], '\n') || covered(spans, start, end) {
				continue
			}
			if !vocab.IsFacilityName(text[start:end]) {
				continue
			}
			s := phi.NewSpan(text, start, end, phi.FilterName, 0.90, d.Source())
			s.Priority = phi.TierGeographic
			s.Pattern = "facility-phrase"
			spans = append(spans, s)
		}
	}

	// Distinctive token + institutional word: "Mercy Hospital",
	// "Hermann Tower" does not qualify.
	for i := 0; i+1 < len(tokens); i++ {
		t, next := tokens[i], tokens[i+1]
		if covered(spans, t.Start, next.End) {
			continue
		}
		if !vocab.TitleCase(t.Text) || !vocab.IsFacilityToken(t.Text) {
			continue
		}
		if !institutionalWords[strings.ToLower(next.Text)] ||
			!sameLine(text, t.End, next.Start) {
			continue
		}
		end := next.End
		// Absorb a trailing institutional word: "Regional Medical Center".
		if i+2 < len(tokens) && institutionalWords[strings.ToLower(tokens[i+2].Text)] &&
			sameLine(text, next.End, tokens[i+2].Start) {
			end = tokens[i+2].End
		}
		s := phi.NewSpan(text, t.Start, end, phi.FilterName, 0.70, d.Source())
		s.Priority = phi.TierGeographic
		s.Pattern = "facility-token"
		spans = append(spans, s)
	}

	return spans, nil
}
