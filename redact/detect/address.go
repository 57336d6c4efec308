package detect

import (
	"regexp"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// addressDetector finds street addresses: a house number followed by a
// street name with a street-type suffix, optionally with unit, city,
// state and ZIP continuation on the same line.
type addressDetector struct{}

var (
	streetRe = regexp.MustCompile(`(?i)\b\d{1,6}\s+(?:[A-Z][A-Za-z'\-]*\s+){1,4}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Circle|Cir|Place|Pl|Way|Terrace|Ter|Parkway|Pkwy|Highway|Hwy)\b\.?`)
	unitRe   = regexp.MustCompile(`(?i)^[,\s]*(?:Apt|Apartment|Suite|Ste|Unit|#)\.?\s*[A-Za-z0-9\-]+`)
	cityRe   = regexp.MustCompile(`^,\s*[A-Z][A-Za-z\s]+,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?`)
	poBoxRe  = regexp.MustCompile(`(?i)\bP\.?O\.?\s*Box\s+\d+\b`)
)

func (d *addressDetector) Source() string { return "address" }

func (d *addressDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterAddress} }

func (d *addressDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range streetRe.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		// Absorb an immediately following unit designator.
		if u := unitRe.FindStringIndex(text[end:]); u != nil {
			end += u[1]
		}
		// Absorb ", City, ST 12345" continuation.
		if c := cityRe.FindStringIndex(text[end:]); c != nil {
			end += c[1]
		}
		conf := 0.75
		if labelIs(ctx, start, end, "ADDRESS") {
			conf = 0.92
		}
		s := phi.NewSpan(text, start, end, phi.FilterAddress, conf, d.Source())
		s.Pattern = "street"
		spans = append(spans, s)
	}
	for _, m := range poBoxRe.FindAllStringIndex(text, -1) {
		if covered(spans, m[0], m[1]) {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterAddress, 0.85, d.Source())
		s.Pattern = "po-box"
		spans = append(spans, s)
	}
	return spans, nil
}

// zipDetector finds ZIP and ZIP+4 codes. A bare five-digit group is a
// weak signal on its own; confidence rises under an address label or
// following a two-letter state abbreviation.
type zipDetector struct{}

var (
	zipRe     = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	stateLeft = regexp.MustCompile(`[A-Z]{2}\s*$`)
)

func (d *zipDetector) Source() string { return "zip" }

func (d *zipDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterZIP} }

func (d *zipDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span
	for _, m := range zipRe.FindAllStringIndex(folded, -1) {
		conf := 0.35
		switch {
		case labelIs(ctx, m[0], m[1], "ZIP", "ADDRESS"):
			conf = 0.90
		case stateLeft.MatchString(surroundingLeft(text, m[0], 4)):
			conf = 0.85
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterZIP, conf, d.Source())
		s.Text = folded[m[0]:m[1]]
		s.Pattern = "zip"
		if conf < 0.5 {
			s.AmbiguousWith = []phi.FilterType{phi.FilterUniqueID}
		}
		spans = append(spans, s)
	}
	return spans, nil
}
