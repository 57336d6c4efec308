package detect

import (
	"regexp"

	"github.com/dochatty/vulpes/redact/phi"
)

// uniqueIDDetector is the last-resort fallback: long mixed
// alphanumeric tokens that look machine-assigned (UUIDs, long hex,
// dense letter-digit mixes) and were not claimed by a stronger
// detector. It emits at the lowest tier so any specific detection
// dominates it during arbitration.
type uniqueIDDetector struct{}

var (
	uuidRe    = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	longHexRe = regexp.MustCompile(`\b[0-9a-fA-F]{16,64}\b`)
	mixedRe   = regexp.MustCompile(`\b(?:[A-Z]+\d|\d+[A-Z])[A-Z0-9]{6,30}\b`)
)

func (d *uniqueIDDetector) Source() string { return "unique-id" }

func (d *uniqueIDDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterUniqueID} }

func (d *uniqueIDDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range uuidRe.FindAllStringIndex(text, -1) {
		s := phi.NewSpan(text, m[0], m[1], phi.FilterUniqueID, 0.90, d.Source())
		s.Pattern = "uuid"
		spans = append(spans, s)
	}
	for _, m := range longHexRe.FindAllStringIndex(text, -1) {
		if covered(spans, m[0], m[1]) || !containsDigit(text[m[0]:m[1]]) {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterUniqueID, 0.70, d.Source())
		s.Pattern = "long-hex"
		spans = append(spans, s)
	}
	for _, m := range mixedRe.FindAllStringIndex(text, -1) {
		if covered(spans, m[0], m[1]) {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterUniqueID, 0.65, d.Source())
		s.Pattern = "mixed-alnum"
		spans = append(spans, s)
	}
	return spans, nil
}
