package detect

import (
	"regexp"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// ageDetector finds stated patient ages. Every age is emitted with the
// numeric value in the Kind sub-tag; the post-filter drops ages at or
// below the policy age cap, so "92-year-old" is redacted under the
// default cap of 89 and "85-year-old" is left alone.
type ageDetector struct{}

// The patterns run on the digit-folded view, where "old" reads "01d",
// "yo" reads "y0" and "AGE" reads "A6E", so each keyword letter that
// folds to a digit also accepts that digit.
var agePatterns = []struct {
	re      *regexp.Regexp
	pattern string
	conf    float64
}{
	{regexp.MustCompile(`\b(\d{1,3})[-\s]year[-\s][o0][l1]d\b`), "age-year-old", 0.90},
	{regexp.MustCompile(`\b(\d{1,3})\s*(?:y[o0]|y/[o0]|y\.[o0]\.)\b`), "age-yo", 0.85},
	{regexp.MustCompile(`(?i)\ba[g6]e[:\s]+(\d{1,3})\b`), "age-labelled", 0.90},
	{regexp.MustCompile(`(?i)\ba[g6]ed\s+(\d{1,3})\b`), "age-aged", 0.85},
}

func (d *ageDetector) Source() string { return "age" }

func (d *ageDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterAgeOver89} }

func (d *ageDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span
	for _, p := range agePatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(folded, -1) {
			numStart, numEnd := m[2], m[3]
			age := atoi(folded[numStart:numEnd])
			if age <= 0 || age > 130 {
				continue
			}
			if covered(spans, numStart, numEnd) {
				continue
			}
			// The span covers the number alone; the phrase stays.
			s := phi.NewSpan(text, numStart, numEnd, phi.FilterAgeOver89, p.conf, d.Source())
			s.Text = folded[numStart:numEnd]
			s.Pattern = p.pattern
			s.Kind = folded[numStart:numEnd]
			spans = append(spans, s)
		}
	}
	return spans, nil
}
