package detect

import (
	"regexp"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// phoneDetector finds US phone and fax numbers. A number under a fax
// field label (or preceded by "fax"/"f:") is typed FAX; everything else
// is PHONE. Ten bare digits are ambiguous with account numbers and MRNs
// and carry a lower confidence.
type phoneDetector struct{}

var (
	// The country code must begin at a word boundary or after '+', so a
	// folded letter ending a word ("Call" reads "Ca11") is not taken for it.
	phoneFormatted = regexp.MustCompile(`(?:(?:\+|\b)1[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`)
	phoneBare      = regexp.MustCompile(`\b\d{10}\b`)
	faxContext     = regexp.MustCompile(`(?i)\bfa?x\b[:.]?\s*$`)
)

func (d *phoneDetector) Source() string { return "phone" }

func (d *phoneDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterPhone, phi.FilterFax}
}

func (d *phoneDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span

	for _, m := range phoneFormatted.FindAllStringIndex(folded, -1) {
		if !plausibleAreaCode(folded[m[0]:m[1]]) {
			continue
		}
		spans = append(spans, d.span(text, folded, ctx, m[0], m[1], "phone-formatted", 0.90))
	}
	for _, m := range phoneBare.FindAllStringIndex(folded, -1) {
		if covered(spans, m[0], m[1]) || !plausibleAreaCode(folded[m[0]:m[1]]) {
			continue
		}
		s := d.span(text, folded, ctx, m[0], m[1], "phone-bare", 0.50)
		s.AmbiguousWith = []phi.FilterType{phi.FilterAccountNumber, phi.FilterMRN}
		spans = append(spans, s)
	}
	return spans, nil
}

func (d *phoneDetector) span(text, folded string, ctx *phi.Context, start, end int, pattern string, conf float64) phi.Span {
	ft := phi.FilterPhone
	if labelIs(ctx, start, end, "FAX") || faxContext.MatchString(text[maxInt(0, start-8):start]) {
		ft = phi.FilterFax
	}
	if labelIs(ctx, start, end, "PHONE") {
		conf += 0.05
	}
	s := phi.NewSpan(text, start, end, ft, conf, d.Source())
	s.Text = folded[start:end]
	s.Pattern = pattern
	return s
}

// plausibleAreaCode rejects numbers whose area code starts with 0 or 1,
// which NANP never assigns.
func plausibleAreaCode(match string) bool {
	digits := make([]byte, 0, 11)
	for i := 0; i < len(match); i++ {
		if c := match[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) == 11 {
		if digits[0] != '1' {
			return false
		}
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return false
	}
	return digits[0] >= '2' && digits[3] >= '2'
}

// covered reports whether [start,end) overlaps a span already found.
func covered(spans []phi.Span, start, end int) bool {
	for _, s := range spans {
		if start < s.CharEnd && s.CharStart < end {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
