package detect

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// ssnDetector finds Social Security numbers. Matching runs over the
// digit-folded view of the text so OCR misreads like "4S6-7B-9O12"
// still hit; reported offsets are always in the original text.
type ssnDetector struct{}

var (
	ssnHyphenated = regexp.MustCompile(`\b(\d{3})-(\d{2})-(\d{4})\b`)
	ssnSpaced     = regexp.MustCompile(`\b(\d{3}) (\d{2}) (\d{4})\b`)
	ssnBare       = regexp.MustCompile(`\b(\d{3})(\d{2})(\d{4})\b`)
)

func (d *ssnDetector) Source() string { return "ssn" }

func (d *ssnDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterSSN} }

func (d *ssnDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span

	add := func(re *regexp.Regexp, pattern string, confidence float64, ambiguous bool) {
		for _, m := range re.FindAllStringSubmatchIndex(folded, -1) {
			area, group, serial := folded[m[2]:m[3]], folded[m[4]:m[5]], folded[m[6]:m[7]]
			if !validSSNParts(area, group, serial) {
				continue
			}
			conf := confidence
			if folded[m[0]:m[1]] != text[m[0]:m[1]] {
				// OCR-corrected match; the format still has to validate.
				conf -= 0.05
			}
			s := phi.NewSpan(text, m[0], m[1], phi.FilterSSN, conf, d.Source())
			s.Text = folded[m[0]:m[1]]
			s.Pattern = pattern
			if ambiguous {
				s.AmbiguousWith = []phi.FilterType{phi.FilterMRN, phi.FilterAccountNumber}
			}
			spans = append(spans, s)
		}
	}

	add(ssnHyphenated, "ssn-hyphenated", 0.95, false)
	add(ssnSpaced, "ssn-spaced", 0.80, false)
	add(ssnBare, "ssn-bare", 0.55, true)

	return dedupeByRange(spans), nil
}

// validSSNParts applies SSA issuance rules: area 000, 666 and 900-999
// are never issued; group 00 and serial 0000 are invalid.
func validSSNParts(area, group, serial string) bool {
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" {
		return false
	}
	return serial != "0000"
}

// dedupeByRange keeps the highest-confidence span per exact range. The
// bare pattern rematches inside hyphenated hits on the folded view when
// separators are digits after folding; this keeps the specific match.
func dedupeByRange(spans []phi.Span) []phi.Span {
	if len(spans) < 2 {
		return spans
	}
	best := make(map[[2]int]phi.Span, len(spans))
	var order [][2]int
	for _, s := range spans {
		key := [2]int{s.CharStart, s.CharEnd}
		if prev, ok := best[key]; !ok {
			best[key] = s
			order = append(order, key)
		} else if s.Confidence > prev.Confidence {
			best[key] = s
		}
	}
	out := make([]phi.Span, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// fieldLabelAt returns the canonical label of the field region that
// contains [start,end), or "".
func fieldLabelAt(ctx *phi.Context, start, end int) string {
	if ctx == nil || len(ctx.FieldMap) == 0 {
		return ""
	}
	if r := ctx.FieldMap.RegionAt(start, end); r != nil {
		return r.Label
	}
	return ""
}

// labelIs reports whether the containing field label is one of the
// given canonical names.
func labelIs(ctx *phi.Context, start, end int, names ...string) bool {
	label := fieldLabelAt(ctx, start, end)
	if label == "" {
		return false
	}
	for _, n := range names {
		if strings.EqualFold(label, n) {
			return true
		}
	}
	return false
}
