package detect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// dateDetector finds calendar dates in US, ISO, European and written
// month forms. Dates under a recognised field label carry a kind
// sub-tag (DOB, visit, discharge, admission) so the post-filter can
// apply Limited Dataset rules per kind.
type dateDetector struct{}

var (
	dateSlash    = regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})\b`)
	dateISO      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateDotted   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	dateWritten  = regexp.MustCompile(`\b(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dateDayFirst = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?,?\s+(\d{4})\b`)
)

func (d *dateDetector) Source() string { return "date" }

func (d *dateDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterDate} }

func (d *dateDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span

	addNumeric := func(re *regexp.Regexp, pattern string, monthIdx, dayIdx, yearIdx int, conf float64) {
		for _, m := range re.FindAllStringSubmatchIndex(folded, -1) {
			month := atoi(folded[m[2*monthIdx]:m[2*monthIdx+1]])
			day := atoi(folded[m[2*dayIdx]:m[2*dayIdx+1]])
			year := atoi(folded[m[2*yearIdx]:m[2*yearIdx+1]])
			if !plausibleDate(month, day, year) {
				// European day-first ordering before giving up.
				if !plausibleDate(day, month, year) {
					continue
				}
			}
			spans = append(spans, d.span(text, folded, ctx, m[0], m[1], pattern, conf))
		}
	}

	addNumeric(dateISO, "date-iso", 2, 3, 1, 0.92)
	addNumeric(dateSlash, "date-slash", 1, 2, 3, 0.85)
	addNumeric(dateDotted, "date-dotted", 2, 1, 3, 0.80)

	for _, m := range dateWritten.FindAllStringIndex(text, -1) {
		if covered(spans, m[0], m[1]) {
			continue
		}
		spans = append(spans, d.span(text, folded, ctx, m[0], m[1], "date-written", 0.90))
	}
	for _, m := range dateDayFirst.FindAllStringIndex(text, -1) {
		if covered(spans, m[0], m[1]) {
			continue
		}
		spans = append(spans, d.span(text, folded, ctx, m[0], m[1], "date-day-first", 0.88))
	}
	return dedupeByRange(spans), nil
}

func (d *dateDetector) span(text, folded string, ctx *phi.Context, start, end int, pattern string, conf float64) phi.Span {
	s := phi.NewSpan(text, start, end, phi.FilterDate, conf, d.Source())
	s.Text = folded[start:end]
	s.Pattern = pattern
	s.Kind = dateKind(ctx, text, start, end)
	if s.Kind != "" {
		s.Confidence = clamp01(conf + 0.05)
	}
	return s
}

// dateKind derives the sub-tag from the containing field label or the
// words immediately to the left.
func dateKind(ctx *phi.Context, text string, start, end int) string {
	label := strings.ToUpper(fieldLabelAt(ctx, start, end))
	left := strings.ToLower(surroundingLeft(text, start, 32))
	switch {
	case label == "DOB" || strings.Contains(left, "date of birth") || strings.Contains(left, "dob") || strings.Contains(left, "born"):
		return "DOB"
	case strings.Contains(label, "DISCHARGE") || strings.Contains(left, "discharge"):
		return "discharge"
	case strings.Contains(label, "ADMISSION") || strings.Contains(left, "admit"):
		return "admission"
	case strings.Contains(label, "DATE") || strings.Contains(left, "visit") || strings.Contains(left, "seen on"):
		return "visit"
	}
	return ""
}

func plausibleDate(month, day, year int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	if year < 100 {
		return true // two-digit year
	}
	return year >= 1880 && year <= 2100
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clamp01(f float64) float64 {
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
