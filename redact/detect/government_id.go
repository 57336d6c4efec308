package detect

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
)

// driversLicenseDetector finds driver's license numbers. State formats
// differ widely, so matches need a license field label or an inline
// "DL"/"license" mention.
type driversLicenseDetector struct{}

var dlRe = regexp.MustCompile(`\b[A-Z]{0,2}\d{5,9}[A-Z]{0,2}\b`)

func (d *driversLicenseDetector) Source() string { return "drivers-license" }

func (d *driversLicenseDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterDriversLicense}
}

func (d *driversLicenseDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range dlRe.FindAllStringIndex(text, -1) {
		inLabel := labelIs(ctx, m[0], m[1], "LICENSE", "DL")
		left := strings.ToLower(surroundingLeft(text, m[0], 28))
		inline := strings.Contains(left, "license") || strings.Contains(left, "dl#") ||
			strings.Contains(left, "dl ") || strings.Contains(left, "dl:")
		if !inLabel && !inline {
			continue
		}
		conf := 0.78
		if inLabel {
			conf = 0.92
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterDriversLicense, conf, d.Source())
		s.Pattern = "dl-labelled"
		spans = append(spans, s)
	}
	return spans, nil
}

// passportDetector finds passport numbers: a letter-digit group of nine
// characters under passport context.
type passportDetector struct{}

var passportRe = regexp.MustCompile(`\b[A-Z]?\d{8,9}\b`)

func (d *passportDetector) Source() string { return "passport" }

func (d *passportDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterPassport}
}

func (d *passportDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range passportRe.FindAllStringIndex(text, -1) {
		inLabel := labelIs(ctx, m[0], m[1], "PASSPORT")
		inline := strings.Contains(strings.ToLower(surroundingLeft(text, m[0], 24)), "passport")
		if !inLabel && !inline {
			continue
		}
		conf := 0.80
		if inLabel {
			conf = 0.93
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterPassport, conf, d.Source())
		s.Pattern = "passport-labelled"
		spans = append(spans, s)
	}
	return spans, nil
}
