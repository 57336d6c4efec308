package detect

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// npiDetector finds National Provider Identifiers: ten digits whose
// Luhn checksum validates with the 80840 card-issuer prefix prepended.
type npiDetector struct{}

var npiRe = regexp.MustCompile(`\b\d{10}\b`)

func (d *npiDetector) Source() string { return "npi" }

func (d *npiDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterNPI} }

func (d *npiDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span
	for _, m := range npiRe.FindAllStringIndex(folded, -1) {
		candidate := folded[m[0]:m[1]]
		if !luhnValid("80840" + candidate) {
			continue
		}
		conf := 0.60
		if labelIs(ctx, m[0], m[1], "NPI", "PROVIDER") {
			conf = 0.97
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterNPI, conf, d.Source())
		s.Text = candidate
		s.Pattern = "npi-luhn"
		if conf < 0.9 {
			// A ten-digit Luhn hit without a label could be a phone or
			// account number.
			s.AmbiguousWith = []phi.FilterType{phi.FilterPhone, phi.FilterAccountNumber}
		}
		spans = append(spans, s)
	}
	return spans, nil
}

// deaDetector finds DEA registration numbers: two letters, the first in
// the registrant-type set, followed by seven digits with the DEA
// checksum (first+third+fifth plus twice second+fourth+sixth, last
// digit of the sum equals the seventh digit).
type deaDetector struct{}

var deaRe = regexp.MustCompile(`\b[ABCDEFGHJKLMPRSTUX][A-Z9]\d{7}\b`)

func (d *deaDetector) Source() string { return "dea" }

func (d *deaDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterDEA} }

func (d *deaDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range deaRe.FindAllStringIndex(text, -1) {
		candidate := text[m[0]:m[1]]
		if !deaChecksumValid(candidate) {
			continue
		}
		conf := 0.85
		if labelIs(ctx, m[0], m[1], "DEA") {
			conf = 0.97
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterDEA, conf, d.Source())
		s.Pattern = "dea-checksum"
		spans = append(spans, s)
	}
	return spans, nil
}

func deaChecksumValid(dea string) bool {
	digits := dea[2:]
	odd := int(digits[0]-'0') + int(digits[2]-'0') + int(digits[4]-'0')
	even := int(digits[1]-'0') + int(digits[3]-'0') + int(digits[5]-'0')
	return (odd+2*even)%10 == int(digits[6]-'0')
}

// medicareDetector finds Medicare Beneficiary Identifiers (MBI): the
// 11-character post-2018 format C A AN N A AN N A A N N where C is 1-9,
// A is a letter excluding S, L, O, I, B, Z and AN is either.
type medicareDetector struct{}

var mbiRe = regexp.MustCompile(`\b[1-9][AC-HJKMNP-RT-Yac-hjkmnp-rt-y][AC-HJKMNP-RT-Yac-hjkmnp-rt-y0-9]\d[-\s]?[AC-HJKMNP-RT-Yac-hjkmnp-rt-y][AC-HJKMNP-RT-Yac-hjkmnp-rt-y0-9]\d[-\s]?[AC-HJKMNP-RT-Yac-hjkmnp-rt-y]{2}\d{2}\b`)

func (d *medicareDetector) Source() string { return "medicare" }

func (d *medicareDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterMedicare} }

func (d *medicareDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range mbiRe.FindAllStringIndex(text, -1) {
		conf := 0.90
		if labelIs(ctx, m[0], m[1], "MEDICARE", "MBI") {
			conf = 0.98
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterMedicare, conf, d.Source())
		s.Pattern = "mbi"
		spans = append(spans, s)
	}
	return spans, nil
}

// medicaidDetector finds state Medicaid ids. Formats vary by state, so
// a match requires a Medicaid field label or inline mention.
type medicaidDetector struct{}

var medicaidRe = regexp.MustCompile(`\b[A-Z0-9]{8,14}\b`)

func (d *medicaidDetector) Source() string { return "medicaid" }

func (d *medicaidDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterMedicaid} }

func (d *medicaidDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range medicaidRe.FindAllStringIndex(text, -1) {
		inLabel := labelIs(ctx, m[0], m[1], "MEDICAID")
		inline := strings.Contains(strings.ToLower(surroundingLeft(text, m[0], 24)), "medicaid")
		if !inLabel && !inline {
			continue
		}
		if !containsDigit(text[m[0]:m[1]]) {
			continue
		}
		conf := 0.80
		if inLabel {
			conf = 0.95
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterMedicaid, conf, d.Source())
		s.Pattern = "medicaid-labelled"
		spans = append(spans, s)
	}
	return spans, nil
}

func containsDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
