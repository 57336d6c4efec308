package detect

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// mrnDetector finds medical record numbers: 6-10 digit groups, with
// strong confidence only under an MRN field label or inline mention.
// Bare digit groups are emitted ambiguous so the field-context promoter
// and cross-type reasoner can settle them.
type mrnDetector struct{}

var mrnRe = regexp.MustCompile(`\b[A-Z]{0,3}\d{6,10}\b`)

func (d *mrnDetector) Source() string { return "mrn" }

func (d *mrnDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterMRN} }

func (d *mrnDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span
	for _, m := range mrnRe.FindAllStringIndex(folded, -1) {
		inLabel := labelIs(ctx, m[0], m[1], "MRN", "MEDICAL RECORD")
		inline := strings.Contains(strings.ToLower(surroundingLeft(text, m[0], 20)), "mrn")
		conf := 0.35
		switch {
		case inLabel:
			conf = 0.95
		case inline:
			conf = 0.85
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterMRN, conf, d.Source())
		s.Text = folded[m[0]:m[1]]
		s.Pattern = "mrn-digits"
		if !inLabel && !inline {
			s.AmbiguousWith = []phi.FilterType{phi.FilterAccountNumber, phi.FilterUniqueID}
		}
		spans = append(spans, s)
	}
	return spans, nil
}

// accountNumberDetector finds account numbers under account field
// labels or "Acct"/"Account #" mentions.
type accountNumberDetector struct{}

var accountRe = regexp.MustCompile(`\b[A-Z]{0,2}\d{5,14}\b`)

func (d *accountNumberDetector) Source() string { return "account-number" }

func (d *accountNumberDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterAccountNumber}
}

func (d *accountNumberDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range accountRe.FindAllStringIndex(text, -1) {
		inLabel := labelIs(ctx, m[0], m[1], "ACCOUNT")
		left := strings.ToLower(surroundingLeft(text, m[0], 24))
		inline := strings.Contains(left, "acct") || strings.Contains(left, "account")
		if !inLabel && !inline {
			continue
		}
		conf := 0.80
		if inLabel {
			conf = 0.93
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterAccountNumber, conf, d.Source())
		s.Pattern = "account-labelled"
		spans = append(spans, s)
	}
	return spans, nil
}

// healthPlanDetector finds health-plan beneficiary and member ids:
// alphanumeric groups under insurance/member/policy context.
type healthPlanDetector struct{}

var healthPlanRe = regexp.MustCompile(`\b[A-Z]{0,4}\d{6,12}[A-Z]{0,2}\b`)

func (d *healthPlanDetector) Source() string { return "health-plan" }

func (d *healthPlanDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterHealthPlan}
}

func (d *healthPlanDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range healthPlanRe.FindAllStringIndex(text, -1) {
		inLabel := labelIs(ctx, m[0], m[1], "INSURANCE", "MEMBER", "POLICY", "GROUP")
		left := strings.ToLower(surroundingLeft(text, m[0], 28))
		inline := strings.Contains(left, "member") || strings.Contains(left, "policy") ||
			strings.Contains(left, "subscriber") || strings.Contains(left, "beneficiary")
		if !inLabel && !inline {
			continue
		}
		conf := 0.78
		if inLabel {
			conf = 0.92
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterHealthPlan, conf, d.Source())
		s.Pattern = "health-plan-labelled"
		spans = append(spans, s)
	}
	return spans, nil
}
