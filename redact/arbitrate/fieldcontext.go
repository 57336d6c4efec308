package arbitrate

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
)

// canonicalLabels maps recognised field-label spellings to their
// canonical forms. Labels are matched case-insensitively at line starts.
var canonicalLabels = map[string]string{
	"patient":                "PATIENT",
	"patient name":           "PATIENT",
	"name":                   "NAME",
	"dob":                    "DOB",
	"date of birth":          "DOB",
	"birth date":             "DOB",
	"mrn":                    "MRN",
	"medical record":         "MRN",
	"medical record number":  "MRN",
	"ssn":                    "SSN",
	"social security":        "SSN",
	"social security number": "SSN",
	"phone":                  "PHONE",
	"telephone":              "PHONE",
	"cell":                   "PHONE",
	"mobile":                 "PHONE",
	"fax":                    "FAX",
	"email":                  "EMAIL",
	"e-mail":                 "EMAIL",
	"address":                "ADDRESS",
	"home address":           "ADDRESS",
	"zip":                    "ZIP",
	"zip code":               "ZIP",
	"medicare":               "MEDICARE",
	"medicare number":        "MEDICARE",
	"mbi":                    "MEDICARE",
	"medicaid":               "MEDICAID",
	"dea":                    "DEA",
	"dea number":             "DEA",
	"npi":                    "NPI",
	"account":                "ACCOUNT",
	"acct":                   "ACCOUNT",
	"account number":         "ACCOUNT",
	"insurance":              "INSURANCE",
	"insurance id":           "INSURANCE",
	"member id":              "MEMBER",
	"policy":                 "POLICY",
	"policy number":          "POLICY",
	"group":                  "GROUP",
	"license":                "LICENSE",
	"driver's license":       "LICENSE",
	"drivers license":        "LICENSE",
	"dl":                     "LICENSE",
	"passport":               "PASSPORT",
	"provider":               "PROVIDER",
	"physician":              "PROVIDER",
	"attending":              "PROVIDER",
	"referring":              "PROVIDER",
	"date":                   "DATE",
	"visit date":             "DATE",
	"date of visit":          "DATE",
	"date of service":        "DATE",
	"discharge date":         "DISCHARGE",
	"admission date":         "ADMISSION",
	"age":                    "AGE",
}

// labelLine matches "<label>:" or "<label>#" anchored at a line start,
// tolerating leading whitespace.
var labelLine = regexp.MustCompile(`^[ \t]*([A-Za-z][A-Za-z' \-]{0,30}?)[ \t]*[:#]`)

// ScanFieldLabels builds the field map for a document: each recognised
// "<LABEL>:" at a line start yields a region covering the label and the
// labelled value through end of line. The orchestrator calls this before
// the detectors run so they can consult the map; the pipeline's first
// stage repeats it idempotently for callers that drive stages directly.
func ScanFieldLabels(text string) phi.FieldMap {
	var fm phi.FieldMap
	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]
		if m := labelLine.FindStringSubmatchIndex(line); m != nil {
			raw := strings.TrimSpace(line[m[2]:m[3]])
			if canonical, ok := canonicalLabels[strings.ToLower(raw)]; ok {
				colon := m[1] // byte after the separator, line-relative
				valueStart := lineStart + colon
				for valueStart < lineEnd && (text[valueStart] == ' ' || text[valueStart] == '\t') {
					valueStart++
				}
				fm = append(fm, phi.FieldRegion{
					Label:      canonical,
					LabelStart: lineStart + m[2],
					LabelEnd:   lineStart + colon,
					ValueStart: valueStart,
					ValueEnd:   lineEnd,
				})
			}
		}
		if lineEnd == len(text) {
			break
		}
		lineStart = lineEnd + 1
	}
	return fm
}

// stageFieldContext populates the context field map when the caller has
// not already done so.
func stageFieldContext(spans []phi.Span, env *Env) []phi.Span {
	if len(env.Ctx.FieldMap) == 0 {
		env.Ctx.FieldMap = ScanFieldLabels(env.Text)
	}
	return spans
}

// stageFieldLabelWhitelist removes spans whose range exactly covers a
// field label: "Patient" at the head of "Patient: ..." is structure,
// not a name.
func stageFieldLabelWhitelist(spans []phi.Span, env *Env) []phi.Span {
	out := spans[:0]
	for _, s := range spans {
		if coversLabel(env.Ctx.FieldMap, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func coversLabel(fm phi.FieldMap, s phi.Span) bool {
	for _, r := range fm {
		labelText := r.LabelEnd - 1 // separator byte
		if s.CharStart == r.LabelStart && (s.CharEnd == labelText || s.CharEnd == r.LabelEnd) {
			return true
		}
	}
	return false
}

// labelTargets maps canonical labels to the category the label vouches
// for, used when an ambiguous span falls under the label.
var labelTargets = map[string]phi.FilterType{
	"SSN":       phi.FilterSSN,
	"MRN":       phi.FilterMRN,
	"PHONE":     phi.FilterPhone,
	"FAX":       phi.FilterFax,
	"DOB":       phi.FilterDate,
	"DATE":      phi.FilterDate,
	"DISCHARGE": phi.FilterDate,
	"ADMISSION": phi.FilterDate,
	"EMAIL":     phi.FilterEmail,
	"ADDRESS":   phi.FilterAddress,
	"ZIP":       phi.FilterZIP,
	"MEDICARE":  phi.FilterMedicare,
	"MEDICAID":  phi.FilterMedicaid,
	"DEA":       phi.FilterDEA,
	"NPI":       phi.FilterNPI,
	"ACCOUNT":   phi.FilterAccountNumber,
	"INSURANCE": phi.FilterHealthPlan,
	"MEMBER":    phi.FilterHealthPlan,
	"POLICY":    phi.FilterHealthPlan,
	"GROUP":     phi.FilterHealthPlan,
	"LICENSE":   phi.FilterDriversLicense,
	"PASSPORT":  phi.FilterPassport,
	"PATIENT":   phi.FilterName,
	"NAME":      phi.FilterName,
	"PROVIDER":  phi.FilterName,
	"AGE":       phi.FilterAgeOver89,
}

// stageFieldContextPromoter boosts spans that fall inside a labelled
// value region and resolves ambiguous types by the label: digits after
// "SSN:" become SSN even when they also matched the MRN shape.
func stageFieldContextPromoter(spans []phi.Span, env *Env) []phi.Span {
	fm := env.Ctx.FieldMap
	if len(fm) == 0 {
		return spans
	}
	for i := range spans {
		s := &spans[i]
		region := fm.RegionAt(s.CharStart, s.CharEnd)
		if region == nil {
			continue
		}
		s.Confidence = clamp01(s.Confidence + 0.15)
		target, ok := labelTargets[region.Label]
		if !ok || target == s.FilterType {
			continue
		}
		if len(s.AmbiguousWith) > 0 && containsType(s.AmbiguousWith, target) {
			s.FilterType = target
			s.Priority = target.Tier()
			s.AmbiguousWith = nil
			s.DisambiguationScore = 1
		}
	}
	return spans
}

func containsType(types []phi.FilterType, ft phi.FilterType) bool {
	for _, t := range types {
		if t == ft {
			return true
		}
	}
	return false
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
