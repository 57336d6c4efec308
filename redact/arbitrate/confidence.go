package arbitrate

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// stageConfidenceModifier applies the per-category confidence floors
// from the policy. Spans below their category threshold are dropped.
func stageConfidenceModifier(spans []phi.Span, env *Env) []phi.Span {
	out := spans[:0]
	for _, s := range spans {
		if s.Confidence < env.Policy.Threshold(s.FilterType) {
			continue
		}
		out = append(out, s)
	}
	return out
}

var (
	credentialTail = regexp.MustCompile(`^,?[ \t]*([A-Za-z][A-Za-z\-]{0,6})\b`)
	unitTail       = regexp.MustCompile(`^[, \t]*(?:Apt|Apartment|Suite|Ste|Unit|#)\.?[ \t]*[A-Za-z0-9\-]+`)
)

// stageSpanEnhancer extends spans over directly adjacent tokens that
// belong to the same entity: credential suffixes after a name,
// apartment designators after a street address.
func stageSpanEnhancer(spans []phi.Span, env *Env) []phi.Span {
	for i := range spans {
		s := &spans[i]
		switch {
		case s.FilterType == phi.FilterName || s.FilterType == phi.FilterLastName:
			for {
				m := credentialTail.FindStringSubmatch(env.Text[s.CharEnd:])
				if m == nil || !vocab.IsCredential(m[1]) {
					break
				}
				growSpan(s, env.Text, s.CharEnd+len(m[0]))
			}
		case s.FilterType == phi.FilterAddress:
			if m := unitTail.FindStringIndex(env.Text[s.CharEnd:]); m != nil {
				growSpan(s, env.Text, s.CharEnd+m[1])
			}
		}
	}
	return spans
}

func growSpan(s *phi.Span, text string, newEnd int) {
	s.CharEnd = newEnd
	s.OriginalValue = text[s.CharStart:s.CharEnd]
	s.Text = s.OriginalValue
}

// typeSignals are context keywords that vote for a category during
// vector disambiguation. The span's captured context window is scored
// against each candidate's signal list; the best-scoring candidate is
// committed.
var typeSignals = map[phi.FilterType][]string{
	phi.FilterSSN:           {"ssn", "social security", "social"},
	phi.FilterMRN:           {"mrn", "medical record", "record number", "chart"},
	phi.FilterPhone:         {"phone", "tel", "call", "cell", "mobile", "contact"},
	phi.FilterFax:           {"fax"},
	phi.FilterAccountNumber: {"account", "acct", "billing", "invoice"},
	phi.FilterHealthPlan:    {"member", "policy", "insurance", "plan", "subscriber", "beneficiary"},
	phi.FilterZIP:           {"zip", "zipcode", "postal"},
	phi.FilterUniqueID:      {"id", "identifier", "ref"},
	phi.FilterNPI:           {"npi", "provider"},
	phi.FilterDate:          {"date", "dob", "birth", "seen", "visit"},
}

// stageVectorDisambiguation settles spans still carrying alternatives
// after the field promoter: each candidate type is scored against the
// surrounding n-grams and the winner is committed.
func stageVectorDisambiguation(spans []phi.Span, env *Env) []phi.Span {
	for i := range spans {
		s := &spans[i]
		if len(s.AmbiguousWith) == 0 {
			continue
		}
		window := strings.ToLower(s.Context)
		best, bestScore := s.FilterType, scoreSignals(window, s.FilterType)
		for _, alt := range s.AmbiguousWith {
			if score := scoreSignals(window, alt); score > bestScore {
				best, bestScore = alt, score
			}
		}
		if best != s.FilterType {
			s.FilterType = best
			s.Priority = best.Tier()
		}
		s.DisambiguationScore = bestScore
		s.AmbiguousWith = nil
	}
	return spans
}

func scoreSignals(window string, ft phi.FilterType) float64 {
	signals := typeSignals[ft]
	if len(signals) == 0 {
		return 0
	}
	score := 0.0
	for _, sig := range signals {
		if strings.Contains(window, sig) {
			score += 1.0
		}
	}
	return score / float64(len(signals))
}
