package arbitrate

import (
	"fmt"
	"strconv"

	"github.com/dochatty/vulpes/redact/phi"
)

// stageCrossTypeReasoner resolves the overlaps that remain between
// spans. Same-type overlaps merge into a single span covering the
// union. Different-type overlaps keep the dominant span under the
// fixed total order (priority, then length, then confidence, then
// start offset, then match source) and drop the other.
func stageCrossTypeReasoner(spans []phi.Span, env *Env) []phi.Span {
	if len(spans) < 2 {
		return spans
	}
	phi.SortByStart(spans)

	var out []phi.Span
	for _, s := range spans {
		for len(out) > 0 && out[len(out)-1].Overlaps(s) {
			last := out[len(out)-1]
			if last.FilterType == s.FilterType {
				if last.MatchSource == s.MatchSource && last.Overlaps(s) {
					env.Ctx.Statistics.Anomaly(fmt.Sprintf(
						"overlapping same-source spans from %s merged", last.MatchSource))
				}
				s = last.Union(s, env.Text)
				out = out[:len(out)-1]
				continue
			}
			if phi.CompareDominance(last, s) <= 0 {
				// The earlier span dominates; the incoming one is dropped.
				s = last
			}
			out = out[:len(out)-1]
		}
		out = append(out, s)
	}
	return out
}

// stagePostFilter applies policy-level suppression: ages at or below
// the age cap stay in the clear, and every surviving span is checked
// against the enabled filter set one final time.
func stagePostFilter(spans []phi.Span, env *Env) []phi.Span {
	pol := env.Policy
	ageCap := pol.AgeCap
	if ageCap == 0 {
		ageCap = 89
	}
	out := spans[:0]
	for _, s := range spans {
		if !pol.Enabled(s.FilterType) {
			continue
		}
		if s.FilterType == phi.FilterAgeOver89 {
			age, err := strconv.Atoi(s.Kind)
			if err != nil || age <= ageCap {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
