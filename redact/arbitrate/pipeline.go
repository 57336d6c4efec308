// Package arbitrate implements the ordered post-processing pipeline
// that turns the raw detector output into the final non-overlapping
// span set. Stages are pure functions over (span set, environment);
// they drop, mutate, split or insert spans but never fail. Stage order
// is part of the engine contract.
package arbitrate

import (
	"fmt"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// Env is the read-mostly environment shared by every stage.
type Env struct {
	Text   string
	Policy *policy.Policy
	Ctx    *phi.Context
}

// Stage is one step of the arbitration pipeline.
type Stage struct {
	Name  string
	Apply func(spans []phi.Span, env *Env) []phi.Span
}

// Stages is the fixed pipeline, in contract order.
var Stages = []Stage{
	{"field-context", stageFieldContext},
	{"field-label-whitelist", stageFieldLabelWhitelist},
	{"document-vocabulary", stageDocumentVocabulary},
	{"all-caps-structure", stageAllCapsStructure},
	{"field-context-promoter", stageFieldContextPromoter},
	{"confidence-modifier", stageConfidenceModifier},
	{"span-enhancer", stageSpanEnhancer},
	{"vector-disambiguation", stageVectorDisambiguation},
	{"cross-type-reasoner", stageCrossTypeReasoner},
	{"post-filter", stagePostFilter},
	{"sort-and-freeze", stageSortAndFreeze},
}

// Run executes the pipeline and returns the frozen final span set:
// pairwise non-overlapping, sorted ascending by start offset.
func Run(spans []phi.Span, text string, pol *policy.Policy, ctx *phi.Context) []phi.Span {
	env := &Env{Text: text, Policy: pol, Ctx: ctx}
	for _, stage := range Stages {
		before := len(spans)
		spans = stage.Apply(spans, env)
		if dropped := before - len(spans); dropped > 0 {
			ctx.Statistics.CountDropped(stage.Name, dropped)
		}
	}
	return spans
}

// stageSortAndFreeze sorts the final set and repairs any residual
// overlap by widening: the engine fails closed, so an inconsistency is
// resolved by merging the offenders rather than narrowing either.
func stageSortAndFreeze(spans []phi.Span, env *Env) []phi.Span {
	phi.SortByStart(spans)
	for i := 1; i < len(spans); i++ {
		if spans[i].CharStart < spans[i-1].CharEnd {
			env.Ctx.Statistics.Anomaly(fmt.Sprintf(
				"residual overlap [%d,%d)/[%d,%d) widened at freeze",
				spans[i-1].CharStart, spans[i-1].CharEnd, spans[i].CharStart, spans[i].CharEnd))
			spans[i-1] = spans[i-1].Union(spans[i], env.Text)
			spans = append(spans[:i], spans[i+1:]...)
			i--
		}
	}
	return spans
}
