package redact

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dochatty/vulpes/redact/arbitrate"
	"github.com/dochatty/vulpes/redact/detect"
	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
	"github.com/dochatty/vulpes/redact/receipt"
	"github.com/dochatty/vulpes/redact/replace"
)

// Version is the engine version stamped into receipts.
const Version = "1.0.0"

// Result is the outcome of a redaction call.
type Result struct {
	// Text is the redacted document.
	Text string

	// Spans is the frozen final span set: non-overlapping, sorted
	// ascending, replacements assigned.
	Spans []phi.Span

	// Breakdown counts final spans per category.
	Breakdown map[phi.FilterType]int

	// Receipt is the trust bundle, present when the policy asked for
	// one and it could be produced.
	Receipt *receipt.Receipt

	// Warnings carries soft failures: faulted detectors, receipt
	// faults. The redaction itself is complete despite them.
	Warnings []string

	// Partial is true when the soft deadline expired before every
	// detector ran; the spans reflect what was collected in time.
	Partial bool

	// Statistics is the per-stage accounting for the request.
	Statistics *phi.Statistics
}

// Engine ties the pipeline together and owns the only mutable shared
// state: the session replacement tables and the per-session receipt
// chain. Engines are safe for concurrent use.
type Engine struct {
	replacer *replace.Service

	chainMu    sync.Mutex
	priorRoots map[string]string
}

// NewEngine returns an engine with empty session state.
func NewEngine() *Engine {
	return &Engine{
		replacer:   replace.NewService(),
		priorRoots: make(map[string]string),
	}
}

// Replacer exposes the replacement service so callers can export,
// restore or persist PER_POLICY session tables.
func (e *Engine) Replacer() *replace.Service { return e.replacer }

// analysis is the outcome of detection and arbitration, before any
// replacement is assigned.
type analysis struct {
	spans []phi.Span
	run   *detect.RunResult
}

// analyze validates the request and runs detection and arbitration,
// stopping short of replacement so the streaming adapter can assign
// tokens only to the spans it actually releases.
func (e *Engine) analyze(ctx context.Context, text string, pol *policy.Policy, rctx *phi.Context) (*analysis, error) {
	if pol == nil {
		pol = policy.Default(policy.ProfileHIPAAStrict)
	}
	if err := pol.Validate(); err != nil {
		return nil, err
	}
	if !utf8.ValidString(text) {
		return nil, ErrInvalidInput
	}
	if pol.MaxDocumentBytes > 0 && len(text) > pol.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: %d bytes over %d limit", ErrInputTooLarge, len(text), pol.MaxDocumentBytes)
	}
	if rctx == nil {
		rctx = phi.NewContext(uuid.NewString(), uuid.NewString(), phi.ScopeDocument)
	}
	if rctx.Statistics == nil {
		rctx.Statistics = phi.NewStatistics()
	}
	if rctx.DocumentVocabulary == nil {
		rctx.DocumentVocabulary = make(map[string]struct{})
	}

	detectCtx := ctx
	if pol.SoftDeadlineMillis > 0 {
		var cancel context.CancelFunc
		detectCtx, cancel = context.WithTimeout(ctx, time.Duration(pol.SoftDeadlineMillis)*time.Millisecond)
		defer cancel()
	}

	// Field labels feed both the detectors and the arbitration stages.
	rctx.FieldMap = arbitrate.ScanFieldLabels(text)

	run := detect.Run(detectCtx, text, pol, rctx)

	maxSpans := pol.MaxSpansPerDoc
	if maxSpans == 0 {
		maxSpans = policy.DefaultMaxSpansPerDoc
	}
	if len(run.Spans) > maxSpans {
		return nil, fmt.Errorf("%w: %d raw spans over %d limit", ErrSpanBudgetExceeded, len(run.Spans), maxSpans)
	}

	spans := arbitrate.Run(run.Spans, text, pol, rctx)
	return &analysis{spans: spans, run: run}, nil
}

// Redact runs the full pipeline over one document. A nil rctx gets a
// fresh per-document context with generated ids. The input string is
// never mutated; the only output-sized allocation is the rewritten
// text.
func (e *Engine) Redact(ctx context.Context, text string, pol *policy.Policy, rctx *phi.Context) (*Result, error) {
	if pol == nil {
		pol = policy.Default(policy.ProfileHIPAAStrict)
	}
	if rctx == nil {
		rctx = phi.NewContext(uuid.NewString(), uuid.NewString(), phi.ScopeDocument)
	}
	a, err := e.analyze(ctx, text, pol, rctx)
	if err != nil {
		return nil, err
	}
	run := a.run

	// Replacement is all-or-nothing: a cancellation observed here means
	// no document is rewritten at all.
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	default:
	}

	spans := e.replacer.Assign(a.spans, pol, rctx)
	redacted := substitute(text, spans)

	result := &Result{
		Text:       redacted,
		Spans:      spans,
		Breakdown:  breakdown(spans),
		Partial:    run.Partial,
		Statistics: rctx.Statistics,
	}
	for _, f := range run.Faults {
		result.Warnings = append(result.Warnings, f.Error())
		rctx.Statistics.FaultedDetectors = append(rctx.Statistics.FaultedDetectors, f.Source)
	}
	for _, s := range run.Skipped {
		result.Warnings = append(result.Warnings, fmt.Sprintf("detector %s skipped: soft deadline expired", s))
	}

	if pol.EmitReceipt {
		rec, err := e.buildReceipt(text, redacted, spans, pol, rctx)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.Receipt = rec
		}
	}
	return result, nil
}

// substitute rewrites the document by walking the frozen span set
// back-to-front over a byte copy, so earlier offsets stay valid while
// later ranges are spliced.
func substitute(text string, spans []phi.Span) string {
	out := []byte(text)
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		rest := append([]byte(s.Replacement), out[s.CharEnd:]...)
		out = append(out[:s.CharStart], rest...)
	}
	return string(out)
}

func breakdown(spans []phi.Span) map[phi.FilterType]int {
	counts := make(map[phi.FilterType]int)
	for _, s := range spans {
		counts[s.FilterType]++
	}
	return counts
}

// buildReceipt emits the trust bundle and advances the session's
// receipt chain.
func (e *Engine) buildReceipt(original, redacted string, spans []phi.Span, pol *policy.Policy, rctx *phi.Context) (*receipt.Receipt, error) {
	e.chainMu.Lock()
	prior := e.priorRoots[rctx.SessionID]
	e.chainMu.Unlock()

	rec, err := receipt.Build(receipt.Params{
		Original:      []byte(original),
		Redacted:      []byte(redacted),
		Spans:         spans,
		Policy:        pol,
		DocumentID:    rctx.DocumentID,
		EngineVersion: Version,
		PriorRoot:     prior,
	})
	if err != nil {
		return nil, err
	}

	e.chainMu.Lock()
	e.priorRoots[rctx.SessionID] = rec.MerkleRoot
	e.chainMu.Unlock()
	return rec, nil
}

// Redact is the package-level convenience over a throwaway engine with
// per-document scope.
func Redact(text string, pol *policy.Policy) (*Result, error) {
	return NewEngine().Redact(context.Background(), text, pol, nil)
}

// VerifyReceipt checks a receipt against the original and redacted
// texts and the policy it claims. See the receipt package for the
// individual commitments.
func VerifyReceipt(r *receipt.Receipt, original, redacted string, pol *policy.Policy) receipt.Verification {
	return receipt.Verify(r, []byte(original), []byte(redacted), pol)
}
