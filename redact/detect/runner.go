package detect

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// LargeInputBytes is the threshold above which the runner splits the
// input on paragraph boundaries and stitches the results.
var LargeInputBytes = 256 << 10

// RunResult is the raw output of the detector fan-out, before
// arbitration.
type RunResult struct {
	// Spans is the concatenated, unsorted span list from every detector.
	Spans []phi.Span

	// Faults lists detectors that failed mid-request. Faults never abort
	// the document.
	Faults []*FaultError

	// Skipped lists detectors that were never started because the soft
	// deadline expired first.
	Skipped []string

	// Partial is true when at least one detector was skipped.
	Partial bool
}

// Run fans the input across every enabled detector and collects their
// spans. The input string is shared by reference; detectors never copy
// it. Detector order is not observable downstream: arbitration is pure
// on the span set.
//
// The context carries the soft deadline: once it expires, detectors not
// yet started are skipped, in-flight detectors finish, and the result is
// marked partial.
func Run(ctx context.Context, text string, pol *policy.Policy, rctx *phi.Context) *RunResult {
	if len(text) > LargeInputBytes {
		return runSegmented(ctx, text, pol, rctx)
	}
	return runOnce(ctx, text, 0, pol, rctx)
}

// parallelism bounds the detector worker pool.
func parallelism() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

func runOnce(ctx context.Context, text string, base int, pol *policy.Policy, rctx *phi.Context) *RunResult {
	result := &RunResult{}
	detectors := Enabled(pol)

	var mu sync.Mutex
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(parallelism())

	for _, d := range detectors {
		// Soft deadline: skip detectors that have not started yet.
		select {
		case <-ctx.Done():
			mu.Lock()
			result.Skipped = append(result.Skipped, d.Source())
			result.Partial = true
			mu.Unlock()
			continue
		default:
		}

		g.Go(func() error {
			spans, err := detectSafely(d, text, rctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var fault *FaultError
				if errors.As(err, &fault) {
					result.Faults = append(result.Faults, fault)
				} else {
					result.Faults = append(result.Faults, &FaultError{Source: d.Source(), Reason: err.Error()})
				}
				return nil
			}
			for i := range spans {
				spans[i].CharStart += base
				spans[i].CharEnd += base
			}
			result.Spans = append(result.Spans, spans...)
			rctx.Statistics.CountDetector(d.Source(), len(spans))
			return nil
		})
	}

	_ = g.Wait()
	sort.Strings(result.Skipped)
	return result
}

// detectSafely runs one detector with panic containment. A panicking
// detector becomes a fault; it never takes the document down.
func detectSafely(d Detector, text string, rctx *phi.Context) (spans []phi.Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			spans = nil
			err = &FaultError{Source: d.Source(), Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	spans, err = d.Detect(text, rctx)
	if err != nil {
		return nil, err
	}
	for _, s := range spans {
		if !s.InBounds(len(text)) {
			return nil, &FaultError{
				Source: d.Source(),
				Reason: fmt.Sprintf("span out of bounds [%d,%d) for %d-byte input", s.CharStart, s.CharEnd, len(text)),
			}
		}
	}
	return spans, nil
}

// runSegmented splits very large inputs on paragraph boundaries, runs
// the detector battery per segment and stitches the spans back into
// document coordinates.
func runSegmented(ctx context.Context, text string, pol *policy.Policy, rctx *phi.Context) *RunResult {
	merged := &RunResult{}
	seen := make(map[string]bool)
	for _, seg := range segments(text) {
		sub := *rctx
		sub.FieldMap = shiftFieldMap(rctx.FieldMap, seg.start, seg.start+len(seg.text))
		r := runOnce(ctx, seg.text, seg.start, pol, &sub)
		merged.Spans = append(merged.Spans, r.Spans...)
		merged.Partial = merged.Partial || r.Partial
		for _, f := range r.Faults {
			if !seen["f:"+f.Source] {
				seen["f:"+f.Source] = true
				merged.Faults = append(merged.Faults, f)
			}
		}
		for _, s := range r.Skipped {
			if !seen["s:"+s] {
				seen["s:"+s] = true
				merged.Skipped = append(merged.Skipped, s)
			}
		}
	}
	sort.Strings(merged.Skipped)
	return merged
}

type segment struct {
	text  string
	start int
}

// segments splits on blank-line boundaries, packing paragraphs into
// chunks of roughly LargeInputBytes.
func segments(text string) []segment {
	var segs []segment
	start := 0
	for start < len(text) {
		end := start + LargeInputBytes
		if end >= len(text) {
			segs = append(segs, segment{text: text[start:], start: start})
			break
		}
		cut := strings.LastIndex(text[start:end], "\n\n")
		if cut <= 0 {
			// No paragraph boundary in range; fall back to line boundary.
			cut = strings.LastIndexByte(text[start:end], '\n')
		}
		if cut <= 0 {
			cut = end - start
		}
		segs = append(segs, segment{text: text[start : start+cut], start: start})
		start += cut
	}
	return segs
}

// shiftFieldMap rebases field regions into segment coordinates, keeping
// only the regions that fall entirely inside the segment.
func shiftFieldMap(fm phi.FieldMap, segStart, segEnd int) phi.FieldMap {
	var out phi.FieldMap
	for _, r := range fm {
		if r.LabelStart >= segStart && r.ValueEnd <= segEnd {
			r.LabelStart -= segStart
			r.LabelEnd -= segStart
			r.ValueStart -= segStart
			r.ValueEnd -= segStart
			out = append(out, r)
		}
	}
	return out
}
