package detect

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

type panicDetector struct{}

func (d *panicDetector) Source() string          { return "panicky" }
func (d *panicDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterUniqueID} }
func (d *panicDetector) Detect(string, *phi.Context) ([]phi.Span, error) {
	panic("internal invariant broken")
}

type outOfBoundsDetector struct{}

func (d *outOfBoundsDetector) Source() string          { return "oob" }
func (d *outOfBoundsDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterUniqueID} }
func (d *outOfBoundsDetector) Detect(text string, _ *phi.Context) ([]phi.Span, error) {
	return []phi.Span{{CharStart: 0, CharEnd: len(text) + 10, FilterType: phi.FilterUniqueID}}, nil
}

// TestDetectSafelyContainsPanics tests that a panicking detector
// becomes a fault, never an abort
func TestDetectSafelyContainsPanics(t *testing.T) {
	ctx := phi.NewContext("s", "d", phi.ScopeDocument)
	spans, err := detectSafely(&panicDetector{}, "any text", ctx)
	assert.Nil(t, spans)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDetectorFaulted)

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "panicky", fault.Source)
	assert.Contains(t, fault.Reason, "panic")
}

// TestDetectSafelyRejectsOutOfBoundsSpans tests the bounds invariant
func TestDetectSafelyRejectsOutOfBoundsSpans(t *testing.T) {
	ctx := phi.NewContext("s", "d", phi.ScopeDocument)
	_, err := detectSafely(&outOfBoundsDetector{}, "short", ctx)
	assert.ErrorIs(t, err, ErrDetectorFaulted)
}

// TestRunCollectsAcrossDetectors tests the fan-out over the registry
func TestRunCollectsAcrossDetectors(t *testing.T) {
	text := "SSN: 456-78-9012 email mary.j@example.org"
	pol := policy.Default(policy.ProfileHIPAAStrict)
	rctx := phi.NewContext("s", "d", phi.ScopeDocument)

	run := Run(context.Background(), text, pol, rctx)
	require.NotEmpty(t, run.Spans)
	assert.False(t, run.Partial)
	assert.Empty(t, run.Faults)

	types := map[phi.FilterType]bool{}
	for _, s := range run.Spans {
		types[s.FilterType] = true
	}
	assert.True(t, types[phi.FilterSSN])
	assert.True(t, types[phi.FilterEmail])
	assert.Positive(t, rctx.Statistics.DetectorSpans["ssn"])
}

// TestRunSkipsOnExpiredDeadline tests soft-deadline behaviour
func TestRunSkipsOnExpiredDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := Run(ctx, "SSN: 456-78-9012", policy.Default(policy.ProfileHIPAAStrict), phi.NewContext("s", "d", phi.ScopeDocument))
	assert.True(t, run.Partial)
	assert.Empty(t, run.Spans)
	assert.NotEmpty(t, run.Skipped)
}

// TestRunSegmentedStitchesOffsets tests large-input paragraph splitting
func TestRunSegmentedStitchesOffsets(t *testing.T) {
	old := LargeInputBytes
	LargeInputBytes = 64
	defer func() { LargeInputBytes = old }()

	filler := strings.Repeat("routine visit note text\n\n", 4)
	text := filler + "SSN: 456-78-9012\n"
	pol := policy.Default(policy.ProfileHIPAAStrict)
	rctx := phi.NewContext("s", "d", phi.ScopeDocument)

	run := Run(context.Background(), text, pol, rctx)
	require.NotEmpty(t, run.Spans)

	found := false
	for _, s := range run.Spans {
		if s.FilterType == phi.FilterSSN {
			found = true
			assert.Equal(t, "456-78-9012", text[s.CharStart:s.CharEnd])
		}
	}
	assert.True(t, found, "stitched offsets must land on the SSN in document coordinates")
}

// TestEnabledRespectsPolicy tests registry filtering
func TestEnabledRespectsPolicy(t *testing.T) {
	pol := policy.Default(policy.ProfileHIPAAStrict)
	assert.Len(t, Enabled(pol), len(Registry))

	pol.EnabledFilters = []phi.FilterType{phi.FilterEmail}
	enabled := Enabled(pol)
	require.Len(t, enabled, 1)
	assert.Equal(t, "email", enabled[0].Source())
}

// TestTokenize tests byte-accurate word offsets
func TestTokenize(t *testing.T) {
	tokens := Tokenize("Dr. O'Brien, MD")
	require.Len(t, tokens, 3)
	assert.Equal(t, "Dr", tokens[0].Text)
	assert.Equal(t, "O'Brien", tokens[1].Text)
	assert.Equal(t, "MD", tokens[2].Text)
	assert.Equal(t, 4, tokens[1].Start)
	assert.Equal(t, 11, tokens[1].End)
}

// TestSplitLines tests line offsets with CRLF handling
func TestSplitLines(t *testing.T) {
	lines := SplitLines("one\r\ntwo\nthree")
	require.Len(t, lines, 3)
	assert.Equal(t, "one", lines[0].Text)
	assert.Equal(t, "two", lines[1].Text)
	assert.Equal(t, "three", lines[2].Text)
	assert.Equal(t, 9, lines[2].Start)
}