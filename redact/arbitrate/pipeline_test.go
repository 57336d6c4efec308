package arbitrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

func newEnv(text string) *Env {
	return &Env{
		Text:   text,
		Policy: policy.Default(policy.ProfileHIPAAStrict),
		Ctx:    phi.NewContext("s", "d", phi.ScopeDocument),
	}
}

// TestScanFieldLabels tests label discovery and canonicalisation
func TestScanFieldLabels(t *testing.T) {
	text := "Patient: JOHNSON, MARY\nDOB: 04/22/1978\nSocial Security Number: 456-78-9012\nnot a label line"
	fm := ScanFieldLabels(text)
	require.Len(t, fm, 3)

	assert.Equal(t, "PATIENT", fm[0].Label)
	assert.Equal(t, "DOB", fm[1].Label)
	assert.Equal(t, "SSN", fm[2].Label)

	// Value regions start after the separator and run to end of line.
	assert.Equal(t, "JOHNSON, MARY", text[fm[0].ValueStart:fm[0].ValueEnd])
	assert.Equal(t, "04/22/1978", text[fm[1].ValueStart:fm[1].ValueEnd])
}

// TestFieldLabelWhitelist tests that labels themselves are never spans
func TestFieldLabelWhitelist(t *testing.T) {
	text := "Patient: MARY"
	env := newEnv(text)
	env.Ctx.FieldMap = ScanFieldLabels(text)

	labelSpan := phi.NewSpan(text, 0, 7, phi.FilterLastName, 0.9, "surname")
	valueSpan := phi.NewSpan(text, 9, 13, phi.FilterFirstName, 0.9, "given-name")

	out := stageFieldLabelWhitelist([]phi.Span{labelSpan, valueSpan}, env)
	require.Len(t, out, 1)
	assert.Equal(t, "MARY", out[0].OriginalValue)
}

// TestDocumentVocabularyShieldsMedicalTerms tests the Wilson's disease rule
func TestDocumentVocabularyShieldsMedicalTerms(t *testing.T) {
	text := "Patient has Wilson's disease; provider Dr. Wilson."
	env := newEnv(text)

	inTerm := phi.NewSpan(text, 12, 18, phi.FilterLastName, 0.6, "surname")    // Wilson in the disease name
	provider := phi.NewSpan(text, 39, 49, phi.FilterName, 0.85, "name-assembler") // Dr. Wilson

	out := stageDocumentVocabulary([]phi.Span{inTerm, provider}, env)
	require.Len(t, out, 1)
	assert.Equal(t, "Dr. Wilson", out[0].OriginalValue)

	// The document vocabulary recorded the shielded tokens.
	_, ok := env.Ctx.DocumentVocabulary["disease"]
	assert.True(t, ok)
}

// TestDocumentVocabularyAsymmetry tests that numeric PHI is never shielded
func TestDocumentVocabularyAsymmetry(t *testing.T) {
	text := "hypertension 456-78-9012"
	env := newEnv(text)
	ssn := phi.NewSpan(text, 13, 24, phi.FilterSSN, 0.95, "ssn")

	out := stageDocumentVocabulary([]phi.Span{ssn}, env)
	require.Len(t, out, 1)
}

// TestAllCapsStructureFilter tests section-heading suppression
func TestAllCapsStructureFilter(t *testing.T) {
	text := "IMPRESSION: stable\nJOHNSON was seen"
	env := newEnv(text)

	heading := phi.NewSpan(text, 0, 10, phi.FilterLastName, 0.5, "surname")
	name := phi.NewSpan(text, 19, 26, phi.FilterLastName, 0.7, "surname")

	out := stageAllCapsStructure([]phi.Span{heading, name}, env)
	require.Len(t, out, 1)
	assert.Equal(t, "JOHNSON", out[0].OriginalValue)
}

// TestFieldContextPromoter tests the confidence bonus and type resolution
func TestFieldContextPromoter(t *testing.T) {
	text := "SSN: 456789012"
	env := newEnv(text)
	env.Ctx.FieldMap = ScanFieldLabels(text)

	s := phi.NewSpan(text, 5, 14, phi.FilterMRN, 0.5, "mrn")
	s.AmbiguousWith = []phi.FilterType{phi.FilterSSN, phi.FilterAccountNumber}

	out := stageFieldContextPromoter([]phi.Span{s}, env)
	require.Len(t, out, 1)
	assert.Equal(t, phi.FilterSSN, out[0].FilterType)
	assert.Equal(t, phi.TierChecksum, out[0].Priority)
	assert.InDelta(t, 0.65, out[0].Confidence, 1e-9)
	assert.Empty(t, out[0].AmbiguousWith)
}

// TestConfidenceModifier tests threshold pruning
func TestConfidenceModifier(t *testing.T) {
	text := "some text here"
	env := newEnv(text)
	env.Policy.SensitivityThreshold = map[phi.FilterType]float64{phi.FilterZIP: 0.8}

	keep := phi.NewSpan(text, 0, 4, phi.FilterZIP, 0.9, "zip")
	drop := phi.NewSpan(text, 5, 9, phi.FilterZIP, 0.5, "zip")

	out := stageConfidenceModifier([]phi.Span{keep, drop}, env)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].CharStart)
}

// TestSpanEnhancerCredential tests absorbing a credential suffix
func TestSpanEnhancerCredential(t *testing.T) {
	text := "seen by John Smith, MD today"
	env := newEnv(text)
	s := phi.NewSpan(text, 8, 18, phi.FilterName, 0.8, "name-assembler")

	out := stageSpanEnhancer([]phi.Span{s}, env)
	require.Len(t, out, 1)
	assert.Equal(t, "John Smith, MD", out[0].OriginalValue)
}

// TestVectorDisambiguation tests context-keyword scoring
func TestVectorDisambiguation(t *testing.T) {
	text := "billing account 12345678 overdue"
	env := newEnv(text)
	s := phi.NewSpan(text, 16, 24, phi.FilterMRN, 0.5, "mrn")
	s.AmbiguousWith = []phi.FilterType{phi.FilterAccountNumber}

	out := stageVectorDisambiguation([]phi.Span{s}, env)
	require.Len(t, out, 1)
	assert.Equal(t, phi.FilterAccountNumber, out[0].FilterType)
	assert.Positive(t, out[0].DisambiguationScore)
	assert.Empty(t, out[0].AmbiguousWith)
}

// TestCrossTypeReasonerPriority tests that higher tiers win overlaps
func TestCrossTypeReasonerPriority(t *testing.T) {
	text := "value 456-78-9012 noted"
	env := newEnv(text)

	ssn := phi.NewSpan(text, 6, 17, phi.FilterSSN, 0.95, "ssn")
	phone := phi.NewSpan(text, 6, 17, phi.FilterPhone, 0.9, "phone")

	out := stageCrossTypeReasoner([]phi.Span{phone, ssn}, env)
	require.Len(t, out, 1)
	assert.Equal(t, phi.FilterSSN, out[0].FilterType)
}

// TestCrossTypeReasonerLength tests the longer-span tie-break
func TestCrossTypeReasonerLength(t *testing.T) {
	text := "Dr. John Smith attending"
	env := newEnv(text)

	full := phi.NewSpan(text, 0, 14, phi.FilterName, 0.8, "name-assembler")
	part := phi.NewSpan(text, 9, 14, phi.FilterLastName, 0.9, "surname")

	out := stageCrossTypeReasoner([]phi.Span{part, full}, env)
	require.Len(t, out, 1)
	assert.Equal(t, "Dr. John Smith", out[0].OriginalValue)
}

// TestCrossTypeReasonerSameTypeMerge tests union merging
func TestCrossTypeReasonerSameTypeMerge(t *testing.T) {
	text := "John Smith, MD"
	env := newEnv(text)

	a := phi.NewSpan(text, 0, 10, phi.FilterName, 0.7, "name-assembler")
	b := phi.NewSpan(text, 5, 14, phi.FilterName, 0.8, "name-assembler")

	out := stageCrossTypeReasoner([]phi.Span{a, b}, env)
	require.Len(t, out, 1)
	assert.Equal(t, "John Smith, MD", out[0].OriginalValue)
	assert.InDelta(t, 0.8, out[0].Confidence, 1e-9)
	assert.NotEmpty(t, env.Ctx.Statistics.Anomalies)
}

// TestPostFilterAgeCap tests the age threshold
func TestPostFilterAgeCap(t *testing.T) {
	text := "92 and 85"
	env := newEnv(text)

	over := phi.NewSpan(text, 0, 2, phi.FilterAgeOver89, 0.9, "age")
	over.Kind = "92"
	under := phi.NewSpan(text, 7, 9, phi.FilterAgeOver89, 0.9, "age")
	under.Kind = "85"

	out := stagePostFilter([]phi.Span{over, under}, env)
	require.Len(t, out, 1)
	assert.Equal(t, "92", out[0].OriginalValue)
}

// TestRunFreezesSorted tests the end-to-end pipeline contract
func TestRunFreezesSorted(t *testing.T) {
	text := "SSN: 456-78-9012 for JOHNSON, MARY ELIZABETH"
	ctx := phi.NewContext("s", "d", phi.ScopeDocument)
	pol := policy.Default(policy.ProfileHIPAAStrict)

	spans := []phi.Span{
		phi.NewSpan(text, 21, 44, phi.FilterName, 0.85, "last-name-first"),
		phi.NewSpan(text, 5, 16, phi.FilterSSN, 0.95, "ssn"),
	}
	out := Run(spans, text, pol, ctx)

	require.Len(t, out, 2)
	assert.True(t, phi.NonOverlapping(out))
	assert.Equal(t, phi.FilterSSN, out[0].FilterType)
	assert.Equal(t, phi.FilterName, out[1].FilterType)
}
