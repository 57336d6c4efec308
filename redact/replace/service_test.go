package replace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

func spanFor(text string, start, end int, ft phi.FilterType) phi.Span {
	return phi.NewSpan(text, start, end, ft, 0.9, "test")
}

func parseShifted(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse("01/02/2006", s)
	require.NoError(t, err)
	return tm
}

// TestCategoryTokenCounting tests per-type counters and value reuse
func TestCategoryTokenCounting(t *testing.T) {
	svc := NewService()
	pol := policy.Default(policy.ProfileHIPAAStrict)
	ctx := phi.NewContext("s1", "d1", phi.ScopeDocument)

	text := "MARY then JOHN then MARY"
	spans := []phi.Span{
		spanFor(text, 0, 4, phi.FilterFirstName),
		spanFor(text, 10, 14, phi.FilterFirstName),
		spanFor(text, 20, 24, phi.FilterFirstName),
	}
	out := svc.Assign(spans, pol, ctx)

	assert.Equal(t, "[FIRST_NAME-1]", out[0].Replacement)
	assert.Equal(t, "[FIRST_NAME-2]", out[1].Replacement)
	// The same source string maps to the same token.
	assert.Equal(t, "[FIRST_NAME-1]", out[2].Replacement)
}

// TestDocumentScopeResets tests PER_DOCUMENT counter isolation
func TestDocumentScopeResets(t *testing.T) {
	svc := NewService()
	pol := policy.Default(policy.ProfileHIPAAStrict)

	text := "MARY"
	first := svc.Assign([]phi.Span{spanFor(text, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("s1", "d1", phi.ScopeDocument))
	text2 := "JOHN"
	second := svc.Assign([]phi.Span{spanFor(text2, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("s1", "d2", phi.ScopeDocument))

	assert.Equal(t, "[FIRST_NAME-1]", first[0].Replacement)
	assert.Equal(t, "[FIRST_NAME-1]", second[0].Replacement)
}

// TestSessionScopeCarriesCounters tests PER_SESSION reuse
func TestSessionScopeCarriesCounters(t *testing.T) {
	svc := NewService()
	pol := policy.Default(policy.ProfileHIPAAStrict)

	text := "MARY"
	first := svc.Assign([]phi.Span{spanFor(text, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("sess", "d1", phi.ScopeSession))
	text2 := "JOHN"
	second := svc.Assign([]phi.Span{spanFor(text2, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("sess", "d2", phi.ScopeSession))
	again := svc.Assign([]phi.Span{spanFor(text, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("sess", "d3", phi.ScopeSession))

	assert.Equal(t, "[FIRST_NAME-1]", first[0].Replacement)
	assert.Equal(t, "[FIRST_NAME-2]", second[0].Replacement)
	assert.Equal(t, "[FIRST_NAME-1]", again[0].Replacement)

	mappings := svc.Mappings("sess")
	assert.Equal(t, "MARY", mappings["[FIRST_NAME-1]"])
	assert.Equal(t, "JOHN", mappings["[FIRST_NAME-2]"])
}

// TestStarsPreservesStructure tests the format-preserving mask
func TestStarsPreservesStructure(t *testing.T) {
	svc := NewService()
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.ReplacementStrategy = policy.StrategyStars
	ctx := phi.NewContext("s", "d", phi.ScopeDocument)

	text := "456-78-9012"
	out := svc.Assign([]phi.Span{spanFor(text, 0, 11, phi.FilterSSN)}, pol, ctx)
	assert.Equal(t, "***-**-****", out[0].Replacement)
}

// TestTagAndCount tests the counterless strategy
func TestTagAndCount(t *testing.T) {
	svc := NewService()
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.ReplacementStrategy = policy.StrategyTagAndCount
	ctx := phi.NewContext("s", "d", phi.ScopeDocument)

	text := "456-78-9012"
	out := svc.Assign([]phi.Span{spanFor(text, 0, 11, phi.FilterSSN)}, pol, ctx)
	assert.Equal(t, "[SSN]", out[0].Replacement)
}

// TestPseudonymDeterminism tests keyed pseudonym stability
func TestPseudonymDeterminism(t *testing.T) {
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.ReplacementStrategy = policy.StrategyConsistentPseudonym
	pol.HMACKey = "test-key"

	text := "Mary"
	run := func() string {
		svc := NewService()
		ctx := phi.NewContext("s", "d", phi.ScopeDocument)
		out := svc.Assign([]phi.Span{spanFor(text, 0, 4, phi.FilterFirstName)}, pol, ctx)
		return out[0].Replacement
	}

	a, b := run(), run()
	assert.Equal(t, a, b, "the draw is keyed and deterministic")
	assert.NotEqual(t, "Mary", a)
	assert.NotEmpty(t, a)
}

// TestPseudonymDateShiftPreservesIntervals tests the per-document offset
func TestPseudonymDateShiftPreservesIntervals(t *testing.T) {
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.ReplacementStrategy = policy.StrategyConsistentPseudonym
	pol.HMACKey = "test-key"
	svc := NewService()
	ctx := phi.NewContext("s", "doc-1", phi.ScopeDocument)

	text := "04/22/1978 and 04/25/1978"
	out := svc.Assign([]phi.Span{
		spanFor(text, 0, 10, phi.FilterDate),
		spanFor(text, 15, 25, phi.FilterDate),
	}, pol, ctx)

	a := parseShifted(t, out[0].Replacement)
	b := parseShifted(t, out[1].Replacement)
	assert.Equal(t, 3, int(b.Sub(a).Hours()/24), "three-day interval survives the shift")
	assert.NotEqual(t, "04/22/1978", out[0].Replacement)
}

// TestFormatPreservingRewrite tests shape retention for identifiers
func TestFormatPreservingRewrite(t *testing.T) {
	got := formatPreserving([]byte("k"), "AB-1234/x")
	require.Len(t, got, len("AB-1234/x"))
	assert.Equal(t, byte('-'), got[2])
	assert.Equal(t, byte('/'), got[7])
	assert.NotEqual(t, "AB-1234/x", got)
	for i := 3; i < 7; i++ {
		assert.GreaterOrEqual(t, got[i], byte('0'))
		assert.LessOrEqual(t, got[i], byte('9'))
	}
}

// TestPreserveDatesKeepsYear tests Limited Dataset date handling
func TestPreserveDatesKeepsYear(t *testing.T) {
	svc := NewService()
	pol := policy.Default(policy.ProfileHIPAALimitedDataset)
	ctx := phi.NewContext("s", "d", phi.ScopeDocument)

	text := "04/22/1978"
	out := svc.Assign([]phi.Span{spanFor(text, 0, 10, phi.FilterDate)}, pol, ctx)
	assert.Equal(t, "1978", out[0].Replacement)
}

// TestZIP3Narrowing tests Limited Dataset ZIP handling
func TestZIP3Narrowing(t *testing.T) {
	svc := NewService()
	pol := policy.Default(policy.ProfileHIPAALimitedDataset)
	ctx := phi.NewContext("s", "d", phi.ScopeDocument)

	text := "77030 03601"
	out := svc.Assign([]phi.Span{
		spanFor(text, 0, 5, phi.FilterZIP),
		spanFor(text, 6, 11, phi.FilterZIP),
	}, pol, ctx)

	assert.Equal(t, "77000", out[0].Replacement)
	// Prefix 036 is population-restricted: full tokenisation instead.
	assert.Equal(t, "[ZIP-1]", out[1].Replacement)
}

// TestExportRestore tests PER_POLICY table round-tripping
func TestExportRestore(t *testing.T) {
	pol := policy.Default(policy.ProfileHIPAAStrict)

	svc := NewService()
	text := "MARY"
	svc.Assign([]phi.Span{spanFor(text, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("sess", "d1", phi.ScopePolicy))
	state := svc.Export("sess")

	restored := NewService()
	restored.Restore("sess", state)
	text2 := "JOHN"
	out := restored.Assign([]phi.Span{spanFor(text2, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("sess", "d2", phi.ScopePolicy))

	// Counters resume above the restored maximum.
	assert.Equal(t, "[FIRST_NAME-2]", out[0].Replacement)

	same := restored.Assign([]phi.Span{spanFor(text, 0, 4, phi.FilterFirstName)}, pol,
		phi.NewContext("sess", "d3", phi.ScopePolicy))
	assert.Equal(t, "[FIRST_NAME-1]", same[0].Replacement)
}

// TestStoreRoundTrip tests bbolt persistence of session tables
func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	state := ExportedTable{Tokens: map[string]string{
		string(phi.FilterFirstName) + "\x00MARY": "[FIRST_NAME-1]",
	}}
	require.NoError(t, store.Save("sess", state))

	loaded, err := store.Load("sess")
	require.NoError(t, err)
	assert.Equal(t, state.Tokens, loaded.Tokens)

	empty, err := store.Load("missing")
	require.NoError(t, err)
	assert.Empty(t, empty.Tokens)
}
