package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dochatty/vulpes/redact/phi"
)

func spanValues(spans []phi.Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.OriginalValue
	}
	return out
}

// TestGivenNameDetector tests dictionary hits on isolated tokens
func TestGivenNameDetector(t *testing.T) {
	spans := detectWith(t, &givenNameDetector{}, "Seen with Mary at bedside")
	require.Len(t, spans, 1)
	assert.Equal(t, phi.FilterFirstName, spans[0].FilterType)
	assert.Equal(t, "Mary", spans[0].OriginalValue)
}

// TestGivenNameDetectorSkipsLowercase tests that prose words stay out
func TestGivenNameDetectorSkipsLowercase(t *testing.T) {
	spans := detectWith(t, &givenNameDetector{}, "the mark on the skin was small")
	assert.Empty(t, spans, "lowercase 'mark' is prose, not a name")
}

// TestSurnameDetectorFuzzy tests phonetic matching at lower confidence
func TestSurnameDetectorFuzzy(t *testing.T) {
	spans := detectWith(t, &surnameDetector{}, "Attending Smythe reviewed")
	require.NotEmpty(t, spans)
	found := false
	for _, s := range spans {
		if s.OriginalValue == "Smythe" {
			found = true
			assert.Equal(t, "surname-phonetic", s.Pattern)
			assert.Less(t, s.Confidence, 0.6)
		}
	}
	assert.True(t, found)
}

// TestNameAssemblerPrefixAnchor tests honorific-anchored assembly
func TestNameAssemblerPrefixAnchor(t *testing.T) {
	spans := detectWith(t, &nameAssemblerDetector{}, "provider Dr. Wilson today")
	require.Len(t, spans, 1)
	assert.Equal(t, phi.FilterName, spans[0].FilterType)
	assert.Equal(t, "Dr. Wilson", spans[0].OriginalValue)
}

// TestNameAssemblerDictionaryWalk tests multi-word assembly
func TestNameAssemblerDictionaryWalk(t *testing.T) {
	spans := detectWith(t, &nameAssemblerDetector{}, "Seen by Philip Phillips, RN")
	require.NotEmpty(t, spans)
	assert.Contains(t, spanValues(spans), "Philip Phillips, RN")
}

// TestNameAssemblerCredentialAnchor tests assembly without dictionary hits
func TestNameAssemblerCredentialAnchor(t *testing.T) {
	spans := detectWith(t, &nameAssemblerDetector{}, "Reviewed by Kwiatkowski, MD")
	require.NotEmpty(t, spans)
	assert.Contains(t, spanValues(spans), "Kwiatkowski, MD")
}

// TestNameAssemblerIgnoresProse tests that ordinary sentences produce nothing
func TestNameAssemblerIgnoresProse(t *testing.T) {
	spans := detectWith(t, &nameAssemblerDetector{}, "patient denies chest pain and dyspnea")
	assert.Empty(t, spans)
}

// TestLastNameFirstDetector tests the chart-header form
func TestLastNameFirstDetector(t *testing.T) {
	spans := detectWith(t, &lastNameFirstDetector{}, "Re: JOHNSON, MARY ELIZABETH follow-up")
	require.Len(t, spans, 1)
	assert.Equal(t, "JOHNSON, MARY ELIZABETH", spans[0].OriginalValue)
	assert.Equal(t, phi.FilterName, spans[0].FilterType)
}

// TestLastNameFirstNeedsEvidence tests that a bare comma is not enough
func TestLastNameFirstNeedsEvidence(t *testing.T) {
	spans := detectWith(t, &lastNameFirstDetector{}, "Later, However we waited")
	assert.Empty(t, spans)
}

// TestFacilityDetectorPhrase tests full facility-name matching
func TestFacilityDetectorPhrase(t *testing.T) {
	spans := detectWith(t, &facilityDetector{}, "transferred from Mayo Clinic overnight")
	require.Len(t, spans, 1)
	assert.Equal(t, "Mayo Clinic", spans[0].OriginalValue)
	assert.Equal(t, phi.TierGeographic, spans[0].Priority)
}

// TestFacilityDetectorToken tests distinctive token plus institutional word
func TestFacilityDetectorToken(t *testing.T) {
	spans := detectWith(t, &facilityDetector{}, "admitted to Hermann Hospital by EMS")
	require.NotEmpty(t, spans)
	assert.Equal(t, "Hermann Hospital", spans[0].OriginalValue)
}

// TestDateDetectorFormats tests the recognised date shapes
func TestDateDetectorFormats(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"DOB 04/22/1978 noted", "04/22/1978"},
		{"on 2024-03-15 the patient", "2024-03-15"},
		{"seen Mar 15 2024 in clinic", "Mar 15 2024"},
		{"seen March 15, 2024 in clinic", "March 15, 2024"},
		{"seen 15 March 2024 in clinic", "15 March 2024"},
		{"seen 15.03.2024 in clinic", "15.03.2024"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			spans := detectWith(t, &dateDetector{}, tt.text)
			require.Len(t, spans, 1)
			assert.Equal(t, tt.expected, spans[0].OriginalValue)
			assert.Equal(t, phi.FilterDate, spans[0].FilterType)
		})
	}
}

// TestDateDetectorRejectsImplausible tests bounds checking
func TestDateDetectorRejectsImplausible(t *testing.T) {
	spans := detectWith(t, &dateDetector{}, "ratio 13/45/1978 measured")
	assert.Empty(t, spans)
}

// TestDateDetectorKind tests the DOB sub-tag
func TestDateDetectorKind(t *testing.T) {
	spans := detectWith(t, &dateDetector{}, "Date of birth 04/22/1978")
	require.Len(t, spans, 1)
	assert.Equal(t, "DOB", spans[0].Kind)
}

// TestAgeDetector tests age extraction with the number-only span
func TestAgeDetector(t *testing.T) {
	text := "92-year-old female presented"
	spans := detectWith(t, &ageDetector{}, text)
	require.Len(t, spans, 1)
	assert.Equal(t, "92", spans[0].OriginalValue)
	assert.Equal(t, "92", spans[0].Kind)
	assert.Equal(t, phi.FilterAgeOver89, spans[0].FilterType)
	assert.Equal(t, 0, spans[0].CharStart)
}

// TestAddressDetector tests street address assembly
func TestAddressDetector(t *testing.T) {
	spans := detectWith(t, &addressDetector{}, "lives at 1420 Maple Grove Avenue, Apt 4B since 2019")
	require.Len(t, spans, 1)
	assert.Equal(t, "1420 Maple Grove Avenue, Apt 4B", spans[0].OriginalValue)
	assert.Equal(t, phi.FilterAddress, spans[0].FilterType)
}

// TestZIPDetectorContext tests ZIP confidence from a state abbreviation
func TestZIPDetectorContext(t *testing.T) {
	spans := detectWith(t, &zipDetector{}, "Houston, TX 77030")
	require.Len(t, spans, 1)
	assert.Equal(t, "77030", spans[0].OriginalValue)
	assert.GreaterOrEqual(t, spans[0].Confidence, 0.8)
}

// TestUniqueIDDetector tests the fallback detector
func TestUniqueIDDetector(t *testing.T) {
	spans := detectWith(t, &uniqueIDDetector{}, "ref 550e8400-e29b-41d4-a716-446655440000 logged")
	require.Len(t, spans, 1)
	assert.Equal(t, "uuid", spans[0].Pattern)
	assert.Equal(t, phi.TierFallback, spans[0].Priority)
}
