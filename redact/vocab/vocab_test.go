package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFold tests case and diacritic folding
func TestFold(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Smith", "smith"},
		{"JOHNSON", "johnson"},
		{"José", "jose"},
		{"Müller", "muller"},
		{"Renée", "renee"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.in))
		})
	}
}

// TestFoldDigits tests OCR letter-for-digit confusion folding
func TestFoldDigits(t *testing.T) {
	folded := FoldDigits("4S6-7B-9O12")
	assert.Equal(t, "456-78-9012", folded)
	// Length preservation keeps offsets aligned with the source.
	assert.Len(t, folded, len("4S6-7B-9O12"))
}

// TestFoldToken tests dictionary key normalisation including rn/m
func TestFoldToken(t *testing.T) {
	assert.Equal(t, Fold("Smith"), FoldToken("Smith"))
	// "Srnith" is an OCR misread of "Smith": rn collapses to m.
	assert.Equal(t, "smith", FoldToken("Srnith"))
	// Digit-for-letter confusion: "J0hns0n" reads as "johnson".
	assert.Equal(t, "johnson", FoldToken("J0hns0n"))
}

// TestPhoneticKey tests fuzzy surname matching
func TestPhoneticKey(t *testing.T) {
	assert.Equal(t, PhoneticKey("Smith"), PhoneticKey("Smyth"))
	assert.Equal(t, PhoneticKey("Phillips"), PhoneticKey("Filips"))
	assert.NotEqual(t, PhoneticKey("Smith"), PhoneticKey("Garcia"))
	assert.Empty(t, PhoneticKey(""))
}

// TestNameLookups tests the given-name and surname sets
func TestNameLookups(t *testing.T) {
	assert.True(t, IsGivenName("Mary"))
	assert.True(t, IsGivenName("MARY"))
	assert.True(t, IsGivenName("Philip"))
	assert.True(t, IsSurname("Johnson"))
	assert.True(t, IsSurname("Phillips"))
	assert.True(t, IsSurname("Wilson"))
	assert.False(t, IsGivenName("hemoglobin"))
	assert.False(t, IsSurname("IMPRESSION"))

	// "Smythe" is not on the list but shares Smith's phonetic key.
	assert.True(t, IsSurnameFuzzy("Smythe"))
}

// TestMedicalTerms tests the clinical allow-list
func TestMedicalTerms(t *testing.T) {
	assert.True(t, IsMedicalTerm("Wilson's disease"))
	assert.True(t, IsMedicalTerm("hypertension"))
	assert.True(t, IsMedicalTerm("atrial fibrillation"))
	assert.True(t, IsMedicalTerm("Metformin"))
	assert.False(t, IsMedicalTerm("Wilson"))
	assert.False(t, IsMedicalTerm("Johnson"))
}

// TestFacilityLookups tests hospital and clinic matching
func TestFacilityLookups(t *testing.T) {
	assert.True(t, IsFacilityName("Mayo Clinic"))
	assert.True(t, IsFacilityName("St. Mary's Hospital"))
	assert.True(t, IsFacilityToken("Mercy"))
	assert.True(t, IsFacilityToken("Hermann"))
	assert.False(t, IsFacilityToken("General"), "generic words stay out of the token set")
}

// TestCredentialAndPrefixLookups tests the anchor token sets
func TestCredentialAndPrefixLookups(t *testing.T) {
	assert.True(t, IsCredential("MD"))
	assert.True(t, IsCredential("RN"))
	assert.True(t, IsCredential("PhD"))
	assert.True(t, IsCredential("M.D."), "trailing periods are trimmed")
	assert.False(t, IsCredential("ICU"))

	assert.True(t, IsNamePrefix("Dr"))
	assert.True(t, IsNamePrefix("Dr."))
	assert.True(t, IsNamePrefix("Mrs."))
	assert.False(t, IsNamePrefix("The"))
}

// TestManufacturerLookups tests the device manufacturer set
func TestManufacturerLookups(t *testing.T) {
	assert.True(t, IsManufacturer("Philips"))
	assert.True(t, IsManufacturer("Medtronic"))
	assert.False(t, IsManufacturer("Phillips"), "the surname spelling is not a manufacturer")
}

// TestStopwordsAndHeaders tests structural token suppression
func TestStopwordsAndHeaders(t *testing.T) {
	assert.True(t, IsStopword("patient"))
	assert.True(t, IsStopword("Denies"))
	assert.False(t, IsStopword("Johnson"))

	assert.True(t, IsSectionHeader("IMPRESSION"))
	assert.True(t, IsSectionHeader("IMPRESSION:"))
	assert.True(t, IsSectionHeader("REVIEW OF SYSTEMS"))
	assert.False(t, IsSectionHeader("WILSON"))
}

// TestTitleCaseAndAllCaps tests word shape predicates
func TestTitleCaseAndAllCaps(t *testing.T) {
	assert.True(t, TitleCase("Smith"))
	assert.True(t, TitleCase("O'Brien"))
	assert.True(t, TitleCase("Smith-Jones"))
	assert.False(t, TitleCase("smith"))
	assert.False(t, TitleCase("SMITH"))

	assert.True(t, AllCaps("JOHNSON"))
	assert.False(t, AllCaps("J"))
	assert.False(t, AllCaps("Johnson"))
}

// TestPseudonymPools tests keyed pool access
func TestPseudonymPools(t *testing.T) {
	given, surname := PseudonymPoolSize()
	assert.Positive(t, given)
	assert.Positive(t, surname)
	assert.Equal(t, PseudonymGivenName(0), PseudonymGivenName(given))
	assert.NotEmpty(t, PseudonymSurname(7))
}

// TestDigitRatio tests the misread-number heuristic
func TestDigitRatio(t *testing.T) {
	assert.Equal(t, 0.0, DigitRatio(""))
	assert.Equal(t, 1.0, DigitRatio("12345"))
	assert.Greater(t, DigitRatio("4S6-7B"), 0.5)
}
