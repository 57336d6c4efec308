package vocab

import "strings"

type set map[string]struct{}

func (s set) has(key string) bool {
	_, ok := s[key]
	return ok
}

func buildSet(entries []string) set {
	s := make(set, len(entries))
	for _, e := range entries {
		s[Fold(e)] = struct{}{}
	}
	return s
}

func buildPhonetic(entries []string) set {
	s := make(set, len(entries))
	for _, e := range entries {
		if key := PhoneticKey(e); key != "" {
			s[key] = struct{}{}
		}
	}
	return s
}

var (
	givenNameSet    = buildSet(givenNames)
	surnameSet      = buildSet(surnames)
	medicalTermSet  = buildSet(medicalTerms)
	facilitySet     = buildSet(facilityNames)
	manufacturerSet = buildSet(deviceManufacturers)
	credentialSet   = buildSet(credentialTokens)
	prefixSet       = buildSet(namePrefixes)
	headerSet       = buildSet(sectionHeaders)
	stopwordSet     = buildSet(stopwords)

	givenPhonetic   = buildPhonetic(givenNames)
	surnamePhonetic = buildPhonetic(surnames)

	// facilityTokenSet indexes the distinctive single words of facility
	// names ("Mercy", "Hermann") so partial mentions still hit. Generic
	// words shared with the stopword list are excluded.
	facilityTokenSet = buildFacilityTokens()
)

// genericFacilityWords are facility-name words too common to identify a
// facility on their own.
var genericFacilityWords = buildSet([]string{
	"general", "hospital", "medical", "center", "centre", "clinic",
	"university", "county", "regional", "saint", "research", "veterans",
	"affairs", "family", "urgent", "care", "health", "good", "practice",
	"children's", "childrens",
})

func buildFacilityTokens() set {
	s := make(set)
	for _, name := range facilityNames {
		for _, word := range strings.Fields(name) {
			key := Fold(strings.Trim(word, ".,'"))
			if len(key) < 4 || stopwordSet.has(key) || genericFacilityWords.has(key) {
				continue
			}
			s[key] = struct{}{}
		}
	}
	return s
}

// Phrase length bounds for dictionary scans, in words.
const (
	MaxMedicalTermWords = 4
	MaxFacilityWords    = 6
	MaxHeaderWords      = 4
)

// IsGivenName reports an exact dictionary hit for the word.
func IsGivenName(word string) bool { return givenNameSet.has(FoldToken(word)) }

// IsSurname reports an exact dictionary hit for the word.
func IsSurname(word string) bool { return surnameSet.has(FoldToken(word)) }

// IsGivenNameFuzzy reports a phonetic-index hit for a word that missed
// the exact dictionary. Fuzzy hits carry lower confidence.
func IsGivenNameFuzzy(word string) bool {
	key := PhoneticKey(word)
	return key != "" && givenPhonetic.has(key)
}

// IsSurnameFuzzy reports a phonetic-index hit for a word that missed
// the exact dictionary.
func IsSurnameFuzzy(word string) bool {
	key := PhoneticKey(word)
	return key != "" && surnamePhonetic.has(key)
}

// IsMedicalTerm reports whether the phrase is on the clinical
// allow-list. The phrase may be one to MaxMedicalTermWords words.
func IsMedicalTerm(phrase string) bool { return medicalTermSet.has(Fold(phrase)) }

// IsFacilityName reports a full facility-name hit.
func IsFacilityName(phrase string) bool { return facilitySet.has(Fold(phrase)) }

// IsFacilityToken reports whether the single word is distinctive of a
// known facility.
func IsFacilityToken(word string) bool { return facilityTokenSet.has(Fold(word)) }

// IsManufacturer reports whether the word names a device manufacturer.
func IsManufacturer(word string) bool { return manufacturerSet.has(Fold(word)) }

// IsCredential reports whether the token is a professional credential
// suffix such as "MD" or "RN".
func IsCredential(token string) bool {
	cleaned := strings.ReplaceAll(strings.Trim(token, ","), ".", "")
	return credentialSet.has(Fold(cleaned))
}

// IsNamePrefix reports whether the token is an honorific such as "Dr.".
func IsNamePrefix(token string) bool {
	return prefixSet.has(Fold(strings.TrimRight(token, ",")))
}

// IsSectionHeader reports whether the phrase is a structural clinical
// note heading such as "IMPRESSION" or "REVIEW OF SYSTEMS".
func IsSectionHeader(phrase string) bool {
	return headerSet.has(Fold(strings.TrimRight(phrase, ":")))
}

// IsStopword reports whether the word never participates in a name.
func IsStopword(word string) bool { return stopwordSet.has(Fold(word)) }

// PseudonymPoolSize returns the sizes of the given-name and surname
// pseudonym pools.
func PseudonymPoolSize() (given, surname int) {
	return len(pseudonymGivenNames), len(pseudonymSurnames)
}

// PseudonymGivenName returns the pool entry at i modulo the pool size.
func PseudonymGivenName(i int) string {
	return pseudonymGivenNames[i%len(pseudonymGivenNames)]
}

// PseudonymSurname returns the pool entry at i modulo the pool size.
func PseudonymSurname(i int) string {
	return pseudonymSurnames[i%len(pseudonymSurnames)]
}
