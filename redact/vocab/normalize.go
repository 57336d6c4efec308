package vocab

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks after canonical decomposition,
// reducing accented Latin letters to their base forms.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns the dictionary key form of s: diacritics stripped and
// ASCII case-folded. This is the only key form the dictionaries store.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Fall back to case folding alone; a key that cannot be
		// decomposed still matches its own exact occurrences.
		folded = s
	}
	return strings.ToLower(folded)
}

// digitConfusions maps letters commonly misread for digits by OCR onto
// the digit they stand in for. The mapping is character-for-character so
// offsets into the normalised view line up with the original text.
var digitConfusions = map[rune]rune{
	'O': '0', 'o': '0',
	'I': '1', 'l': '1', '|': '1',
	'S': '5', 's': '5',
	'B': '8',
	'Z': '2', 'z': '2',
	'G': '6',
}

// letterConfusions maps digits commonly misread for letters onto the
// lowercase letter they stand in for, used when normalising candidate
// dictionary tokens.
var letterConfusions = map[rune]rune{
	'0': 'o',
	'1': 'l',
	'5': 's',
	'8': 'b',
	'2': 'z',
	'6': 'g',
}

// FoldDigits rewrites s with letter-for-digit OCR confusions collapsed
// to digits. Length and offsets are preserved, so numeric detectors can
// match on the folded view and report spans in the original text.
func FoldDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if d, ok := digitConfusions[r]; ok {
			b.WriteRune(d)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FoldToken normalises a single candidate word for dictionary lookup:
// digit-for-letter confusions are collapsed, "rn" collapses to "m", and
// the result is folded. Offsets are not preserved; use only for keys.
func FoldToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if l, ok := letterConfusions[r]; ok {
			b.WriteRune(l)
		} else {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(Fold(b.String()), "rn", "m")
}

// DigitRatio returns the fraction of bytes in s that are ASCII digits
// after OCR digit folding. Used by numeric detectors to decide whether a
// mixed token is a plausible misread number.
func DigitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	folded := FoldDigits(s)
	digits := 0
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(len(folded))
}

// TitleCase reports whether the word starts with an uppercase letter
// followed only by lowercase letters, apostrophes or hyphens; a letter
// right after an apostrophe or hyphen may also be uppercase, so
// "O'Brien" and "Smith-Jones" qualify.
func TitleCase(word string) bool {
	if word == "" {
		return false
	}
	runes := []rune(word)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	prev := runes[0]
	for _, r := range runes[1:] {
		joined := prev == '\'' || prev == '-'
		if !unicode.IsLower(r) && r != '\'' && r != '-' && !(joined && unicode.IsUpper(r)) {
			return false
		}
		prev = r
	}
	return true
}

// AllCaps reports whether the word is entirely uppercase letters and at
// least two characters long.
func AllCaps(word string) bool {
	if len(word) < 2 {
		return false
	}
	for _, r := range word {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
