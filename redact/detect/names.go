package detect

import (
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// nameToken reports whether the token could be part of a written name:
// title case or all caps, not a stopword, not a section header.
func nameToken(t Token) bool {
	if vocab.IsStopword(t.Text) || vocab.IsSectionHeader(t.Text) {
		return false
	}
	return vocab.TitleCase(t.Text) || vocab.AllCaps(t.Text)
}

// givenNameDetector emits FIRST_NAME spans for dictionary hits on
// isolated tokens. Fuzzy (phonetic) hits carry reduced confidence.
type givenNameDetector struct{}

func (d *givenNameDetector) Source() string { return "given-name" }

func (d *givenNameDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterFirstName}
}

func (d *givenNameDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, t := range Tokenize(text) {
		t = trimTokenPunct(t)
		if t.Start >= t.End || !nameToken(t) {
			continue
		}
		switch {
		case vocab.IsGivenName(t.Text):
			s := phi.NewSpan(text, t.Start, t.End, phi.FilterFirstName, 0.60, d.Source())
			s.Pattern = "given-exact"
			spans = append(spans, s)
		case vocab.IsGivenNameFuzzy(t.Text):
			s := phi.NewSpan(text, t.Start, t.End, phi.FilterFirstName, 0.30, d.Source())
			s.Pattern = "given-phonetic"
			spans = append(spans, s)
		}
	}
	return spans, nil
}

// surnameDetector emits LAST_NAME spans for dictionary hits.
type surnameDetector struct{}

func (d *surnameDetector) Source() string { return "surname" }

func (d *surnameDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterLastName}
}

func (d *surnameDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, t := range Tokenize(text) {
		t = trimTokenPunct(t)
		if t.Start >= t.End || !nameToken(t) {
			continue
		}
		switch {
		case vocab.IsSurname(t.Text):
			s := phi.NewSpan(text, t.Start, t.End, phi.FilterLastName, 0.60, d.Source())
			s.Pattern = "surname-exact"
			spans = append(spans, s)
		case vocab.IsSurnameFuzzy(t.Text):
			s := phi.NewSpan(text, t.Start, t.End, phi.FilterLastName, 0.30, d.Source())
			s.Pattern = "surname-phonetic"
			spans = append(spans, s)
		}
	}
	return spans, nil
}

// nameAssemblerDetector builds complete NAME spans by a greedy
// left-to-right walk with two look-ahead tokens. Honorific prefixes
// ("Dr.") and credential suffixes ("MD", "RN") act as anchors: the
// assembler extends an anchor across adjacent name tokens so "Dr.
// Wilson" and "Philip Phillips, RN" each become a single span covering
// the anchor.
type nameAssemblerDetector struct{}

func (d *nameAssemblerDetector) Source() string { return "name-assembler" }

func (d *nameAssemblerDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterName}
}

func (d *nameAssemblerDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	tokens := Tokenize(text)
	var spans []phi.Span

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]

		// Prefix anchor: "Dr. Wilson", "Mrs. Garcia-Lopez".
		if vocab.IsNamePrefix(t.Text) {
			j := i + 1
			for j < len(tokens) && j <= i+3 && nameToken(tokens[j]) &&
				sameLine(text, tokens[j-1].End, tokens[j].Start) {
				j++
			}
			if j > i+1 {
				end := tokens[j-1].End
				end = absorbCredential(text, tokens, j-1, end)
				s := phi.NewSpan(text, t.Start, end, phi.FilterName, 0.85, d.Source())
				s.Pattern = "prefix-anchored"
				spans = append(spans, s)
				i = j - 1
				continue
			}
		}

		if !nameToken(t) || vocab.IsNamePrefix(t.Text) {
			continue
		}

		// Dictionary walk: a given-name hit opens a candidate; up to two
		// look-ahead tokens extend it across middles and surnames.
		given := vocab.IsGivenName(t.Text) || vocab.IsGivenNameFuzzy(t.Text)
		if !given {
			continue
		}
		j := i + 1
		hits := 1
		for j < len(tokens) && j <= i+2 && nameToken(tokens[j]) &&
			sameLine(text, tokens[j-1].End, tokens[j].Start) &&
			!vocab.IsCredential(tokens[j].Text) {
			if vocab.IsSurname(tokens[j].Text) || vocab.IsGivenName(tokens[j].Text) ||
				vocab.IsSurnameFuzzy(tokens[j].Text) {
				hits++
			}
			j++
		}
		if j == i+1 || hits < 2 {
			continue
		}
		end := tokens[j-1].End
		end = absorbCredential(text, tokens, j-1, end)
		conf := 0.75
		if hits >= 3 {
			conf = 0.82
		}
		s := phi.NewSpan(text, t.Start, end, phi.FilterName, conf, d.Source())
		s.Pattern = "dictionary-walk"
		spans = append(spans, s)
		i = j - 1
	}

	// Credential anchor without a dictionary hit: "Seen by Kwiatkowski,
	// MD". Walk left from each credential across name tokens.
	for i, t := range tokens {
		if !vocab.IsCredential(t.Text) {
			continue
		}
		j := i - 1
		for j >= 0 && i-j <= 3 && nameToken(tokens[j]) &&
			sameLine(text, tokens[j].End, tokens[j+1].Start) {
			j--
		}
		if j == i-1 {
			continue
		}
		start := tokens[j+1].Start
		s := phi.NewSpan(text, start, t.End, phi.FilterName, 0.80, d.Source())
		s.Pattern = "credential-anchored"
		spans = append(spans, s)
	}

	return spans, nil
}

// absorbCredential extends end across ", MD" style credential suffixes
// directly after the token at idx.
func absorbCredential(text string, tokens []Token, idx, end int) int {
	for next := idx + 1; next < len(tokens); next++ {
		gap := text[tokens[next-1].End:tokens[next].Start]
		if !credentialGap(gap) || !vocab.IsCredential(tokens[next].Text) {
			break
		}
		end = tokens[next].End
		idx = next
	}
	return end
}

// credentialGap accepts ", " or " " between a name and its credential.
func credentialGap(gap string) bool {
	trimmed := strings.TrimSpace(gap)
	return (trimmed == "" || trimmed == ",") && !strings.ContainsRune(gap, '\n')
}

// sameLine reports whether the gap between two tokens stays on one line
// and is short enough to belong to one entity.
func sameLine(text string, from, to int) bool {
	if to-from > 3 {
		return false
	}
	return !strings.ContainsRune(text[from:to], '\n')
}

// lastNameFirstDetector finds "SURNAME, GIVEN [MIDDLE]" forms common in
// chart headers, including all-caps renderings.
type lastNameFirstDetector struct{}

func (d *lastNameFirstDetector) Source() string { return "last-name-first" }

func (d *lastNameFirstDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterName}
}

func (d *lastNameFirstDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	tokens := Tokenize(text)
	var spans []phi.Span
	for i := 0; i+1 < len(tokens); i++ {
		last := tokens[i]
		if !nameToken(last) {
			continue
		}
		gap := text[last.End:tokens[i+1].Start]
		if strings.TrimSpace(gap) != "," || strings.ContainsRune(gap, '\n') {
			continue
		}
		surnameHit := vocab.IsSurname(last.Text) || vocab.IsSurnameFuzzy(last.Text)
		labelled := labelIs(ctx, last.Start, last.End, "PATIENT", "NAME")
		if !surnameHit && !labelled {
			continue
		}
		j := i + 1
		givenHits := 0
		for j < len(tokens) && j <= i+3 && nameToken(tokens[j]) &&
			sameLine(text, tokens[j-1].End, tokens[j].Start) {
			if vocab.IsGivenName(tokens[j].Text) || vocab.IsGivenNameFuzzy(tokens[j].Text) {
				givenHits++
			}
			j++
		}
		if j == i+1 || givenHits == 0 {
			continue
		}
		conf := 0.80
		if surnameHit && labelled {
			conf = 0.90
		}
		s := phi.NewSpan(text, last.Start, tokens[j-1].End, phi.FilterName, conf, d.Source())
		s.Pattern = "last-name-first"
		spans = append(spans, s)
		i = j - 1
	}
	return spans, nil
}
