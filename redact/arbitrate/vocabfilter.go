package arbitrate

import (
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// stageDocumentVocabulary scans the document for medical-term
// occurrences, records them in the context vocabulary, and drops
// name-family spans that fall inside one: "Wilson" inside "Wilson's
// disease" is clinical vocabulary, not a surname. The shield is
// asymmetric on purpose: a medical term never outranks numeric-format
// PHI, only dictionary name hits.
func stageDocumentVocabulary(spans []phi.Span, env *Env) []phi.Span {
	occurrences := medicalOccurrences(env.Text)
	if len(occurrences) == 0 {
		return spans
	}
	for _, occ := range occurrences {
		for _, w := range strings.Fields(env.Text[occ[0]:occ[1]]) {
			env.Ctx.DocumentVocabulary[vocab.Fold(w)] = struct{}{}
		}
	}
	out := spans[:0]
	for _, s := range spans {
		if s.FilterType.NameFamily() && insideAny(occurrences, s.CharStart, s.CharEnd) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// medicalOccurrences returns the byte ranges of every allow-list term
// in the text, longest window first so multi-word terms claim their
// whole range.
func medicalOccurrences(text string) [][2]int {
	tokens := tokenizeWords(text)
	var occ [][2]int
	for width := vocab.MaxMedicalTermWords; width >= 1; width-- {
		for i := 0; i+width <= len(tokens); i++ {
			start, end := tokens[i][0], tokens[i+width-1][1]
			if strings.ContainsRune(text[start:end], '\n') {
				continue
			}
			// Possessive constructions keep their trailing token:
			// "Wilson's disease" tokenizes as two words.
			if !vocab.IsMedicalTerm(text[start:end]) {
				continue
			}
			if insideAny(occ, start, end) {
				continue
			}
			occ = append(occ, [2]int{start, end})
		}
	}
	return occ
}

func insideAny(ranges [][2]int, start, end int) bool {
	for _, r := range ranges {
		if start >= r[0] && end <= r[1] {
			return true
		}
	}
	return false
}

// tokenizeWords returns word offsets without materialising tokens.
func tokenizeWords(text string) [][2]int {
	var words [][2]int
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		isWord := c == '\'' || c == '-' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if isWord {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, [2]int{start, len(text)})
	}
	return words
}

// stageAllCapsStructure strips name detections that are actually
// structural all-caps section headings ("IMPRESSION:", "FINDINGS").
// PHI inside the section body is untouched; only spans on the heading
// line itself that match a known header are removed.
func stageAllCapsStructure(spans []phi.Span, env *Env) []phi.Span {
	headers := headerLines(env.Text)
	if len(headers) == 0 {
		return spans
	}
	out := spans[:0]
	for _, s := range spans {
		if s.FilterType.NameFamily() && insideAny(headers, s.CharStart, s.CharEnd) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// headerLines returns the ranges of lines that consist of a known
// all-caps section heading, optionally followed by a colon.
func headerLines(text string) [][2]int {
	var headers [][2]int
	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]
		head, _, cut := strings.Cut(line, ":")
		headEnd := lineEnd
		if cut {
			headEnd = lineStart + len(head) + 1
		}
		trimmed := strings.TrimSpace(head)
		if trimmed != "" && trimmed == strings.ToUpper(trimmed) && vocab.IsSectionHeader(trimmed) {
			headers = append(headers, [2]int{lineStart, headEnd})
		}
		if lineEnd == len(text) {
			break
		}
		lineStart = lineEnd + 1
	}
	return headers
}
