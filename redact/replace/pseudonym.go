package replace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strconv"
	"time"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
	"github.com/dochatty/vulpes/redact/vocab"
)

// pseudonym draws a deterministic stand-in for the original value from
// a keyed pool. The draw is HMAC(key, original), so the same value maps
// to the same pseudonym across documents without keeping a table, and
// nothing about the original leaks into the choice.
func pseudonym(s *phi.Span, pol *policy.Policy, ctx *phi.Context) string {
	key := pol.EffectiveHMACKey()
	if key == nil {
		key = []byte("vulpes-pseudonym-pool")
	}
	draw := hmacIndex(key, s.OriginalValue)

	switch s.FilterType {
	case phi.FilterFirstName:
		return vocab.PseudonymGivenName(draw)
	case phi.FilterLastName:
		return vocab.PseudonymSurname(draw)
	case phi.FilterName:
		return vocab.PseudonymGivenName(draw) + " " + vocab.PseudonymSurname(draw>>8)
	case phi.FilterDate:
		if shifted, ok := shiftDate(s.Text, dateOffsetDays(key, ctx.DocumentID)); ok {
			return shifted
		}
	}
	return formatPreserving(key, s.OriginalValue)
}

func hmacIndex(key []byte, value string) int {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	sum := mac.Sum(nil)
	return int(binary.BigEndian.Uint32(sum[:4]) & 0x7fffffff)
}

// dateOffsetDays derives the per-document shift applied to every date,
// so intervals between dates in one document are preserved. The range
// is ±182 days, never zero.
func dateOffsetDays(key []byte, documentID string) int {
	n := hmacIndex(key, "date-shift:"+documentID)
	offset := n%365 - 182
	if offset == 0 {
		offset = 91
	}
	return offset
}

var shiftableDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// shiftDate moves a MM/DD/YYYY date by the given day offset, keeping
// the original format. Other forms fall through to format-preserving
// rewriting.
func shiftDate(value string, days int) (string, bool) {
	m := shiftableDate.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	t = t.AddDate(0, 0, days)
	return t.Format("01/02/2006"), true
}

// formatPreserving rewrites the value character class for character
// class from an HMAC-keyed stream: digits stay digits, letters stay
// letters with their case, punctuation passes through. The shape of an
// identifier survives while every identifying character changes.
func formatPreserving(key []byte, original string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("fp:" + original))
	stream := mac.Sum(nil)

	out := make([]byte, 0, len(original))
	si := 0
	next := func() byte {
		if si == len(stream) {
			mac.Write(stream)
			stream = mac.Sum(nil)
			si = 0
		}
		b := stream[si]
		si++
		return b
	}
	for i := 0; i < len(original); i++ {
		c := original[i]
		switch {
		case c >= '0' && c <= '9':
			out = append(out, '0'+next()%10)
		case c >= 'a' && c <= 'z':
			out = append(out, 'a'+next()%26)
		case c >= 'A' && c <= 'Z':
			out = append(out, 'A'+next()%26)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

var yearRe = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

// yearOf extracts the four-digit year from a date string, or "".
func yearOf(date string) string {
	return yearRe.FindString(date)
}

// restrictedZIP3 lists the three-digit ZIP prefixes whose population is
// under twenty thousand; Safe Harbor requires even the prefix to go.
var restrictedZIP3 = map[string]bool{
	"036": true, "059": true, "063": true, "102": true, "203": true,
	"205": true, "369": true, "556": true, "692": true, "753": true,
	"772": true, "821": true, "823": true, "830": true, "831": true,
	"878": true, "879": true, "884": true, "890": true, "893": true,
}

// zip3 narrows a ZIP code to its first three digits padded with zeros.
// Restricted low-population prefixes refuse the narrowing and fall back
// to full tokenisation.
func zip3(z string) (string, bool) {
	if len(z) < 5 {
		return "", false
	}
	prefix := z[:3]
	for i := 0; i < 3; i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return "", false
		}
	}
	if restrictedZIP3[prefix] {
		return "", false
	}
	return prefix + "00", true
}
